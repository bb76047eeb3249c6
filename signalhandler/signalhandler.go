package signalhandler

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"reefwatch/logging"
)

// SetupHandler returns a context that is cancelled on the first SIGINT or
// SIGTERM. A second signal exits immediately with status 130.
func SetupHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logging.LogWarning("Received %v, finishing in-flight work (signal again to abort)", sig)
			cancel()
		case <-ctx.Done():
			return
		}
		<-sigChan
		os.Exit(130)
	}()

	return ctx, cancel
}

// GetOptimalProcs returns the optimal number of worker goroutines for the system
func GetOptimalProcs() int {
	numCPU := runtime.NumCPU()

	// OpenCV parallelises internally; leave headroom for its threads.
	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
