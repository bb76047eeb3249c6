package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// stderr is the console sink; tests swap it out.
var stderr io.Writer = os.Stderr

var (
	logger  = newLogger()
	logFile *os.File
	mu      sync.Mutex
	isSetup bool
)

// Options controls where and how log entries are written.
type Options struct {
	Level string // logrus level name, "info" when empty
	File  string // also append to this file
	JSON  bool
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// SetupLogger configures the process-wide logger. Calling it again before
// CloseLogger is a no-op.
func SetupLogger(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	if isSetup {
		return nil
	}

	levelName := strings.TrimSpace(opts.Level)
	if levelName == "" {
		levelName = "info"
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	out := stderr
	if opts.File != "" {
		logFile, err = os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(stderr, logFile)
	}

	logger.SetOutput(out)
	logger.SetLevel(level)
	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: logFile != nil})
	}

	logger.Debugf("--- ReefWatch log started at %s ---", time.Now().Format(time.RFC3339))

	isSetup = true
	return nil
}

// CloseLogger closes the log file, if any, and restores the stderr default.
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logger.Debugf("--- ReefWatch log closed at %s ---", time.Now().Format(time.RFC3339))
		logFile.Close()
		logFile = nil
	}
	logger.SetOutput(stderr)
	isSetup = false
}

// Logger exposes the underlying logrus logger.
func Logger() *logrus.Logger {
	return logger
}

// WithFields starts a structured entry.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

// IsDebug reports whether debug entries are being written.
func IsDebug() bool {
	return logger.IsLevelEnabled(logrus.DebugLevel)
}

// LogInfo logs an information message
func LogInfo(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

// DebugLog logs a message if debug level is enabled
func DebugLog(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

// LogWarning logs a warning message
func LogWarning(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

// LogPairProcessed records the outcome of comparing one baseline/current pair.
func LogPairProcessed(site string, success bool, errMsg string) {
	entry := logger.WithField("site", site)
	if success {
		entry.Info("PROCESSED")
		return
	}
	entry.WithField("error", errMsg).Error("FAILED")
}
