package scanner

import (
	"fmt"
	"sort"
	"time"

	"reefwatch/logging"
)

// NewProgressTracker starts displaying progress and consuming results. A
// quiet tracker only logs.
func NewProgressTracker(totalSites int, resultsChan <-chan SiteResult, quiet bool) *ProgressTracker {
	tracker := &ProgressTracker{
		ticker:     time.NewTicker(500 * time.Millisecond),
		done:       make(chan struct{}),
		drained:    make(chan struct{}),
		totalSites: totalSites,
		quiet:      quiet,
	}

	// Start progress display goroutine
	go tracker.displayProgress()

	// Start result processor goroutine
	go tracker.processResults(resultsChan)

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			if p.quiet {
				continue
			}
			p.mu.Lock()
			if p.errors > 0 {
				fmt.Printf("\rProgress: %d/%d sites (Errors: %d, Skipped: %d)", p.processed, p.totalSites, p.errors, p.skipped)
			} else {
				fmt.Printf("\rProgress: %d/%d sites (Skipped: %d)", p.processed, p.totalSites, p.skipped)
			}
			p.mu.Unlock()
		}
	}
}

// processResults updates the tracker state based on site results
func (p *ProgressTracker) processResults(resultsChan <-chan SiteResult) {
	defer close(p.drained)

	for result := range resultsChan {
		p.mu.Lock()
		p.processed++
		p.results = append(p.results, result)

		switch {
		case !result.Success:
			p.errors++
			errMsg := ""
			if result.Error != nil {
				errMsg = result.Error.Error()
			}
			logging.LogPairProcessed(result.Site, false, errMsg)
		case result.Skipped:
			p.skipped++
			logging.DebugLog("Site %s unchanged since run %s", result.Site, result.RunID)
		default:
			logging.LogPairProcessed(result.Site, true, "")
		}

		p.mu.Unlock()
	}
}

// Stop waits for the results channel to drain, then ends the display. The
// results channel must be closed before calling Stop.
func (p *ProgressTracker) Stop() {
	<-p.drained
	p.ticker.Stop()
	close(p.done)
}

// Summary returns the counts and the per-site results sorted by site
func (p *ProgressTracker) Summary(elapsed time.Duration) *SurveySummary {
	p.mu.Lock()
	defer p.mu.Unlock()

	results := make([]SiteResult, len(p.results))
	copy(results, p.results)
	sort.Slice(results, func(i, j int) bool { return results[i].Site < results[j].Site })

	return &SurveySummary{
		Sites:     p.processed,
		Succeeded: p.processed - p.errors,
		Failed:    p.errors,
		Skipped:   p.skipped,
		Results:   results,
		Elapsed:   elapsed,
	}
}

// PrintStartupInfo displays information about the survey before starting
func PrintStartupInfo(totalSites, totalImages int, options SurveyOptions) {
	fmt.Printf("Starting reef survey...\nSites to compare: %d (%d images)\n", totalSites, totalImages)
	fmt.Printf("Output directory: %s\n", options.OutputDir)
	fmt.Printf("Force rewrite mode: %v\n", options.ForceRewrite)

	if options.Site != "" {
		fmt.Printf("Site filter: %s\n", options.Site)
	}

	if options.DebugMode {
		fmt.Printf("Debug mode: enabled\n")
		logging.DebugLog("Found %d sites with %d images under %s", totalSites, totalImages, options.FolderPath)
	}
}

// PrintCompletionStats displays statistics after the survey completes
func PrintCompletionStats(summary *SurveySummary, options SurveyOptions) {
	if options.DebugMode {
		logging.DebugLog("Survey completed in %v. Sites: %d, Succeeded: %d, Failed: %d, Skipped: %d",
			summary.Elapsed, summary.Sites, summary.Succeeded, summary.Failed, summary.Skipped)
	}

	fmt.Println("\nSurvey complete.")
	fmt.Printf("Compared %d sites in %v.\n", summary.Sites, summary.Elapsed.Round(time.Second))

	for _, r := range summary.Results {
		switch {
		case !r.Success:
			fmt.Printf("  %-24s FAILED  %v\n", r.Site, r.Error)
		case r.Skipped:
			fmt.Printf("  %-24s skipped (unchanged, %d regions)\n", r.Site, r.Regions)
		default:
			fmt.Printf("  %-24s %d changed regions -> %s\n", r.Site, r.Regions, r.OutputPath)
		}
	}

	if summary.Failed > 0 {
		fmt.Printf("Encountered %d errors during the survey.\n", summary.Failed)
		fmt.Println("Check the log file for details.")
	}
}
