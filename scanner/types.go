package scanner

import (
	"sync"
	"time"
)

// SurveyOptions defines the options for a batch survey
type SurveyOptions struct {
	FolderPath   string
	OutputDir    string
	Site         string // only survey this site when set
	OutputSuffix string
	ForceRewrite bool
	DebugMode    bool
	MaxWorkers   int // 0 sizes the pool from the CPU count
}

// SiteResult holds the result of processing one site
type SiteResult struct {
	Site       string
	Success    bool
	Skipped    bool
	Error      error
	RunID      string
	Regions    int
	OutputPath string
}

// SurveySummary aggregates the results of a survey
type SurveySummary struct {
	Sites     int
	Succeeded int
	Failed    int
	Skipped   int
	Results   []SiteResult
	Elapsed   time.Duration
}

// ProgressTracker tracks progress of the survey
type ProgressTracker struct {
	processed  int
	errors     int
	skipped    int
	totalSites int
	results    []SiteResult
	quiet      bool
	ticker     *time.Ticker
	done       chan struct{}
	drained    chan struct{}
	mu         sync.Mutex
}
