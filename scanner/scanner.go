package scanner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"reefwatch/database"
	"reefwatch/imageio"
	"reefwatch/logging"
	"reefwatch/scanner/processor"
	"reefwatch/signalhandler"
	"reefwatch/types"
)

// DefaultOutputSuffix is appended to the site name of annotated images
const DefaultOutputSuffix = "_changes"

// DiscoverPairs walks options.FolderPath and returns one pair per site:
// every directory directly holding at least two images. The oldest photo
// by capture time is the baseline and the newest is the current image.
func DiscoverPairs(options SurveyOptions, metadata *imageio.MetadataReader) ([]types.SurveyPair, error) {
	var pairs []types.SurveyPair

	err := filepath.WalkDir(options.FolderPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == options.FolderPath {
				return err
			}
			logging.LogWarning("Error accessing path %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != options.FolderPath && len(d.Name()) > 0 && d.Name()[0] == '.' {
			return filepath.SkipDir
		}

		site := SiteName(options.FolderPath, path)
		if options.Site != "" && site != options.Site {
			return nil
		}

		images, err := ListSiteImages(path)
		if err != nil {
			logging.LogWarning("Cannot list %s: %v", path, err)
			return nil
		}
		if len(images) < 2 {
			if len(images) == 1 && options.DebugMode {
				logging.DebugLog("Site %s has a single image, nothing to compare", site)
			}
			return nil
		}

		infos, err := metadata.ReadAll(images...)
		if err != nil {
			logging.LogWarning("Cannot read capture info for site %s: %v", site, err)
			return nil
		}

		ordered := OrderByCaptureTime(images, infos)
		pairs = append(pairs, types.SurveyPair{
			Site:     site,
			Baseline: ordered[0],
			Current:  ordered[len(ordered)-1],
			Images:   len(ordered),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot walk %s: %w", options.FolderPath, err)
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Site < pairs[j].Site })
	return pairs, nil
}

// OrderByCaptureTime sorts images oldest first, breaking ties by path
func OrderByCaptureTime(images []string, infos map[string]types.CaptureInfo) []types.CaptureInfo {
	ordered := make([]types.CaptureInfo, 0, len(images))
	for _, path := range images {
		info, ok := infos[path]
		if !ok {
			info = types.CaptureInfo{Path: path}
		}
		ordered = append(ordered, info)
	}

	captured := func(c types.CaptureInfo) time.Time {
		t, err := time.Parse(time.RFC3339, c.CapturedAt)
		if err != nil {
			return time.Time{}
		}
		return t
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		ti, tj := captured(ordered[i]), captured(ordered[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return ordered[i].Path < ordered[j].Path
	})
	return ordered
}

// RunSurvey compares every discovered site with a bounded worker pool and
// records each run in db. A nil db disables both recording and skipping.
// Cancelling ctx stops scheduling new sites; sites in flight finish.
func RunSurvey(ctx context.Context, db *sql.DB, proc *processor.PairProcessor, options SurveyOptions) (*SurveySummary, error) {
	if options.OutputDir == "" {
		return nil, errors.New("survey needs an output directory")
	}
	if options.OutputSuffix == "" {
		options.OutputSuffix = DefaultOutputSuffix
	}

	metadata := imageio.NewMetadataReader()
	pairs, err := DiscoverPairs(options, metadata)
	metadata.Close()
	if err != nil {
		return nil, err
	}

	totalImages := 0
	for _, p := range pairs {
		totalImages += p.Images
	}
	PrintStartupInfo(len(pairs), totalImages, options)

	workers := options.MaxWorkers
	if workers <= 0 {
		workers = signalhandler.GetOptimalProcs()
	}

	// Initialize components for parallel processing
	var wg sync.WaitGroup
	resultsChan := make(chan SiteResult, len(pairs)+1)
	semaphore := make(chan struct{}, workers)

	tracker := NewProgressTracker(len(pairs), resultsChan, false)
	startTime := time.Now()

schedule:
	for i, pair := range pairs {
		if ctx.Err() != nil {
			logging.LogWarning("Survey interrupted, %d of %d sites not started", len(pairs)-i, len(pairs))
			break
		}
		select {
		case <-ctx.Done():
			logging.LogWarning("Survey interrupted, %d of %d sites not started", len(pairs)-i, len(pairs))
			break schedule
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(pair types.SurveyPair) {
			defer wg.Done()
			defer func() { <-semaphore }() // Release semaphore when done

			resultsChan <- processSite(db, proc, pair, options)
		}(pair)
	}

	// Wait for all processing to complete
	wg.Wait()
	close(resultsChan)
	tracker.Stop()

	summary := tracker.Summary(time.Since(startTime))
	PrintCompletionStats(summary, options)

	return summary, ctx.Err()
}

// processSite compares one site and stores the run
func processSite(db *sql.DB, proc *processor.PairProcessor, pair types.SurveyPair, options SurveyOptions) SiteResult {
	outputPath := OutputPathFor(options.OutputDir, pair.Site, options.OutputSuffix, pair.Current.Path)

	// Skip processing if the pair was already compared and hasn't been modified
	if db != nil && !options.ForceRewrite {
		if skipResult := checkAndSkipIfUnchanged(db, pair, outputPath, options); skipResult != nil {
			return *skipResult
		}
	}

	out := proc.Process(processor.PairRequest{
		Site:               pair.Site,
		BaselinePath:       pair.Baseline.Path,
		CurrentPath:        pair.Current.Path,
		OutputPath:         outputPath,
		BaselineCapturedAt: pair.Baseline.CapturedAt,
		CurrentCapturedAt:  pair.Current.CapturedAt,
	})

	result := SiteResult{
		Site:       pair.Site,
		Success:    out.Err == nil,
		Error:      out.Err,
		Regions:    len(out.Regions),
		OutputPath: out.Run.OutputPath,
	}

	if db != nil {
		if err := database.StoreRun(db, &out.Run, out.Regions); err != nil {
			result.Success = false
			result.Error = errors.Join(out.Err, fmt.Errorf("cannot store run for %s: %w", pair.Site, err))
		}
		result.RunID = out.Run.ID
	}

	return result
}
