package scanner

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"reefwatch/database"
	"reefwatch/logging"
	"reefwatch/types"
)

// checkAndSkipIfUnchanged checks if a site can be skipped because its latest
// successful run already covers the same pair and neither photo changed since
func checkAndSkipIfUnchanged(db *sql.DB, pair types.SurveyPair, outputPath string, options SurveyOptions) *SiteResult {
	run, err := database.LatestRunFor(db, pair.Baseline.Path, pair.Current.Path)
	if err != nil {
		return &SiteResult{
			Site:  pair.Site,
			Error: fmt.Errorf("database error for %s: %w", pair.Site, err),
		}
	}
	if run == nil {
		return nil
	}

	storedTime, err := time.Parse(database.TimeLayout, run.CreatedAt)
	if err != nil {
		return &SiteResult{
			Site:  pair.Site,
			Error: fmt.Errorf("cannot parse stored time for %s: %w", pair.Site, err),
		}
	}

	for _, path := range []string{pair.Baseline.Path, pair.Current.Path} {
		fileInfo, err := os.Stat(path)
		if err != nil {
			return &SiteResult{
				Site:  pair.Site,
				Error: fmt.Errorf("cannot stat file %s: %w", path, err),
			}
		}
		if fileInfo.ModTime().After(storedTime) {
			return nil
		}
	}

	if run.OutputPath != outputPath {
		return nil
	}
	if _, err := os.Stat(outputPath); err != nil {
		return nil
	}

	if options.DebugMode {
		logging.DebugLog("Skipping unchanged site: %s (run %s)", pair.Site, run.ID)
	}
	return &SiteResult{
		Site:       pair.Site,
		Success:    true,
		Skipped:    true,
		RunID:      run.ID,
		Regions:    run.RegionCount,
		OutputPath: run.OutputPath,
	}
}
