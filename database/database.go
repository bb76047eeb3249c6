package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reefwatch/logging"
	"reefwatch/types"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// TimeLayout is RFC 3339 with fixed-width microseconds so stored timestamps
// sort lexically.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// InitDatabase initializes and returns a database connection
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		site TEXT,
		baseline_path TEXT NOT NULL,
		current_path TEXT NOT NULL,
		output_path TEXT,
		baseline_captured_at TEXT,
		current_captured_at TEXT,
		width INTEGER,
		height INTEGER,
		keypoints_baseline INTEGER,
		keypoints_current INTEGER,
		good_matches INTEGER,
		inliers INTEGER,
		homography TEXT,
		region_count INTEGER,
		changed_pixels INTEGER,
		status TEXT NOT NULL,
		error TEXT,
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS regions (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		idx INTEGER NOT NULL,
		x INTEGER,
		y INTEGER,
		width INTEGER,
		height INTEGER,
		area INTEGER,
		PRIMARY KEY(run_id, idx)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_site ON runs(site);
	CREATE INDEX IF NOT EXISTS idx_runs_current ON runs(current_path);`

	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating schema: %w", err)
	}

	// Columns added after the first schema version
	for _, col := range []struct{ name, ddl string }{
		{"backend", "ALTER TABLE runs ADD COLUMN backend TEXT;"},
		{"duration_ms", "ALTER TABLE runs ADD COLUMN duration_ms INTEGER;"},
	} {
		var hasColumn bool
		err = db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('runs') WHERE name=?", col.name).Scan(&hasColumn)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("error checking for %s column: %w", col.name, err)
		}
		if hasColumn {
			continue
		}
		if _, err = db.Exec(col.ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("error adding %s column: %w", col.name, err)
		}
		logging.DebugLog("Added '%s' column to existing database schema", col.name)
	}

	return db, nil
}

// OpenDatabase opens an existing database connection
func OpenDatabase(dbPath string) (*sql.DB, error) {
	return sql.Open("sqlite3", dbPath)
}

// NewRunID returns a fresh random run identifier
func NewRunID() string {
	return uuid.NewString()
}

// StoreRun stores a run and its regions in one transaction. An empty ID or
// creation time is filled in on the record.
func StoreRun(db *sql.DB, run *types.RunRecord, regions []types.RegionRecord) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.CreatedAt == "" {
		run.CreatedAt = time.Now().UTC().Format(TimeLayout)
	}

	homography, err := json.Marshal(run.Homography)
	if err != nil {
		return fmt.Errorf("cannot encode homography for run %s: %w", run.ID, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("cannot begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (
			id, site, baseline_path, current_path, output_path, baseline_captured_at, current_captured_at,
			width, height, keypoints_baseline, keypoints_current, good_matches, inliers, homography,
			region_count, changed_pixels, status, error, backend, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Site, run.BaselinePath, run.CurrentPath, run.OutputPath,
		run.BaselineCapturedAt, run.CurrentCapturedAt,
		run.Width, run.Height, run.KeypointsBaseline, run.KeypointsCurrent, run.GoodMatches, run.Inliers,
		string(homography), run.RegionCount, run.ChangedPixels, run.Status, run.Error,
		run.Backend, run.DurationMillis, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("cannot insert run %s: %w", run.ID, err)
	}

	if len(regions) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO regions (run_id, idx, x, y, width, height, area) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("cannot prepare region statement: %w", err)
		}
		defer stmt.Close()

		for i, r := range regions {
			if _, err := stmt.Exec(run.ID, i, r.X, r.Y, r.Width, r.Height, r.Area); err != nil {
				return fmt.Errorf("cannot insert region %d of run %s: %w", i, run.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cannot commit run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `id, COALESCE(site, ''), baseline_path, current_path, COALESCE(output_path, ''),
	COALESCE(baseline_captured_at, ''), COALESCE(current_captured_at, ''),
	COALESCE(width, 0), COALESCE(height, 0), COALESCE(keypoints_baseline, 0), COALESCE(keypoints_current, 0),
	COALESCE(good_matches, 0), COALESCE(inliers, 0), COALESCE(homography, ''),
	COALESCE(region_count, 0), COALESCE(changed_pixels, 0), status, COALESCE(error, ''),
	COALESCE(backend, ''), COALESCE(duration_ms, 0), created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (types.RunRecord, error) {
	var run types.RunRecord
	var homography string
	err := row.Scan(
		&run.ID, &run.Site, &run.BaselinePath, &run.CurrentPath, &run.OutputPath,
		&run.BaselineCapturedAt, &run.CurrentCapturedAt,
		&run.Width, &run.Height, &run.KeypointsBaseline, &run.KeypointsCurrent,
		&run.GoodMatches, &run.Inliers, &homography,
		&run.RegionCount, &run.ChangedPixels, &run.Status, &run.Error,
		&run.Backend, &run.DurationMillis, &run.CreatedAt,
	)
	if err != nil {
		return run, err
	}
	if homography != "" {
		if err := json.Unmarshal([]byte(homography), &run.Homography); err != nil {
			return run, fmt.Errorf("corrupt homography for run %s: %w", run.ID, err)
		}
	}
	return run, nil
}

// GetRun returns a run and its regions in drawing order
func GetRun(db *sql.DB, id string) (*types.RunRecord, []types.RegionRecord, error) {
	run, err := scanRun(db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read run %s: %w", id, err)
	}

	rows, err := db.Query("SELECT run_id, idx, x, y, width, height, area FROM regions WHERE run_id = ? ORDER BY idx", id)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read regions of run %s: %w", id, err)
	}
	defer rows.Close()

	var regions []types.RegionRecord
	for rows.Next() {
		var r types.RegionRecord
		if err := rows.Scan(&r.RunID, &r.Index, &r.X, &r.Y, &r.Width, &r.Height, &r.Area); err != nil {
			return nil, nil, fmt.Errorf("cannot scan region of run %s: %w", id, err)
		}
		regions = append(regions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return &run, regions, nil
}

// ListRuns returns runs newest first, optionally filtered by site. A limit
// of 0 or less returns every run.
func ListRuns(db *sql.DB, site string, limit int) ([]types.RunRecord, error) {
	query := "SELECT " + runColumns + " FROM runs"
	var args []interface{}

	if site != "" {
		query += " WHERE site = ?"
		args = append(args, site)
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot list runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("cannot scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestRunFor returns the most recent successful run over exactly this
// pair of images, or nil when there is none.
func LatestRunFor(db *sql.DB, baselinePath, currentPath string) (*types.RunRecord, error) {
	run, err := scanRun(db.QueryRow(
		"SELECT "+runColumns+" FROM runs WHERE baseline_path = ? AND current_path = ? AND status = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		baselinePath, currentPath, types.StatusSucceeded,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("database error for %s: %w", currentPath, err)
	}
	return &run, nil
}

// HistoryStats summarises the stored runs
type HistoryStats struct {
	TotalRuns int
	Succeeded int
	Failed    int
	Sites     int
	Regions   int
}

// GetHistoryStats retrieves statistics about stored runs, optionally for
// one site
func GetHistoryStats(db *sql.DB, site string) (*HistoryStats, error) {
	var stats HistoryStats

	where := ""
	var args []interface{}
	if site != "" {
		where = " WHERE site = ?"
		args = append(args, site)
	}

	err := db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'succeeded' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT site),
			COALESCE(SUM(region_count), 0)
		FROM runs`+where, args...).Scan(&stats.TotalRuns, &stats.Succeeded, &stats.Failed, &stats.Sites, &stats.Regions)
	if err != nil {
		return nil, fmt.Errorf("failed to get history stats: %w", err)
	}

	return &stats, nil
}
