package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"reefwatch/config"
	"reefwatch/cv"
	"reefwatch/database"
	"reefwatch/imageio"
	"reefwatch/imageprocessor"
	"reefwatch/logging"
	"reefwatch/scanner"
	"reefwatch/scanner/processor"
	"reefwatch/signalhandler"
	"reefwatch/types"
	"reefwatch/utils"
)

// Exit codes
const (
	exitOK          = 0
	exitError       = 1
	exitNoAlignment = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command line arguments into a map
	args := utils.ParseArguments()

	command, hasCommand := args["command"]

	// Check if required arguments are missing
	showUsage := !hasCommand
	switch command {
	case "compare":
		showUsage = args["baseline"] == "" || args["current"] == "" || args["output"] == ""
	case "survey":
		showUsage = args["folder"] == "" || args["output-dir"] == ""
	case "config":
		showUsage = args["write"] == "" || args["write"] == "true"
	}

	if showUsage {
		utils.PrintUsage()
		return exitError
	}

	if command == "config" {
		return handleConfigCommand(args)
	}

	cfg, err := config.LoadConfig(args["config"])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return exitError
	}
	if err := utils.ApplyOverrides(cfg, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	if err := logging.SetupLogger(logging.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
		JSON:  cfg.Logging.JSON,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to setup logging: %v\n", err)
	}
	defer logging.CloseLogger()

	// Set up proper signal handling
	ctx, cancel := signalhandler.SetupHandler(context.Background())
	defer cancel()

	switch command {
	case "compare":
		return handleCompareCommand(args, cfg)
	case "survey":
		return handleSurveyCommand(ctx, args, cfg)
	case "history":
		return handleHistoryCommand(args, cfg)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		utils.PrintUsage()
		return exitError
	}
}

func handleConfigCommand(args map[string]string) int {
	path := args["write"]
	if err := config.CreateDefaultConfigFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	fmt.Printf("Default configuration written to %s\n", path)
	return exitOK
}

// newPairProcessor builds the pipeline for the configured backend
func newPairProcessor(cfg *config.Config) (*processor.PairProcessor, error) {
	pcfg := cfg.ToPipeline()
	caps, err := cv.NewBackend(cfg.Pipeline.Backend, pcfg)
	if err != nil {
		return nil, err
	}
	pipeline, err := imageprocessor.NewPipeline(pcfg, caps)
	if err != nil {
		return nil, err
	}

	backend := cfg.Pipeline.Backend
	if backend == "" {
		backend = cv.BackendOpenCV
	}
	return processor.NewPairProcessor(pipeline, backend, cfg.Output.JPEGQuality, logging.IsDebug()), nil
}

// openHistory initializes the history database, retrying briefly when
// another process holds the lock
func openHistory(dbPath string) (*sql.DB, error) {
	var db *sql.DB
	var err error

	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		db, err = database.InitDatabase(dbPath)
		if err == nil {
			return db, nil
		}
		if i < maxRetries-1 {
			logging.LogWarning("Error initializing database (attempt %d/%d): %v - retrying...", i+1, maxRetries, err)
			time.Sleep(time.Second * time.Duration(i+1))
		}
	}
	return nil, fmt.Errorf("error initializing database after %d attempts: %w", maxRetries, err)
}

func handleCompareCommand(args map[string]string, cfg *config.Config) int {
	for _, key := range []string{"baseline", "current"} {
		if _, err := os.Stat(args[key]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s image is not accessible: %v\n", key, err)
			return exitError
		}
	}

	proc, err := newPairProcessor(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	req := processor.PairRequest{
		Site:         args["site"],
		BaselinePath: args["baseline"],
		CurrentPath:  args["current"],
		OutputPath:   args["output"],
	}
	if infos, err := imageio.ReadCaptureInfo(req.BaselinePath, req.CurrentPath); err == nil {
		req.BaselineCapturedAt = infos[req.BaselinePath].CapturedAt
		req.CurrentCapturedAt = infos[req.CurrentPath].CapturedAt
	} else {
		logging.LogWarning("Cannot read capture times: %v", err)
	}

	startTime := time.Now()
	out := proc.Process(req)

	if cfg.Storage.Record {
		db, err := openHistory(cfg.Storage.DatabasePath)
		if err != nil {
			logging.LogError("Run not recorded: %v", err)
		} else {
			if err := database.StoreRun(db, &out.Run, out.Regions); err != nil {
				logging.LogError("Run not recorded: %v", err)
			}
			db.Close()
		}
	}

	if _, ok := args["json"]; ok {
		printJSON(struct {
			Run     types.RunRecord      `json:"run"`
			Regions []types.RegionRecord `json:"regions"`
		}{out.Run, out.Regions})
	}

	if out.Err != nil {
		logging.LogPairProcessed(req.Site, false, out.Err.Error())
		fmt.Fprintf(os.Stderr, "Error: %v\n", out.Err)

		var insufficient *imageprocessor.InsufficientEvidenceError
		var degenerate *imageprocessor.DegenerateTransformError
		if errors.As(out.Err, &insufficient) || errors.As(out.Err, &degenerate) {
			return exitNoAlignment
		}
		return exitError
	}
	logging.LogPairProcessed(req.Site, true, "")

	if _, ok := args["json"]; !ok {
		fmt.Printf("Aligned with %d inliers from %d good matches (%d/%d keypoints).\n",
			out.Run.Inliers, out.Run.GoodMatches, out.Run.KeypointsBaseline, out.Run.KeypointsCurrent)
		fmt.Printf("Changed regions: %d (%d pixels)\n", len(out.Regions), out.Run.ChangedPixels)
		for _, r := range out.Regions {
			fmt.Printf("  #%d x=%d y=%d w=%d h=%d area=%d\n", r.Index+1, r.X, r.Y, r.Width, r.Height, r.Area)
		}
		fmt.Printf("Annotated image: %s\n", req.OutputPath)
		fmt.Printf("Total execution time: %v\n", time.Since(startTime).Round(time.Millisecond))
	}
	return exitOK
}

func handleSurveyCommand(ctx context.Context, args map[string]string, cfg *config.Config) int {
	folderPath := args["folder"]

	// Verify folder path exists and is accessible
	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot access folder path: %s (%v)\n", folderPath, err)
		return exitError
	}
	if !folderInfo.IsDir() {
		fmt.Fprintf(os.Stderr, "Path is not a directory: %s\n", folderPath)
		return exitError
	}

	proc, err := newPairProcessor(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	var db *sql.DB
	if cfg.Storage.Record {
		db, err = openHistory(cfg.Storage.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitError
		}
		defer db.Close()
	}

	_, force := args["force"]
	options := scanner.SurveyOptions{
		FolderPath:   folderPath,
		OutputDir:    args["output-dir"],
		Site:         args["site"],
		OutputSuffix: cfg.Survey.OutputSuffix,
		ForceRewrite: force,
		DebugMode:    logging.IsDebug(),
		MaxWorkers:   cfg.Survey.MaxWorkers,
	}

	summary, err := scanner.RunSurvey(ctx, db, proc, options)
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Println("Survey interrupted.")
		return exitInterrupted
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	if db != nil {
		fmt.Printf("Database: %s\n", cfg.Storage.DatabasePath)
	}
	if summary.Failed > 0 {
		return exitError
	}
	return exitOK
}

func handleHistoryCommand(args map[string]string, cfg *config.Config) int {
	dbPath := cfg.Storage.DatabasePath
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Database does not exist: %s. Run compare or survey first.\n", dbPath)
		return exitError
	}

	db, err := database.OpenDatabase(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		return exitError
	}
	defer db.Close()

	_, asJSON := args["json"]

	if id := args["run"]; id != "" {
		run, regions, err := database.GetRun(db, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitError
		}
		if asJSON {
			printJSON(struct {
				Run     *types.RunRecord     `json:"run"`
				Regions []types.RegionRecord `json:"regions"`
			}{run, regions})
			return exitOK
		}
		printRun(*run)
		for _, r := range regions {
			fmt.Printf("    region #%d x=%d y=%d w=%d h=%d area=%d\n", r.Index+1, r.X, r.Y, r.Width, r.Height, r.Area)
		}
		return exitOK
	}

	limit := 20
	if v, ok := args["limit"]; ok {
		limit, err = utils.ParsePositiveInt("limit", v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitError
		}
	}

	runs, err := database.ListRuns(db, args["site"], limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	if asJSON {
		printJSON(runs)
		return exitOK
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
	}
	for _, run := range runs {
		printRun(run)
	}

	stats, err := database.GetHistoryStats(db, args["site"])
	if err == nil && stats != nil {
		fmt.Printf("\nSummary:\n")
		fmt.Printf("- Total runs: %d (%d succeeded, %d failed)\n", stats.TotalRuns, stats.Succeeded, stats.Failed)
		fmt.Printf("- Sites: %d\n", stats.Sites)
		fmt.Printf("- Changed regions recorded: %d\n", stats.Regions)
	}
	return exitOK
}

func printRun(run types.RunRecord) {
	site := run.Site
	if site == "" {
		site = "-"
	}
	fmt.Printf("%s  %-20s %-9s regions=%-4d matches=%-5d inliers=%-5d %s\n",
		run.CreatedAt, site, run.Status, run.RegionCount, run.GoodMatches, run.Inliers, run.ID)
	fmt.Printf("    %s -> %s\n", run.BaselinePath, run.CurrentPath)
	if run.Error != "" {
		fmt.Printf("    error: %s\n", run.Error)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logging.LogError("Cannot encode JSON output: %v", err)
	}
}
