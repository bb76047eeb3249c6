package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"reefwatch/config"
)

// Commands understood by the driver
var Commands = []string{"compare", "survey", "history", "config"}

// ParseArguments converts command-line arguments into a map of flags and values
func ParseArguments() map[string]string {
	return ParseArgs(os.Args[1:])
}

// ParseArgs converts argv (without the program name) into a map of flags
// and values. The first recognised command is stored under "command".
func ParseArgs(argv []string) map[string]string {
	args := make(map[string]string)

	// First, identify the command
	commandIndex := -1
	for i, arg := range argv {
		if isCommand(arg) {
			args["command"] = arg
			commandIndex = i
			break
		}
	}

	// Process all arguments, skipping the command
	for i := 0; i < len(argv); i++ {
		if i == commandIndex {
			continue
		}

		arg := argv[i]

		// Handle flags with equals sign (--key=value)
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			flagName := strings.TrimPrefix(parts[0], "--")
			args[flagName] = parts[1]
			continue
		}

		// Handle flags without equals sign (--key value)
		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Check if this is a boolean flag (no value)
			if i+1 >= len(argv) || strings.HasPrefix(argv[i+1], "--") || i+1 == commandIndex {
				args[flagName] = "true"
			} else {
				// The next argument is the value
				args[flagName] = argv[i+1]
				i++ // Skip the value in the next iteration
			}
		}
	}

	return args
}

func isCommand(arg string) bool {
	for _, c := range Commands {
		if arg == c {
			return true
		}
	}
	return false
}

// GetDefaultDatabasePath returns the default path for the database file
func GetDefaultDatabasePath() string {
	// Get the executable path
	exePath, err := os.Executable()
	if err != nil {
		// Fallback to current directory if executable path can't be determined
		return "reefwatch.db"
	}

	// Return the default database path next to the executable
	return filepath.Join(filepath.Dir(exePath), "reefwatch.db")
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage() {
	fmt.Printf("Usage:\n")
	fmt.Printf("  %s compare --baseline=PATH --current=PATH --output=PATH [--site=NAME] [options]\n", os.Args[0])
	fmt.Printf("  %s survey --folder=PATH --output-dir=PATH [--site=NAME] [--force] [--workers=N] [options]\n", os.Args[0])
	fmt.Printf("  %s history [--site=NAME] [--limit=N] [--database=PATH] [--json]\n", os.Args[0])
	fmt.Printf("  %s config --write=PATH\n", os.Args[0])
	fmt.Printf("\nParameters:\n")
	fmt.Printf("  --baseline    : Earlier photograph of the site\n")
	fmt.Printf("  --current     : Later photograph of the site; the output has its size\n")
	fmt.Printf("  --output      : Annotated image to write (.jpg, .png, .bmp or .tif)\n")
	fmt.Printf("  --folder      : Survey root; every directory with two or more photos is a site\n")
	fmt.Printf("  --output-dir  : Directory for annotated survey images\n")
	fmt.Printf("  --site        : Site name recorded in history, or the site to survey\n")
	fmt.Printf("  --config      : YAML configuration file\n")
	fmt.Printf("  --database    : Path to history database (default: %s)\n", GetDefaultDatabasePath())
	fmt.Printf("  --ratio       : Lowe ratio for match filtering (0-1, default: 0.7)\n")
	fmt.Printf("  --threshold   : Difference threshold, changed when above (0-254, default: 30)\n")
	fmt.Printf("  --min-matches : Good matches required to align (default: 10)\n")
	fmt.Printf("  --backend     : opencv or native (default: opencv)\n")
	fmt.Printf("  --workers     : Concurrent sites during a survey (default: 3/4 of CPUs)\n")
	fmt.Printf("  --force       : Re-compare sites whose photos have not changed\n")
	fmt.Printf("  --no-record   : Do not store the run in history\n")
	fmt.Printf("  --debug       : Enable debug logging\n")
	fmt.Printf("  --logfile     : Append log output to this file\n")
	fmt.Printf("  --json-log    : Write log entries as JSON\n")
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  %s compare --baseline=2023/north.jpg --current=2024/north.jpg --output=north_changes.jpg --site=north\n", os.Args[0])
	fmt.Printf("  %s survey --folder=/data/reef --output-dir=/data/reef-changes --workers=4\n", os.Args[0])
}

// ParseRatio parses the Lowe ratio, which must lie in (0, 1]
func ParseRatio(ratioStr string) (float64, error) {
	ratio, err := strconv.ParseFloat(strings.TrimSpace(ratioStr), 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		return 0, fmt.Errorf("invalid ratio value '%s', want a number in (0, 1]", ratioStr)
	}
	return ratio, nil
}

// ParseThreshold parses the difference threshold, 0 to 254
func ParseThreshold(thresholdStr string) (int, error) {
	threshold, err := strconv.Atoi(strings.TrimSpace(thresholdStr))
	if err != nil || threshold < 0 || threshold > 254 {
		return 0, fmt.Errorf("invalid threshold value '%s', want an integer from 0 to 254", thresholdStr)
	}
	return threshold, nil
}

// ParsePositiveInt parses a flag value that must be at least 1
func ParsePositiveInt(name, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid --%s value '%s', want a positive integer", name, value)
	}
	return n, nil
}

// ApplyOverrides copies command-line flags over values loaded from the
// configuration file
func ApplyOverrides(cfg *config.Config, args map[string]string) error {
	if v, ok := args["ratio"]; ok {
		ratio, err := ParseRatio(v)
		if err != nil {
			return err
		}
		cfg.Pipeline.MatchRatio = ratio
	}
	if v, ok := args["threshold"]; ok {
		threshold, err := ParseThreshold(v)
		if err != nil {
			return err
		}
		cfg.Pipeline.DiffThreshold = threshold
	}
	if v, ok := args["min-matches"]; ok {
		n, err := ParsePositiveInt("min-matches", v)
		if err != nil {
			return err
		}
		cfg.Pipeline.MinMatchCount = n
	}
	if v, ok := args["workers"]; ok {
		n, err := ParsePositiveInt("workers", v)
		if err != nil {
			return err
		}
		cfg.Survey.MaxWorkers = n
	}
	if v, ok := args["backend"]; ok {
		cfg.Pipeline.Backend = v
	}
	if v, ok := args["database"]; ok && v != "" {
		cfg.Storage.DatabasePath = v
	}
	if _, ok := args["no-record"]; ok {
		cfg.Storage.Record = false
	}
	if _, ok := args["debug"]; ok {
		cfg.Logging.Level = "debug"
	}
	if v, ok := args["logfile"]; ok && v != "" && v != "true" {
		cfg.Logging.File = v
	}
	if _, ok := args["json-log"]; ok {
		cfg.Logging.JSON = true
	}

	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = GetDefaultDatabasePath()
	}
	return cfg.Validate()
}
