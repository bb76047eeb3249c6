// Package config loads the reefwatch YAML configuration and provides the
// defaults used when no file is present.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"reefwatch/imageprocessor"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Pipeline parameters
	Pipeline struct {
		MedianKernel          int     `yaml:"medianKernel"`
		GaussianKernel        int     `yaml:"gaussianKernel"`
		MatchRatio            float64 `yaml:"matchRatio"`
		DiffThreshold         int     `yaml:"diffThreshold"`
		MinMatchCount         int     `yaml:"minMatchCount"`
		RansacReprojThreshold float64 `yaml:"ransacReprojThreshold"`
		RansacMaxIters        int     `yaml:"ransacMaxIters"`
		RansacConfidence      float64 `yaml:"ransacConfidence"`
		RansacSeed            int64   `yaml:"ransacSeed"`

		// Homography sanity checks, 0 disables
		MinInlierRatio     float64 `yaml:"minInlierRatio"`
		MaxConditionNumber float64 `yaml:"maxConditionNumber"`

		// ParallelExtraction extracts baseline and current features concurrently
		ParallelExtraction bool `yaml:"parallelExtraction"`

		// Backend is "opencv" or "native"
		Backend string `yaml:"backend"`
	} `yaml:"pipeline"`

	// Annotation of changed regions
	Annotation struct {
		// Color is R, G, B
		Color     []int `yaml:"color"`
		Thickness int   `yaml:"thickness"`
	} `yaml:"annotation"`

	// Output image encoding
	Output struct {
		JPEGQuality int `yaml:"jpegQuality"`
	} `yaml:"output"`

	// Run history
	Storage struct {
		// DatabasePath defaults to reefwatch.db next to the executable when empty
		DatabasePath string `yaml:"databasePath"`
		Record       bool   `yaml:"record"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
		JSON  bool   `yaml:"json"`
	} `yaml:"logging"`

	// Batch survey parameters
	Survey struct {
		// MaxWorkers of 0 sizes the pool from the CPU count
		MaxWorkers   int    `yaml:"maxWorkers"`
		OutputSuffix string `yaml:"outputSuffix"`
	} `yaml:"survey"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}
	p := imageprocessor.DefaultConfig()

	cfg.Pipeline.MedianKernel = p.MedianKernel
	cfg.Pipeline.GaussianKernel = p.GaussianKernel
	cfg.Pipeline.MatchRatio = p.MatchRatio
	cfg.Pipeline.DiffThreshold = p.DiffThreshold
	cfg.Pipeline.MinMatchCount = p.MinMatchCount
	cfg.Pipeline.RansacReprojThreshold = p.RansacReprojThreshold
	cfg.Pipeline.RansacMaxIters = p.RansacMaxIters
	cfg.Pipeline.RansacConfidence = p.RansacConfidence
	cfg.Pipeline.RansacSeed = p.RansacSeed
	cfg.Pipeline.ParallelExtraction = p.ParallelExtraction
	cfg.Pipeline.Backend = "opencv"

	cfg.Annotation.Color = []int{int(p.Style.Color.R), int(p.Style.Color.G), int(p.Style.Color.B)}
	cfg.Annotation.Thickness = p.Style.Thickness

	cfg.Output.JPEGQuality = 95

	cfg.Storage.Record = true

	cfg.Logging.Level = "info"

	cfg.Survey.OutputSuffix = "_changes"

	return cfg
}

// LoadConfig loads configuration from a YAML file. Keys absent from the
// file keep their defaults; a missing file yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile writes the defaults to configPath
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

// ToPipeline converts the pipeline and annotation sections into the
// settings the core pipeline consumes.
func (c *Config) ToPipeline() imageprocessor.Config {
	p := imageprocessor.Config{
		MedianKernel:          c.Pipeline.MedianKernel,
		GaussianKernel:        c.Pipeline.GaussianKernel,
		MatchRatio:            c.Pipeline.MatchRatio,
		DiffThreshold:         c.Pipeline.DiffThreshold,
		MinMatchCount:         c.Pipeline.MinMatchCount,
		RansacReprojThreshold: c.Pipeline.RansacReprojThreshold,
		RansacMaxIters:        c.Pipeline.RansacMaxIters,
		RansacConfidence:      c.Pipeline.RansacConfidence,
		RansacSeed:            c.Pipeline.RansacSeed,
		MinInlierRatio:        c.Pipeline.MinInlierRatio,
		MaxConditionNumber:    c.Pipeline.MaxConditionNumber,
		ParallelExtraction:    c.Pipeline.ParallelExtraction,
		Style: imageprocessor.BoxStyle{
			Thickness: c.Annotation.Thickness,
			Color:     color.RGBA{A: 255},
		},
	}
	if len(c.Annotation.Color) == 3 {
		p.Style.Color.R = uint8(c.Annotation.Color[0])
		p.Style.Color.G = uint8(c.Annotation.Color[1])
		p.Style.Color.B = uint8(c.Annotation.Color[2])
	}
	return p
}

// Validate checks every section, including the pipeline settings.
func (c *Config) Validate() error {
	if len(c.Annotation.Color) != 3 {
		return fmt.Errorf("%w: annotation color needs 3 components, got %d", imageprocessor.ErrInvalidConfig, len(c.Annotation.Color))
	}
	for _, v := range c.Annotation.Color {
		if v < 0 || v > 255 {
			return fmt.Errorf("%w: annotation color component %d out of range", imageprocessor.ErrInvalidConfig, v)
		}
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("%w: jpeg quality %d must be in [1, 100]", imageprocessor.ErrInvalidConfig, c.Output.JPEGQuality)
	}
	if c.Survey.MaxWorkers < 0 {
		return fmt.Errorf("%w: survey workers %d must not be negative", imageprocessor.ErrInvalidConfig, c.Survey.MaxWorkers)
	}
	switch c.Pipeline.Backend {
	case "", "opencv", "native":
	default:
		return fmt.Errorf("%w: unknown backend %q", imageprocessor.ErrInvalidConfig, c.Pipeline.Backend)
	}
	return c.ToPipeline().Validate()
}
