package utils

import (
	"testing"

	"reefwatch/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsForms(t *testing.T) {
	args := ParseArgs([]string{"--debug", "compare", "--baseline=a.jpg", "--current", "b.jpg", "--output", "out.png", "--no-record"})

	assert.Equal(t, "compare", args["command"])
	assert.Equal(t, "a.jpg", args["baseline"])
	assert.Equal(t, "b.jpg", args["current"])
	assert.Equal(t, "out.png", args["output"])
	assert.Equal(t, "true", args["debug"])
	assert.Equal(t, "true", args["no-record"])
}

func TestParseArgsWithoutCommand(t *testing.T) {
	args := ParseArgs([]string{"--folder=/reef"})
	_, ok := args["command"]
	assert.False(t, ok)
	assert.Equal(t, "/reef", args["folder"])
}

func TestParseArgsValueContainingEquals(t *testing.T) {
	args := ParseArgs([]string{"history", "--site=north=wall"})
	assert.Equal(t, "history", args["command"])
	assert.Equal(t, "north=wall", args["site"])
}

func TestParseRatio(t *testing.T) {
	v, err := ParseRatio("0.75")
	require.NoError(t, err)
	assert.Equal(t, 0.75, v)

	_, err = ParseRatio("1")
	assert.NoError(t, err)
	for _, bad := range []string{"0", "-0.1", "1.01", "abc"} {
		_, err := ParseRatio(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseThreshold(t *testing.T) {
	v, err := ParseThreshold(" 31 ")
	require.NoError(t, err)
	assert.Equal(t, 31, v)

	for _, bad := range []string{"-1", "255", "3.5", ""} {
		_, err := ParseThreshold(bad)
		assert.Error(t, err, bad)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	err := ApplyOverrides(cfg, map[string]string{
		"ratio":       "0.8",
		"threshold":   "40",
		"min-matches": "25",
		"backend":     "native",
		"database":    "/tmp/h.db",
		"no-record":   "true",
		"debug":       "true",
		"json-log":    "true",
		"workers":     "3",
	})
	require.NoError(t, err)

	assert.Equal(t, 0.8, cfg.Pipeline.MatchRatio)
	assert.Equal(t, 40, cfg.Pipeline.DiffThreshold)
	assert.Equal(t, 25, cfg.Pipeline.MinMatchCount)
	assert.Equal(t, "native", cfg.Pipeline.Backend)
	assert.Equal(t, "/tmp/h.db", cfg.Storage.DatabasePath)
	assert.False(t, cfg.Storage.Record)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
	assert.Equal(t, 3, cfg.Survey.MaxWorkers)
}

func TestApplyOverridesDefaultsDatabasePath(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, ApplyOverrides(cfg, map[string]string{}))
	assert.Equal(t, GetDefaultDatabasePath(), cfg.Storage.DatabasePath)
}

func TestApplyOverridesRejectsBadValues(t *testing.T) {
	assert.Error(t, ApplyOverrides(config.DefaultConfig(), map[string]string{"ratio": "2"}))
	assert.Error(t, ApplyOverrides(config.DefaultConfig(), map[string]string{"backend": "cuda"}))
	assert.Error(t, ApplyOverrides(config.DefaultConfig(), map[string]string{"workers": "0"}))
}
