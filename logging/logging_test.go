package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerWritesToConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	saved := stderr
	stderr = &console
	t.Cleanup(func() {
		CloseLogger()
		stderr = saved
		logger.SetOutput(stderr)
	})

	path := filepath.Join(t.TempDir(), "reefwatch.log")
	require.NoError(t, SetupLogger(Options{Level: "info", File: path}))

	LogInfo("surveyed %d sites", 3)
	LogPairProcessed("north", false, "no matches")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, out := range []string{console.String(), string(data)} {
		assert.Contains(t, out, "surveyed 3 sites")
		assert.Contains(t, out, "FAILED")
		assert.Contains(t, out, "site=north")
	}
}

func TestSetupLoggerRejectsUnknownLevel(t *testing.T) {
	t.Cleanup(CloseLogger)
	err := SetupLogger(Options{Level: "chatty"})
	assert.ErrorContains(t, err, "invalid log level")
}
