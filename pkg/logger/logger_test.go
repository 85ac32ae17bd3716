package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewDefaultsToInfoOnUnparsableLevel(t *testing.T) {
	log, err := New(Config{Level: "not-a-level"}, "test-service")
	require.NoError(t, err)
	require.NotNil(t, log)
	require.True(t, log.Core().Enabled(zap.InfoLevel))
	require.False(t, log.Core().Enabled(zap.DebugLevel))
}

func TestNewWritesJSONToConfiguredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	log, err := New(Config{Level: "debug", Format: "json", OutputFile: path}, "bufferpool")
	require.NoError(t, err)

	log.Info("hello")
	require.NoError(t, log.Sync())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"service":"bufferpool"`)
	require.Contains(t, string(contents), "hello")
}

func TestNewConsoleFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	log, err := New(Config{Level: "warn", Format: "console", OutputFile: path}, "bufferpool")
	require.NoError(t, err)
	require.NotNil(t, log)
}
