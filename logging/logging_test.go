package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerLoggerWritesToFile(t *testing.T) {
	dir := t.TempDir()

	options := DefaultOptions()
	options.Console = false

	logger, closer, err := NewWorkerLogger("w1", dir, options)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("hello", "cycle", 1)

	data, err := os.ReadFile(filepath.Join(dir, "w1.log"))
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "msg=hello")
	assert.Contains(t, out, "cycle=1")
	assert.Contains(t, out, "level=INFO")
}

func TestNewWorkerLoggerLevelFiltering(t *testing.T) {
	dir := t.TempDir()

	options := DefaultOptions()
	options.Console = false

	logger, closer, err := NewWorkerLogger("w1", dir, options)
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug("hidden")
	logger.Info("visible")

	data, err := os.ReadFile(filepath.Join(dir, "w1.log"))
	require.NoError(t, err)

	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible")
}

func TestNewWorkerLoggerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	options := DefaultOptions()
	options.Console = false

	logger, closer, err := NewWorkerLogger("w1", dir, options)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("first line")

	_, err = os.Stat(filepath.Join(dir, "w1.log"))
	assert.NoError(t, err)
}

func TestDefaultOptions(t *testing.T) {
	options := DefaultOptions()
	assert.Equal(t, 10, options.MaxSizeMB)
	assert.Equal(t, 5, options.MaxBackups)
	assert.True(t, options.Console)
}
