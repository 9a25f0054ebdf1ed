package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"fileflow-2024-01-01T00-00-00.000.log",
		"fileflow-2024-01-02T00-00-00.000.log",
		"fileflow-2024-01-03T00-00-00.000.log",
		"unrelated.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	require.NoError(t, cleanupOldLogs(dir, 2))

	left, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	var names []string
	for _, p := range left {
		names = append(names, filepath.Base(p))
	}
	assert.ElementsMatch(t, []string{
		"fileflow-2024-01-02T00-00-00.000.log",
		"fileflow-2024-01-03T00-00-00.000.log",
		"unrelated.txt",
	}, names)
}

func TestNewLogger_TeesToFile(t *testing.T) {
	dir := t.TempDir()
	logger, closer, err := NewLogger("prod", dir, 3)
	require.NoError(t, err)

	logger.Info("hello", "node_id", "n1")
	require.NoError(t, closer.Close())

	files, err := filepath.Glob(filepath.Join(dir, logFilePattern))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"node_id":"n1"`)
}
