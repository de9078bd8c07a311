package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithDirRoutesErrorsToErrorLog(t *testing.T) {
	dir := t.TempDir()

	log, err := NewWithDir("warn", dir)
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept warning")
	log.Error("kept error")

	info, err := os.ReadFile(filepath.Join(dir, "info.log"))
	require.NoError(t, err)
	errorLog, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)

	assert.NotContains(t, string(info), "dropped")
	assert.Contains(t, string(info), "kept warning")
	assert.Contains(t, string(info), "kept error")
	assert.Equal(t, 1, strings.Count(string(errorLog), "\n"))
	assert.Contains(t, string(errorLog), "kept error")
}

func TestParseLevel(t *testing.T) {
	_, err := parseLevel("verbose")
	assert.Error(t, err)

	lvl, err := parseLevel("")
	require.NoError(t, err)
	assert.Equal(t, "INFO", lvl.Level().String())
}

func TestRequestIDFromContextIsLogged(t *testing.T) {
	dir := t.TempDir()
	log, err := NewWithDir("info", dir)
	require.NoError(t, err)

	ctx := WithRequestID(context.Background(), "req-42")
	log.InfoContext(ctx, "with id")
	log.Info("without id")

	info, err := os.ReadFile(filepath.Join(dir, "info.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(info)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"request_id":"req-42"`)
	assert.NotContains(t, lines[1], "request_id")
	assert.Empty(t, RequestID(context.Background()))
}
