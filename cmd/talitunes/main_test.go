package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/talitunes/internal/infra/config"
)

func TestPrintEngines(t *testing.T) {
	var buf bytes.Buffer
	printEngines(&buf)

	assert.Contains(t, buf.String(), "Available Engines:")
	assert.Contains(t, buf.String(), "  beep\n")
	assert.Contains(t, buf.String(), "  null\n")
}

func TestPrintFilters(t *testing.T) {
	var buf bytes.Buffer
	printFilters(&buf)

	out := buf.String()
	assert.Contains(t, out, "duplicate_track_filter")
	assert.Contains(t, out, "duration_limit_filter")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("duplicate_track_filter")), bytes.Index(buf.Bytes(), []byte("duration_limit_filter")))
}

func TestProbeFiles_Failures(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("hello"), 0o600))

	var buf bytes.Buffer
	failed := probeFiles(&buf, []string{notes, filepath.Join(dir, "missing.mp3")})

	assert.Equal(t, 2, failed)
	assert.Contains(t, buf.String(), notes+": error: ")
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()

	*verbose = true
	*logfile = "/tmp/talitunes.log"
	*engineName = "null"
	*httpAddr = "127.0.0.1:7070"
	t.Cleanup(func() {
		*verbose = false
		*logfile = ""
		*engineName = ""
		*httpAddr = ""
	})

	applyFlags(cfg)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/talitunes.log", cfg.Log.Output)
	assert.Equal(t, "null", cfg.Audio.Engine)
	assert.True(t, cfg.HTTPEnabled())
}

func TestExecuteHooks(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "started")

	executeHooks([]string{"false", "touch " + marker}, "on_started")

	_, err := os.Stat(marker)
	assert.NoError(t, err, "a failing hook does not stop the rest")
	executeHooks(nil, "on_stopped")
}
