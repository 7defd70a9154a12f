package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)

	_, err = ParseLevel("chatty")
	require.Error(t, err)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "crate.log")
	log, closeLog, err := New(path, "warn")
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("drop failed", "source", "1")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "drop failed")
	assert.Contains(t, string(data), "source=1")
}

func TestNewWithoutPathDiscards(t *testing.T) {
	log, closeLog, err := New("", "nonsense")
	require.NoError(t, err)
	log.Error("nowhere")
	require.NoError(t, closeLog())
}

func TestNewWriter(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf, slog.LevelInfo).Info("reconciled", "items", 3)
	assert.Contains(t, buf.String(), "items=3")
}
