package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestSetup_WritesJSONWithAppAttrs(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	Setup(&buf, config.AppConfig{Env: "test", LogLevel: "info"})
	slog.Debug("hidden")
	slog.Info("Tracking session started", "session_id", "s1")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Tracking session started", entry["msg"])
	assert.Equal(t, "attendance-tracker", entry["app"])
	assert.Equal(t, "test", entry["env"])
	assert.Equal(t, "s1", entry["session_id"])
}

func TestWriter_RotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.log")
	w := Writer(config.LogConfig{File: path, MaxSizeMB: 1})

	_, err := w.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}
