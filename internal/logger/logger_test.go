package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("warn", &buf)

	log.Info("hidden")
	log.Warn("shown", "key", "value")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown")
	require.Contains(t, out, "key=value")
	require.False(t, log.Enabled(slog.LevelInfo))
	require.True(t, log.Enabled(slog.LevelError))
}

func TestNew_JSONAndSetLevel(t *testing.T) {
	var buf bytes.Buffer
	parent := New(Options{Level: "error", Format: FormatJSON, Writer: &buf})
	child := parent.With("component", "test")

	child.Info("hidden")
	parent.SetLevel("debug")
	child.Debug("shown")
	parent.SetLevel("loud")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `"msg":"shown"`)
	require.Contains(t, out, `"component":"test"`)
	require.True(t, child.Enabled(slog.LevelDebug))
}

func TestParseLevel(t *testing.T) {
	level, ok := ParseLevel(" WARNING ")
	require.True(t, ok)
	require.Equal(t, slog.LevelWarn, level)

	level, ok = ParseLevel("verbose")
	require.False(t, ok)
	require.Equal(t, slog.LevelInfo, level)
}

func TestErrorLog_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "errors.log")
	elog := NewErrorLog(path, NewLogger("error"))

	at := time.Date(2025, time.June, 24, 20, 0, 0, 0, time.UTC)
	elog.Append(ErrorEntry{Time: at, URL: "https://x/1", Title: "Band", Err: errors.New("boom")})
	elog.Append(ErrorEntry{Time: at, URL: "https://x/2", Title: "Other", Err: errors.New("bang")})

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	require.Contains(t, content, "[2025-06-24T20:00:00Z] https://x/1 (Band)\nboom\n")
	require.Contains(t, content, "https://x/2 (Other)\nbang")
	require.Equal(t, 2, strings.Count(content, "\n\n"))
}

func TestErrorLog_Disabled(t *testing.T) {
	var nilLog *ErrorLog
	nilLog.Append(ErrorEntry{URL: "https://x/1"})

	NewErrorLog("", nil).Append(ErrorEntry{URL: "https://x/1"})
}
