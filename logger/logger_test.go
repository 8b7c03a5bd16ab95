package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(slog.LevelDebug, FormatJSON, buf)

	l.Debug("node added", "name", "crate")
	l.Info("history recorded", "len", 1)
	l.Warn("event dropped", "event", "undo")
	l.Error("store failed", "error", "disk full")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 4)
	for i, level := range []string{"DEBUG", "INFO", "WARN", "ERROR"} {
		assert.Equal(t, level, entries[i]["level"])
	}
	assert.Equal(t, "crate", entries[0]["name"])

	buf.Reset()
	l.SetLevel(slog.LevelWarn)
	assert.Equal(t, slog.LevelWarn, l.Level())
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown")
	assert.Len(t, decodeLines(t, buf), 2)
}

func TestTextFormatAndMultipleOutputs(t *testing.T) {
	text := &bytes.Buffer{}
	New(slog.LevelInfo, FormatText, text).Info("animation begun", "node", "pump")
	assert.Contains(t, text.String(), "animation begun")
	assert.Contains(t, text.String(), "node=pump")

	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	l := New(slog.LevelInfo, FormatJSON, a)
	l.AddOutput(b)
	l.Info("saved", "document", "plant")
	assert.Equal(t, a.String(), b.String())

	a.Reset()
	l.SetFormat(FormatText)
	l.Info("saved", "document", "plant")
	assert.Contains(t, a.String(), "document=plant")
}

func TestRotateKeepsConsole(t *testing.T) {
	previous := Default()
	defer SetDefault(previous)

	dir := t.TempDir()
	first := filepath.Join(dir, "logs", "twinscene.log")
	second := filepath.Join(dir, "logs", "twinscene.1.log")
	console := &bytes.Buffer{}

	require.NoError(t, Init(slog.LevelInfo, FormatJSON, console, first))
	defer Default().Close()

	Info("before rotate")
	require.NoError(t, Default().Rotate(second))
	Info("after rotate")

	old, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Contains(t, string(old), "before rotate")
	assert.NotContains(t, string(old), "after rotate")

	current, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(current), "after rotate")
	assert.Contains(t, console.String(), "after rotate")
}

func TestInitWithoutWriters(t *testing.T) {
	previous := Default()
	defer SetDefault(previous)

	require.NoError(t, Init(slog.LevelInfo, FormatText, nil, ""))
	Info("discarded")
}

func TestPackageHelpersUseDefault(t *testing.T) {
	previous := Default()
	defer SetDefault(previous)

	buf := &bytes.Buffer{}
	SetDefault(New(slog.LevelDebug, FormatText, buf))
	Debug("history record added", "len", 1)
	Warn("slow subscriber")
	assert.Contains(t, buf.String(), "history record added")
	assert.Contains(t, buf.String(), "slow subscriber")
}

func TestParsing(t *testing.T) {
	levels := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"invalid": slog.LevelInfo,
	}
	for in, want := range levels {
		assert.Equal(t, want, GetLevelFromString(in), in)
	}

	assert.Equal(t, FormatText, ParseFormat(" Text "))
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatJSON, ParseFormat(""))
}

func TestConcurrentLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(slog.LevelDebug, FormatJSON, buf)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				l.Info("tick", "worker", i, "n", j)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, decodeLines(t, buf), 1000)
}
