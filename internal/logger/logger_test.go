package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestFastMultiHandler_DetailedSkipsTerminal(t *testing.T) {
	var terminal, file bytes.Buffer
	h := &fastMultiHandler{
		terminalHandler: slog.NewTextHandler(&terminal, nil),
		fileHandler:     slog.NewTextHandler(&file, nil),
	}
	log := slog.New(h)

	log.Info("visible everywhere")
	log.InfoContext(WithDetailed(context.Background()), "file only", "prompt", "long prompt text")

	assert.Contains(t, terminal.String(), "visible everywhere")
	assert.NotContains(t, terminal.String(), "file only")
	assert.Contains(t, file.String(), "visible everywhere")
	assert.Contains(t, file.String(), "long prompt text")
}

func TestNew_FileOutputWritesLog(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	dir := t.TempDir()

	var terminal bytes.Buffer
	log, cleanup, err := New(&Config{
		Output:     &terminal,
		Level:      "debug",
		LogDir:     dir,
		LogName:    "test.log",
		FileOutput: true,
		MaxSize:    1,
	})
	require.NoError(t, err)

	log.Debug("model loaded", "service", "summarizer")
	cleanup()

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"summarizer"`)
	assert.Contains(t, string(data), `"timestamp"`)
	assert.Contains(t, terminal.String(), "model loaded")
}

func TestStyledLogger_LogWithContext(t *testing.T) {
	var terminal, file bytes.Buffer
	h := &fastMultiHandler{
		terminalHandler: slog.NewTextHandler(&terminal, nil),
		fileHandler:     slog.NewTextHandler(&file, nil),
	}
	sl := NewPlainStyledLogger(slog.New(h))

	sl.WarnWithContext("Backend failure", "primary_generator", LogContext{
		UserArgs:     []any{"status", 500},
		DetailedArgs: []any{"body", "upstream exploded"},
	})

	assert.Contains(t, terminal.String(), "status=500")
	assert.NotContains(t, terminal.String(), "upstream exploded")
	assert.Contains(t, file.String(), "upstream exploded")
}
