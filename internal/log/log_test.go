package log

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	type testCase struct {
		in   string
		want slog.Level
	}
	for _, tc := range []testCase{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	} {
		assert.Equal(t, tc.want, ParseLevel(tc.in), tc.in)
	}
}

func TestLevelFilterSplitsOutput(t *testing.T) {
	var low, high bytes.Buffer
	h := MultiHandler{hs: []slog.Handler{
		LevelFilter{pass: func(l slog.Level) bool { return l < slog.LevelError }, h: slog.NewTextHandler(&low, &slog.HandlerOptions{Level: LevelTrace})},
		LevelFilter{pass: func(l slog.Level) bool { return l >= slog.LevelError }, h: slog.NewTextHandler(&high, nil)},
	}}
	logger := slog.New(h).With("component", "test")

	logger.Log(context.Background(), LevelTrace, "trace line")
	logger.Info("info line")
	logger.Error("error line")

	assert.Contains(t, low.String(), "trace line")
	assert.Contains(t, low.String(), "info line")
	assert.NotContains(t, low.String(), "error line")
	assert.Contains(t, high.String(), "error line")
	assert.Contains(t, high.String(), "component=test")
	assert.NotContains(t, high.String(), "info line")
}

func TestSetupLoggerFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, closers, err := SetupLogger("debug", path, FormatJSON)
	require.NoError(t, err)
	logger.Debug("hello", "k", 1)
	for _, c := range closers {
		require.NoError(t, c.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{"))
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestSetupLoggerRejectsFormat(t *testing.T) {
	_, _, err := SetupLogger("info", "", "xml")
	assert.Error(t, err)
}

func TestRawLogger(t *testing.T) {
	var buf bytes.Buffer
	r := NewRaw(&buf)
	r.Log(Out, "xbox360/0", []byte{0x00, 0x1f, 0xab})
	r.Log(In, "xbox360/0", []byte{0xff})
	r.Log(Out, "mouse", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "OUT xbox360/0: 3 bytes, hex: 00 1f ab")
	assert.Contains(t, lines[1], "IN xbox360/0: 1 bytes, hex: ff")

	NewRaw(nil).Log(Out, "mouse", []byte{1})
}
