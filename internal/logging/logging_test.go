package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ppiankov/grantaxiom/internal/model"
)

func TestNewWithWriter_ConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := NewWithWriter(model.LoggingConfig{Level: "warn"}, &buf)
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	logger.Info("hidden")
	logger.Warn("shown", zap.String("op", "audit"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "WARN")
}

func TestNewWithWriter_JSONAndFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "grantaxiom.log")
	cfg := model.LoggingConfig{Level: "debug", JSON: true, File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}

	logger, closeFn, err := NewWithWriter(cfg, &buf)
	require.NoError(t, err)

	logger.Debug("audit complete", zap.Int("score", 65))
	require.NoError(t, closeFn())

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line))
	assert.Equal(t, "audit complete", line["msg"])
	assert.Equal(t, float64(65), line["score"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"audit complete"`)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)

	level, err = ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
