package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carprice.log")
	log, level, err := New(Config{Level: "warn", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept", zap.Int("rows", 2))
	require.NoError(t, SetLevel(level, "debug"))
	log.Debug("now visible")
	_ = log.Sync()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"kept"`)
	assert.Contains(t, lines[0], `"rows":2`)
	assert.Contains(t, lines[1], `"msg":"now visible"`)
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	require.Error(t, SetLevel(level, "loud"))
	assert.Equal(t, zapcore.InfoLevel, level.Level())
	require.NoError(t, SetLevel(level, ""))
	assert.Equal(t, zapcore.InfoLevel, level.Level())
}
