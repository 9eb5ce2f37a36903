package logging

import (
	"encoding/json"
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
	path := filepath.Join(t.TempDir(), "nested", "jyutdrill.log")
	logger, err := New(Options{Path: path, Level: "debug"})
	require.NoError(t, err)

	logger.Debug("selected glyph", zap.String("glyph", "人"))
	Sync(logger)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "selected glyph", entry["msg"])
	assert.Equal(t, "人", entry["glyph"])
	assert.Equal(t, "debug", entry["level"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewFiltersBelowLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jyutdrill.log")
	logger, err := New(Options{Path: path, Level: "warn"})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")
	Sync(logger)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "dropped")
	assert.Contains(t, string(raw), "kept")
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level.Level())

	level, err = ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level.Level())

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestSyncNil(t *testing.T) {
	Sync(nil)
}
