// Package logging builds the application logger.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultLevel = "info"

// Options configures New.
type Options struct {
	// Path is the log file; the terminal is owned by the UI.
	Path  string
	Level string
}

// New constructs a zap logger emitting JSON lines to opts.Path. An empty or
// unknown level falls back to info.
func New(opts Options) (*zap.Logger, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	cfg := zap.Config{
		Level:             level,
		Encoding:          "json",
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{opts.Path},
		ErrorOutputPaths:  []string{opts.Path},
		DisableStacktrace: true,
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// ParseLevel parses a level name such as "debug" or "warn".
func ParseLevel(name string) (zap.AtomicLevel, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = defaultLevel
	}
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// Sync flushes buffered entries. Errors are dropped.
func Sync(logger *zap.Logger) {
	if logger == nil {
		return
	}
	if err := logger.Sync(); err != nil {
		// Best-effort flush on exit.
		_ = err
	}
}
