// Package logging builds the process logger.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production zap logger at level, encoded as "json" (the
// default) or "console".
func New(level, format string) (*zap.Logger, zap.AtomicLevel, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(strings.ToLower(level)))
	if err != nil {
		if strings.TrimSpace(level) != "" {
			return nil, zap.AtomicLevel{}, fmt.Errorf("parse log level %q: %w", level, err)
		}
		lvl = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
	case "console":
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	default:
		return nil, zap.AtomicLevel{}, fmt.Errorf("unknown log format %q", format)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("build logger: %w", err)
	}
	return logger, config.Level, nil
}
