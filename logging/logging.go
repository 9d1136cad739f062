// Package logging wraps zap for the core's structured logging needs. There
// is no global logger: every package that needs one takes a *zap.Logger
// explicitly at construction, defaulting to a no-op logger when the caller
// doesn't supply one.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger's level and output encoding.
type Config struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// DefaultConfig returns the production-leaning default: info level, JSON
// encoding.
func DefaultConfig() Config {
	return Config{Level: "info", Encoding: "json"}
}

// New builds a *zap.Logger from cfg. Encoding must be "json" or "console";
// Level must parse as a zapcore.Level name ("debug", "info", "warn",
// "error").
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: parse level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = cfg.Encoding
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger, nil
}

// NewNop returns a logger that discards everything, for tests and
// constructors that don't want to force a logging dependency on callers.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
