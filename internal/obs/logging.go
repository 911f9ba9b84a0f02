// Package obs contains observability utilities such as logging.
package obs

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger adapts a zap SugaredLogger to the key/value logger the core expects.
type Logger struct {
	s *zap.SugaredLogger
}

// NewLogger builds a production zap logger at level using the json or console encoder.
func NewLogger(level, format string) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	switch format {
	case "", "json":
		cfg.Encoding = "json"
	case "console":
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("log format %q", format)
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return Wrap(z), nil
}

// Wrap adapts an existing zap logger.
func Wrap(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{s: z.Sugar()}
}

func (l *Logger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }

// Named returns a child logger scoped to component.
func (l *Logger) Named(component string) *Logger {
	return &Logger{s: l.s.Named(component)}
}

// Zap exposes the underlying structured logger.
func (l *Logger) Zap() *zap.Logger { return l.s.Desugar() }

// Sync flushes buffered entries.
func (l *Logger) Sync() error { return l.s.Sync() }
