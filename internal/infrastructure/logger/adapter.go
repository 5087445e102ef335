package logger

import (
	"errors"
	"fmt"
	"sort"
	"syscall"

	"go.uber.org/zap"

	"kagi-bot/internal/application/port/output"
)

var _ output.LoggerPort = (*LoggerAdapter)(nil)

type LoggerAdapter struct {
	logger *zap.SugaredLogger
}

// NewLoggerAdapter builds a JSON logger on stderr. Debug entries are only
// emitted when debug is true.
func NewLoggerAdapter(name string, debug bool) (*LoggerAdapter, error) {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	base, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	return NewFromZap(base.Named(name)), nil
}

func NewFromZap(base *zap.Logger) *LoggerAdapter {
	return &LoggerAdapter{logger: base.Sugar()}
}

func (l *LoggerAdapter) Debug(msg string, args ...any) {
	l.logger.Debugw(msg, args...)
}

func (l *LoggerAdapter) Info(msg string, args ...any) {
	l.logger.Infow(msg, args...)
}

func (l *LoggerAdapter) Warn(msg string, args ...any) {
	l.logger.Warnw(msg, args...)
}

func (l *LoggerAdapter) Error(msg string, args ...any) {
	l.logger.Errorw(msg, args...)
}

func (l *LoggerAdapter) WithField(key string, value any) output.LoggerPort {
	return &LoggerAdapter{logger: l.logger.With(key, value)}
}

func (l *LoggerAdapter) WithFields(fields map[string]any) output.LoggerPort {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}

	return &LoggerAdapter{logger: l.logger.With(args...)}
}

// Close flushes buffered entries. Syncing a terminal stderr fails with
// EINVAL or ENOTTY on some platforms; only those errors are dropped.
func (l *LoggerAdapter) Close() error {
	err := l.logger.Sync()
	if err == nil || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return fmt.Errorf("sync logger: %w", err)
}
