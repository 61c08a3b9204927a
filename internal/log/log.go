// Package log is a thin facade over zap, initialized once from
// GPUSTACK_RUNTIME_LOG_LEVEL. It mirrors the teacher's pattern of a
// single package-level logger handed down to components rather than
// each package constructing its own.
package log

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = newLogger("info")
)

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLevel rebuilds the package logger at the given level string
// ("debug", "info", "warn", "error"). Unknown values fall back to info.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(level)
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// With returns a child logger carrying the given structured fields.
func With(fields ...zap.Field) *zap.SugaredLogger {
	return current().With(fields...).Sugar()
}

func Debug(args ...any)                   { current().Sugar().Debug(args...) }
func Debugf(format string, args ...any)   { current().Sugar().Debugf(format, args...) }
func Info(args ...any)                    { current().Sugar().Info(args...) }
func Infof(format string, args ...any)    { current().Sugar().Infof(format, args...) }
func Warn(args ...any)                    { current().Sugar().Warn(args...) }
func Warnf(format string, args ...any)    { current().Sugar().Warnf(format, args...) }
func Error(args ...any)                   { current().Sugar().Error(args...) }
func Errorf(format string, args ...any)   { current().Sugar().Errorf(format, args...) }
