package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging surface used across the pipeline. Keys and values
// are alternating pairs, zap sugared style.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// zapLogger wraps a *zap.SugaredLogger and implements Logger.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

var _ Logger = (*zapLogger)(nil)

func (l *zapLogger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *zapLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *zapLogger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *zapLogger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// globalSugar backs Global() so stages can log without plumbing a Logger
// through every constructor.
var globalSugar *zap.SugaredLogger

// Init builds the process logger at the given level ("debug", "info",
// "warn", "error"; anything else falls back to info). Call once at startup.
func Init(level string) (Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	zapLog, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	sugar := zapLog.Sugar()
	globalSugar = sugar

	return &zapLogger{sugar: sugar}, nil
}

// Cleanup flushes any buffered log entries. Call at program exit.
func Cleanup() {
	if globalSugar != nil {
		_ = globalSugar.Sync()
	}
}

// Global returns the Logger created by Init. Before Init it returns a
// no-op logger, which keeps tests quiet.
func Global() Logger {
	if globalSugar == nil {
		return Nop()
	}
	return &zapLogger{sugar: globalSugar}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}
