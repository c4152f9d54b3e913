// Package logging adapts go.uber.org/zap to the small key-value Logger
// contract shared by every CrossCloudKit service: structured logging with
// variadic key-value pairs, compatible with slog/logrus/zap alike.
package logging

import "go.uber.org/zap"

// Logger is the structured logging contract every service accepts.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// nopLogger discards everything; it is the default when a service is
// constructed without an explicit Logger.
type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Debug(string, ...any) {}

// Nop returns a Logger that discards all output.
func Nop() Logger { return nopLogger{} }

// zapLogger adapts *zap.SugaredLogger to Logger.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZap wraps a *zap.Logger (e.g. zap.NewProduction()) as a Logger.
func NewZap(z *zap.Logger) Logger {
	return &zapLogger{sugar: z.Sugar()}
}

func (l *zapLogger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l *zapLogger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l *zapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }
func (l *zapLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }

// OrNop returns l unchanged if non-nil, else the discard logger.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}
