// Package logging adapts log/slog to the auth Logger interface.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Logger implements auth.Logger on top of a slog.Logger. Every call is a
// message followed by key value pairs.
type Logger struct {
	logger *slog.Logger
}

// New wraps logger. A nil logger uses slog.Default.
func New(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

// NewHandlerLogger builds a slog.Logger writing to w in the given format
// ("text" or "json") at level.
func NewHandlerLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog level, info when unknown
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Slog returns the wrapped logger
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

// With returns a logger carrying attrs on every record
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

func (l *Logger) Debug(msg string, kv ...any) {
	l.log(slog.LevelDebug, msg, kv...)
}

func (l *Logger) Info(msg string, kv ...any) {
	l.log(slog.LevelInfo, msg, kv...)
}

func (l *Logger) Warn(msg string, kv ...any) {
	l.log(slog.LevelWarn, msg, kv...)
}

func (l *Logger) Error(msg string, kv ...any) {
	l.log(slog.LevelError, msg, kv...)
}

func (l *Logger) log(level slog.Level, msg string, kv ...any) {
	l.logger.Log(context.Background(), level, msg, kv...)
}
