// Package logger wraps log/slog for the sync worker and keeps the error side-channel.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options selects level, encoding and destination of a logger.
type Options struct {
	Writer io.Writer
	Level  string
	Format string
}

// Logger is a leveled structured logger whose level can change at runtime.
type Logger struct {
	internal *slog.Logger
	level    *slog.LevelVar
}

// ParseLevel maps a level name to its slog level. Unknown names yield info and false.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}

	return slog.LevelInfo, false
}

// NewLogger creates a text logger on stderr at level.
func NewLogger(level string) *Logger {
	return New(Options{Level: level})
}

// NewLoggerWithWriter creates a text logger writing to w.
func NewLoggerWithWriter(level string, w io.Writer) *Logger {
	return New(Options{Level: level, Writer: w})
}

// New creates a logger from opts. A nil writer means stderr.
func New(opts Options) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	lvl := new(slog.LevelVar)
	level, _ := ParseLevel(opts.Level)
	lvl.Set(level)

	handlerOpts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, FormatJSON) {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return &Logger{internal: slog.New(handler), level: lvl}
}

func (l *Logger) Info(msg string, args ...any) {
	l.internal.Info(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.internal.Error(msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.internal.Debug(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.internal.Warn(msg, args...)
}

// With returns a child logger carrying args. It shares the parent's level.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{internal: l.internal.With(args...), level: l.level}
}

// SetLevel changes the level of this logger and every logger derived from it.
// Unknown names are ignored.
func (l *Logger) SetLevel(name string) {
	if level, ok := ParseLevel(name); ok {
		l.level.Set(level)
	}
}

// Enabled reports whether records at level would be emitted.
func (l *Logger) Enabled(level slog.Level) bool {
	return l.level.Level() <= level
}

// Slog exposes the underlying slog logger.
func (l *Logger) Slog() *slog.Logger {
	return l.internal
}
