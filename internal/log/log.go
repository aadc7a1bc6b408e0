// Package log provides structured logging for the localizer.
// It wraps slog with sensible defaults.
package log

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	logger *slog.Logger
	mu     sync.Mutex
)

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Anything else is info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs the global logger at the given level, writing to stderr.
// JSON output is used when GO_ENV=production, text otherwise.
func Init(level string) {
	InitWriter(os.Stderr, level)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var l *slog.Logger
	if os.Getenv("GO_ENV") == "production" {
		l = slog.New(slog.NewJSONHandler(w, opts))
	} else {
		l = slog.New(slog.NewTextHandler(w, opts))
	}

	mu.Lock()
	logger = l
	mu.Unlock()
}

// Discard silences the global logger.
func Discard() {
	mu.Lock()
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	mu.Unlock()
}

// L returns the global logger instance.
func L() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
