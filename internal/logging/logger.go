// Package logging provides structured logging for monitord.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger creates a structured logger writing to stderr.
// Format should be "json" or "text".
// Level should be "debug", "info", "warn", or "error".
func NewLogger(format, level string, verbose bool) *slog.Logger {
	return NewLoggerTo(os.Stderr, format, level, verbose)
}

// NewLoggerTo is NewLogger with an explicit destination. JSON is the
// default format.
func NewLoggerTo(w io.Writer, format, level string, verbose bool) *slog.Logger {
	logLevel := parseLevel(level)
	if verbose {
		logLevel = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel == slog.LevelDebug,
	}
	return slog.New(newHandler(w, format, "json", opts))
}

// NewLoggerWithWriter creates a logger without source locations that
// defaults to text. The dashboard passes io.Discard so log lines do not
// tear the terminal.
func NewLoggerWithWriter(w io.Writer, format, level string) *slog.Logger {
	return slog.New(newHandler(w, format, "text", &slog.HandlerOptions{Level: parseLevel(level)}))
}

// newHandler picks the handler for format, using fallback for anything
// other than "json" or "text".
func newHandler(w io.Writer, format, fallback string, opts *slog.HandlerOptions) slog.Handler {
	f := strings.ToLower(format)
	if f != "json" && f != "text" {
		f = fallback
	}
	if f == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// ValidLevel reports whether level is one parseLevel understands.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// SetDefault sets the default logger for the slog package.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
