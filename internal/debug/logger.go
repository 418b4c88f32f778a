// Package debug provides the process-wide debug logger, built on log/slog.
package debug

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	// logger is the global debug logger instance
	logger = slog.New(slog.DiscardHandler)
	// enabled indicates if debug logging is enabled
	enabled bool
	// mu protects the logger and enabled flag
	mu sync.RWMutex
)

// Format selects the handler used by InitWriter.
type Format string

const (
	// FormatText writes key=value lines.
	FormatText Format = "text"
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
)

// Init enables or disables debug logging to os.Stderr.
// Until Init is called every log call is discarded.
func Init(enable bool) {
	InitWriter(enable, os.Stderr, FormatText)
}

// InitWriter is Init with an explicit destination and format.
func InitWriter(enable bool, w io.Writer, format Format) {
	var l *slog.Logger
	if enable {
		opts := &slog.HandlerOptions{Level: slog.LevelDebug}
		if format == FormatJSON {
			l = slog.New(slog.NewJSONHandler(w, opts))
		} else {
			l = slog.New(slog.NewTextHandler(w, opts))
		}
	} else {
		l = slog.New(slog.DiscardHandler)
	}

	mu.Lock()
	defer mu.Unlock()
	enabled = enable
	logger = l
}

// SetLogger replaces the logger, e.g. to route logs into a test.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	enabled = l != nil
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	logger = l
}

// Enabled returns whether debug logging is enabled
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs a debug message
func Debug(msg string, args ...any) { current().Debug(msg, args...) }

// Info logs an info message
func Info(msg string, args ...any) { current().Info(msg, args...) }

// Warn logs a warning message
func Warn(msg string, args ...any) { current().Warn(msg, args...) }

// Error logs an error message
func Error(msg string, args ...any) { current().Error(msg, args...) }

// With returns a logger with the given attributes
func With(args ...any) *slog.Logger { return current().With(args...) }

// Logger returns the underlying slog.Logger instance
func Logger() *slog.Logger { return current() }
