package logging

import (
	"log/slog"
	"os"
)

// NewLogger returns a structured logger.
// If verbose == true, level = Debug, else Info.
func NewLogger(verbose bool) *slog.Logger {
	level := new(slog.LevelVar)
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// NewNopLogger returns a logger that discards everything. Used by tests and
// by one-shot commands that report through their own output.
func NewNopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, &slog.HandlerOptions{
		Level: slog.LevelError + 1,
	}))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
