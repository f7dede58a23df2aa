package app

import (
	"io"
	"log/slog"
)

// newLogger builds the process logger. It never replaces slog.Default, so
// several Apps can run side by side in tests.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(levelStr)}

	var handler slog.Handler = slog.NewTextHandler(outW, handlerOpts)
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	}
	return slog.New(handler)
}

// parseLevel accepts the slog level names; anything else is info.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
