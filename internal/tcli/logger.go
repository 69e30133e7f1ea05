package tcli

import (
	"io"
	"log/slog"

	"github.com/pterm/pterm"
)

// NewLogger creates a logger with the given level and format.
// It does not set the global logger.
func NewLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler

	switch formatStr {
	case "json":
		handler = slog.NewJSONHandler(outW, handlerOpts)
	case "pterm":
		pl := pterm.DefaultLogger.
			WithWriter(outW).
			WithLevel(ptermLevel(level))
		handler = pterm.NewSlogHandler(pl)
	default:
		handler = slog.NewTextHandler(outW, handlerOpts)
	}

	return slog.New(handler)
}

func ptermLevel(l slog.Level) pterm.LogLevel {
	switch {
	case l <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case l <= slog.LevelInfo:
		return pterm.LogLevelInfo
	case l <= slog.LevelWarn:
		return pterm.LogLevelWarn
	default:
		return pterm.LogLevelError
	}
}
