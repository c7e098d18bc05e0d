package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the service logger. JSON at info in prod, text at debug elsewhere.
// A non-empty level overrides the environment default.
func New(env, level string) *slog.Logger {
	var handler slog.Handler

	switch env {
	case "prod", "production":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     parseLevel(level, slog.LevelInfo),
			AddSource: true,
		})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     parseLevel(level, slog.LevelDebug),
			AddSource: true,
		})
	}

	return slog.New(handler).With("service", "car-rental")
}

func parseLevel(s string, def slog.Level) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return def
	}
	return lvl
}
