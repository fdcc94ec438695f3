package logger

import (
	"context"
	"log/slog"
	"os"
)

type contextKey struct{}

func Setup(level string, format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	// Logs go to stderr unconditionally: in script mode stdout carries the
	// generated SQL.
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func WithUnit(ctx context.Context, unit string) context.Context {
	return context.WithValue(ctx, contextKey{}, unit)
}

func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if unit, ok := ctx.Value(contextKey{}).(string); ok {
		logger = logger.With("unit", unit)
	}
	return logger
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
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
