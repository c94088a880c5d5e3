// Package logger provides structured logging functionality for the
// application, plus helpers for carrying a request-scoped logger in a
// context.Context.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/nvalden/numlab-api/internal/config"
)

type contextKey struct{}

// Setup initializes the application's logging system based on the
// provided configuration: a JSON handler on stdout at the configured
// level, installed as the process-wide default. Returns the configured
// logger.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
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
		tmp := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmp.Warn("invalid log level configured, using default level",
			"configured_level", cfg.LogLevel,
			"default_level", "info")
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	log := slog.New(handler)
	slog.SetDefault(log)

	return log, nil
}

// WithLogger returns a context carrying the given logger.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, log)
}

// FromContext returns the logger carried by the context, or the
// process default when none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return log
	}
	return slog.Default()
}

// FromContextOrDefault returns the logger carried by the context, or
// the provided fallback when none was attached.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if log, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return log
	}
	return fallback
}
