// Package observability carries build-scoped logging context.
package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// LogContext holds structured logging context information.
type LogContext struct {
	BuildID string
	State   string
	Worker  *int
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithBuildID adds a build ID to the context.
func WithBuildID(ctx context.Context, buildID string) context.Context {
	lc := extractLogContext(ctx)
	lc.BuildID = buildID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithState adds the orchestrator state to the context.
func WithState(ctx context.Context, state string) context.Context {
	lc := extractLogContext(ctx)
	lc.State = state
	return context.WithValue(ctx, logContextKey, lc)
}

// WithWorker adds a shard worker index to the context.
func WithWorker(ctx context.Context, worker int) context.Context {
	lc := extractLogContext(ctx)
	lc.Worker = &worker
	return context.WithValue(ctx, logContextKey, lc)
}

func extractLogContext(ctx context.Context) LogContext {
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// GetContext returns the structured log context from the provided context.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

func getLogAttrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	attrs := make([]slog.Attr, 0, 3)
	if lc.BuildID != "" {
		attrs = append(attrs, logfields.BuildID(lc.BuildID))
	}
	if lc.State != "" {
		attrs = append(attrs, logfields.Stage(lc.State))
	}
	if lc.Worker != nil {
		attrs = append(attrs, logfields.Worker(*lc.Worker))
	}
	return attrs
}

// InfoContext logs an info message with context information.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelInfo, msg, append(getLogAttrs(ctx), attrs...)...)
}

// WarnContext logs a warning message with context information.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelWarn, msg, append(getLogAttrs(ctx), attrs...)...)
}

// ErrorContext logs an error message with context information.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelError, msg, append(getLogAttrs(ctx), attrs...)...)
}

// DebugContext logs a debug message with context information.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelDebug, msg, append(getLogAttrs(ctx), attrs...)...)
}
