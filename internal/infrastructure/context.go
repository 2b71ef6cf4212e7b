package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NewRunID creates a new analysis run ID using UUID v4
func NewRunID() string {
	return uuid.New().String()
}

// IsRunID reports whether id has the shape NewRunID produces.
func IsRunID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// StartRun returns a context carrying a fresh run ID, also used as trace ID
// unless one is already present.
func StartRun(ctx context.Context) (context.Context, string) {
	runID := NewRunID()
	ctx = WithRunID(ctx, runID)
	if GetTraceID(ctx) == "" {
		ctx = WithTraceID(ctx, runID)
	}
	return ctx, runID
}

// EnsureTraceID ensures the context has a trace ID, generating one if needed
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) == "" {
		return WithTraceID(ctx, uuid.New().String())
	}
	return ctx
}

// WithComponent creates a logger with a component field
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// WithError creates a logger with an error field
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With("error", err.Error())
}
