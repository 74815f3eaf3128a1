package domain

import (
	"context"
)

// Logger is the structured logging port used across the application.
// Methods accept a context.Context so implementations can attach
// request-scoped fields (e.g. request IDs, background task IDs). The
// variadic fields are key-value pairs, kept as `any` so the port stays
// agnostic of the underlying logging library.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, msg string, fields ...any)
	Error(ctx context.Context, msg string, fields ...any)
	Fatal(ctx context.Context, msg string, fields ...any)

	// With creates a child logger carrying the given fields.
	With(fields ...any) Logger
}
