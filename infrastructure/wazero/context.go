package wazero

import (
	"context"
)

// contextKey is a private type for context keys.
type contextKey struct {
	name string
}

var requestIDKey = &contextKey{name: "request_id"}

// WithRequestID adds the loader request id (the job's callback name) to the context.
// Compilation logs carry it so a module can be traced back to its job.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request id from the context.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}
