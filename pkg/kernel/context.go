package kernel

import "context"

// ============================================================================
// Context Keys
// ============================================================================

// ContextKey is the type of keys this module stores in context.Context
type ContextKey string

const (
	// RequestIDKey holds the id of the HTTP request that produced a call
	RequestIDKey ContextKey = "request_id"

	// CallerKey holds a free-form label of whoever issued a debounced call
	CallerKey ContextKey = "caller"
)

// WithRequestID returns a copy of ctx carrying id
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestID returns the request id stored in ctx, or ""
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// WithCaller returns a copy of ctx carrying a caller label
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

// Caller returns the caller label stored in ctx, or ""
func Caller(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	c, _ := ctx.Value(CallerKey).(string)
	return c
}
