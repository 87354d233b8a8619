// Package trace provides request-ID propagation for correlating the
// attempts of one logical API request across logs and outgoing headers.
package trace

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

// requestIDKey is the context key for request ID values
const requestIDKey contextKey = "request_id"

// HeaderXRequestID is the header name carrying the request ID on
// outgoing calls.
const HeaderXRequestID = "X-Request-ID"

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// IDFromContext returns a request ID from context if present
func IDFromContext(ctx context.Context) (string, bool) {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		return requestID, true
	}
	return "", false
}

// EnsureRequestID returns an existing request ID from context or generates
// a new one
func EnsureRequestID(ctx context.Context) string {
	if requestID, ok := IDFromContext(ctx); ok {
		return requestID
	}
	return uuid.New().String()
}
