// Package correlation carries the request-scoped correlation id. The id is
// resolved once at the entry boundary (inbound header or generated UUID v4)
// and travels in the context; background workers re-attach it explicitly so
// it survives the hop off the request goroutine. Because it lives in a
// per-request context, nothing leaks across reused handlers.
package correlation

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Header is the inbound/outbound correlation header. http.Header lookups are
// canonicalized, so any inbound casing matches.
const Header = "X-Correlation-ID"

type ctxKey struct{}

// NewID generates a fresh UUID v4 correlation id.
func NewID() string {
	return uuid.New().String()
}

// WithID returns a context carrying the given correlation id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the correlation id, or "" when none is attached.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// EnsureID returns a context that definitely carries a correlation id,
// generating one when absent.
func EnsureID(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := NewID()
	return WithID(ctx, id), id
}

// FromRequest resolves the id for one HTTP request: the inbound header when
// supplied, else a generated one.
func FromRequest(r *http.Request) string {
	if id := r.Header.Get(Header); id != "" {
		return id
	}
	return NewID()
}

// Stamp injects the correlation id into an outbound payload.
func Stamp(ctx context.Context, payload map[string]any) {
	if id := FromContext(ctx); id != "" {
		payload["correlation_id"] = id
	}
}
