package logger

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// CorrelationIDHeader carries the request correlation identifier over HTTP.
const CorrelationIDHeader = "X-Request-ID"

type ctxKeyCorrelationID struct{}

// ContextWithCorrelationID stamps ctx with a correlation identifier. Used by
// the HTTP middleware and by the update pipeline, which has no HTTP request
// to hang the identifier on.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelationID{}, id)
}

// CorrelationIDFromContext returns the identifier stamped on ctx, or an
// empty string when there is none.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyCorrelationID{}).(string)
	return id
}

// NewCorrelationID mints a fresh identifier.
func NewCorrelationID() string {
	return uuid.NewString()
}

// Middleware tags each request with a correlation identifier, reusing the
// caller's X-Request-ID when one is supplied, and echoes it on the response
// so callers can reference the request in bug reports.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationIDHeader)
		if id == "" {
			id = NewCorrelationID()
		}

		w.Header().Set(CorrelationIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ContextWithCorrelationID(r.Context(), id)))
	})
}
