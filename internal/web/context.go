package web

import (
	"context"
	"net/http"

	"github.com/reportkit/splitcsv/internal/core"
)

// WithRequestMetadata adds the client IP and User-Agent to the context so
// the run history can attribute runs to their origin.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr // Already normalized by the TrustedRealIP middleware
	ua := r.Header.Get("User-Agent")
	ctx = core.ContextWithClientIP(ctx, ip)
	ctx = core.ContextWithUserAgent(ctx, ua)
	return ctx
}
