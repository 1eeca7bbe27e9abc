package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/reportkit/splitcsv/internal/config"
)

// APIKeyAuth returns middleware that validates the X-API-Key header against
// the configured admin key. When no key is configured the guarded routes are
// disabled entirely and respond 404, so the admin surface stays invisible
// unless explicitly enabled.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.AdminAPIKey == "" {
				http.NotFound(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"missing API key","code":"AUTH_MISSING_KEY"}`, http.StatusUnauthorized)
				return
			}

			// Constant-time comparison so the response time leaks nothing
			// about how much of the key matched.
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(cfg.AdminAPIKey)) != 1 {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"invalid API key","code":"AUTH_INVALID_KEY"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
