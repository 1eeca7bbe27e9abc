package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/reportkit/splitcsv/internal/config"
)

// ============================================================================
// TrustedRealIP Tests
// ============================================================================

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		realIP     string
		forwarded  string
		want       string
	}{
		{
			name:       "no trusted proxies ignores headers",
			trusted:    nil,
			remoteAddr: "203.0.113.9:1234",
			realIP:     "10.0.0.1",
			want:       "203.0.113.9:1234",
		},
		{
			name:       "trusted proxy honors X-Real-IP",
			trusted:    []string{"127.0.0.1"},
			remoteAddr: "127.0.0.1:5000",
			realIP:     "203.0.113.7",
			want:       "203.0.113.7",
		},
		{
			name:       "trusted CIDR takes first X-Forwarded-For hop",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:80",
			forwarded:  "198.51.100.4, 10.1.2.3",
			want:       "198.51.100.4",
		},
		{
			name:       "untrusted client cannot spoof via X-Forwarded-For",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "192.0.2.1:80",
			forwarded:  "198.51.100.4",
			want:       "192.0.2.1:80",
		},
		{
			name:       "X-Real-IP wins over X-Forwarded-For",
			trusted:    []string{"127.0.0.1"},
			remoteAddr: "127.0.0.1:5000",
			realIP:     "203.0.113.7",
			forwarded:  "198.51.100.4",
			want:       "203.0.113.7",
		},
		{
			name:       "invalid header value keeps RemoteAddr",
			trusted:    []string{"127.0.0.1"},
			remoteAddr: "127.0.0.1:5000",
			realIP:     "not-an-ip",
			want:       "127.0.0.1:5000",
		},
		{
			name:       "invalid CIDR entries are skipped",
			trusted:    []string{"bogus/99", "127.0.0.1"},
			remoteAddr: "127.0.0.1:5000",
			realIP:     "203.0.113.7",
			want:       "203.0.113.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			handler.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

// ============================================================================
// APIKeyAuth Tests
// ============================================================================

func TestAPIKeyAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("no key configured hides the route", func(t *testing.T) {
		cfg := &config.SecurityConfig{}
		handler := APIKeyAuth(cfg)(next)

		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set("X-API-Key", "whatever")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		cfg := &config.SecurityConfig{AdminAPIKey: "secret"}
		handler := APIKeyAuth(cfg)(next)

		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if !strings.Contains(rec.Body.String(), "AUTH_MISSING_KEY") {
			t.Errorf("body = %q, want AUTH_MISSING_KEY", rec.Body.String())
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		cfg := &config.SecurityConfig{AdminAPIKey: "secret"}
		handler := APIKeyAuth(cfg)(next)

		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set("X-API-Key", "nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
		if !strings.Contains(rec.Body.String(), "AUTH_INVALID_KEY") {
			t.Errorf("body = %q, want AUTH_INVALID_KEY", rec.Body.String())
		}
	})

	t.Run("correct key", func(t *testing.T) {
		cfg := &config.SecurityConfig{AdminAPIKey: "secret"}
		handler := APIKeyAuth(cfg)(next)

		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set("X-API-Key", "secret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}

// ============================================================================
// Logger Tests
// ============================================================================

func TestLogger_PreservesStatusAndBody(t *testing.T) {
	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Body.String() != "short and stout" {
		t.Errorf("body = %q, want unmodified handler output", rec.Body.String())
	}
}

// Streaming handlers type-assert http.Flusher on the raw writer, so the
// logging wrapper has to keep it visible.
func TestLogger_PreservesFlusher(t *testing.T) {
	var flushable bool
	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flushable = w.(http.Flusher)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !flushable {
		t.Error("http.Flusher not reachable through the logging wrapper")
	}
}
