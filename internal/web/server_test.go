package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/reportkit/splitcsv/internal/core"
)

// ============================================================================
// Page and Catalog Tests
// ============================================================================

func TestIndexPage(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := doRequest(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "Report Splitter") {
		t.Error("index page missing the app title")
	}
}

func TestStaticAssets(t *testing.T) {
	s := newTestServer(t, testConfig())

	// The file server redirects explicit index.html paths, so ask for the
	// directory listing's index instead
	req := httptest.NewRequest(http.MethodGet, "/static/", nil)
	rec := doRequest(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestListReports(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	rec := doRequest(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Reports []core.ReportDefinition `json:"reports"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode reports: %v", err)
	}
	if len(resp.Reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(resp.Reports))
	}
	if resp.Reports[0].Key != "monthly" {
		t.Errorf("Key = %q, want monthly", resp.Reports[0].Key)
	}
	if resp.Reports[0].GroupColumn != "Development Name??" {
		t.Errorf("GroupColumn = %q, want the registered column", resp.Reports[0].GroupColumn)
	}
}

func TestQueueStatus(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	rec := doRequest(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var status core.RunLimiterStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode queue status: %v", err)
	}
	if status.MaxConcurrent != 2 {
		t.Errorf("MaxConcurrent = %d, want 2", status.MaxConcurrent)
	}
	if status.Active != 0 {
		t.Errorf("Active = %d, want 0", status.Active)
	}
}

// ============================================================================
// Security Header Tests
// ============================================================================

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := doRequest(s, req)

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for name, want := range headers {
		if got := rec.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "default-src 'self'") {
		t.Errorf("Content-Security-Policy = %q, want default-src 'self'", csp)
	}
}

func TestSecurityHeaders_CSPDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableCSP = false
	s := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := doRequest(s, req)
	if csp := rec.Header().Get("Content-Security-Policy"); csp != "" {
		t.Errorf("Content-Security-Policy = %q, want unset", csp)
	}
}

// ============================================================================
// Admin Route Tests
// ============================================================================

func TestAdminPurge_HiddenWithoutKey(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/runs/purge", nil)
	req.Header.Set("X-API-Key", "anything")
	rec := doRequest(s, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d (admin surface should be invisible)", rec.Code, http.StatusNotFound)
	}
}

func TestAdminPurge_AuthFlow(t *testing.T) {
	cfg := testConfig()
	cfg.Security.AdminAPIKey = "test-admin-key"
	s := newTestServer(t, cfg)

	runID := startTestRun(t, s, "report.csv", sampleCSV)
	waitForRun(t, s, runID)

	t.Run("missing key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/runs/purge", nil)
		rec := doRequest(s, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/runs/purge", nil)
		req.Header.Set("X-API-Key", "wrong-key")
		rec := doRequest(s, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("correct key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/runs/purge", nil)
		req.Header.Set("X-API-Key", "test-admin-key")
		rec := doRequest(s, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
		}

		var resp map[string]int
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode purge response: %v", err)
		}
		if resp["purged"] < 1 {
			t.Errorf("purged = %d, want at least 1", resp["purged"])
		}
	})
}

// ============================================================================
// Rate Limit Tests
// ============================================================================

func TestRateLimit_Global(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.RequestsPerMinute = 2
	cfg.Rate.UploadLimit = 10
	s := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
		if rec := doRequest(s, req); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	rec := doRequest(s, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
	if resp := decodeError(t, rec); resp.Code != "RATE001" {
		t.Errorf("error code = %q, want RATE001", resp.Code)
	}
}

func TestRateLimit_UploadTighter(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.RequestsPerMinute = 100
	cfg.Rate.UploadLimit = 1
	s := newTestServer(t, cfg)

	body, contentType := csvUpload(t, "report.csv", sampleCSV, nil)
	if rec := postUpload(s, "/api/preview", body, contentType); rec.Code != http.StatusOK {
		t.Fatalf("first preview status = %d, want %d", rec.Code, http.StatusOK)
	}

	body, contentType = csvUpload(t, "report.csv", sampleCSV, nil)
	rec := postUpload(s, "/api/preview", body, contentType)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second preview status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}

	// Reads stay under the global limit
	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	if rec := doRequest(s, req); rec.Code != http.StatusOK {
		t.Errorf("reports status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// ============================================================================
// Helper Unit Tests
// ============================================================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"PARSE001", http.StatusBadRequest},
		{"SCHEMA001", http.StatusBadRequest},
		{"EMPTY001", http.StatusBadRequest},
		{"FILE004", http.StatusBadRequest},
		{"RPT001", http.StatusBadRequest},
		{"RUN001", http.StatusNotFound},
		{"RUN003", http.StatusNotFound},
		{"RUN002", http.StatusTooManyRequests},
		{"RATE001", http.StatusTooManyRequests},
		{"RUN004", http.StatusInternalServerError},
		{"ERR000", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := statusFor(core.UserMessage{Code: tt.code})
			if got != tt.want {
				t.Errorf("statusFor(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		accept      string
		contentType string
		want        bool
	}{
		{"api path", "/api/runs", "", "", true},
		{"json accept", "/download", "application/json", "", true},
		{"json content type", "/upload", "", "application/json", true},
		{"plain page", "/", "text/html", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if got := wantsJSON(req); got != tt.want {
				t.Errorf("wantsJSON = %v, want %v", got, tt.want)
			}
		})
	}
}
