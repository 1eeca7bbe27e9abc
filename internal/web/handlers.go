package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reportkit/splitcsv/internal/core"
)

// handleIndex serves the embedded single-page UI.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleListReports returns the registered report definitions for the UI
// selector.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports := s.service.ListReports()
	if reports == nil {
		reports = []core.ReportDefinition{}
	}
	writeJSON(w, map[string]any{"reports": reports})
}

// handleListRuns returns active runs and recent history, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs := s.service.ListRuns()
	if runs == nil {
		runs = []core.RunRecord{}
	}
	writeJSON(w, map[string]any{"runs": runs})
}

// handleRunStatus returns the current progress and, once finished, the result.
func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	status, err := s.service.Status(runID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, status)
}

// handleRevokeRun releases a run's archive. Revocation is idempotent, so
// unknown and already-revoked runs answer 204 as well.
func (s *Server) handleRevokeRun(w http.ResponseWriter, r *http.Request) {
	s.service.Revoke(chi.URLParam(r, "runID"))
	w.WriteHeader(http.StatusNoContent)
}

// handleQueueStatus returns the current state of the run limiter.
// Used for monitoring and to check whether the system can accept more runs.
func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.LimiterStatus())
}

// handlePurgeRuns drops every run, in flight or finished. Admin only.
func (s *Server) handlePurgeRuns(w http.ResponseWriter, r *http.Request) {
	purged := s.service.PurgeAll()
	writeJSON(w, map[string]int{"purged": purged})
}
