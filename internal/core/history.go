package core

// history.go keeps a bounded, in-memory record of recent runs so operators
// can see who split what without any persistence layer. Records survive a
// run's expiry but not a process restart.

import (
	"sync"
	"time"
)

// DefaultHistoryLimit is the default number of run records retained.
const DefaultHistoryLimit = 50

// RunRecord is one entry in the run history.
type RunRecord struct {
	RunID       string    `json:"runId"`
	ReportKey   string    `json:"reportKey"`
	FileName    string    `json:"fileName,omitempty"`
	Status      RunPhase  `json:"status"`
	Rows        int       `json:"rows"`
	Groups      int       `json:"groups"`
	ArchiveSize int       `json:"archiveSize"`
	ClientIP    string    `json:"clientIp,omitempty"`
	UserAgent   string    `json:"userAgent,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	DurationMs  int64     `json:"durationMs"`
	Error       string    `json:"error,omitempty"`
}

// runHistory is a bounded list of recent runs, newest first.
type runHistory struct {
	mu      sync.Mutex
	limit   int
	records []RunRecord
}

func newRunHistory(limit int) *runHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &runHistory{limit: limit}
}

// Add prepends a record, evicting the oldest past the limit.
func (h *runHistory) Add(rec RunRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append([]RunRecord{rec}, h.records...)
	if len(h.records) > h.limit {
		h.records = h.records[:h.limit]
	}
}

// Recent returns a copy of the retained records, newest first.
func (h *runHistory) Recent() []RunRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]RunRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Clear drops all records and returns how many were removed.
func (h *runHistory) Clear() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.records)
	h.records = nil
	return n
}
