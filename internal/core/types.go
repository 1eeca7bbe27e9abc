package core

import (
	"io"
	"time"

	"github.com/reportkit/splitcsv/internal/pipeline"
)

// ReportDefinition describes one kind of file the service knows how to
// split. Definitions are registered at init time and looked up by key.
type ReportDefinition struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`

	// GroupColumn is the header cell whose value assigns each row to a
	// group. Matched exactly, case-sensitively, against the parsed header.
	GroupColumn string `json:"groupColumn"`

	// Folder names the subfolder inside the archive. Defaults to the
	// pipeline's standard folder when empty.
	Folder string `json:"folder,omitempty"`

	// FileSuffix is appended to each sanitized group name. Defaults to the
	// pipeline's standard suffix when empty.
	FileSuffix string `json:"fileSuffix,omitempty"`
}

// PipelineConfig returns the pipeline configuration for this report.
func (d ReportDefinition) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		GroupColumn: d.GroupColumn,
		Folder:      d.Folder,
		FileSuffix:  d.FileSuffix,
	}
}

// RunPhase indicates the current stage of run processing.
type RunPhase string

const (
	PhaseStarting    RunPhase = "starting"
	PhaseReading     RunPhase = "reading"
	PhaseParsing     RunPhase = "parsing"
	PhaseGrouping    RunPhase = "grouping"
	PhaseSerializing RunPhase = "serializing"
	PhaseArchiving   RunPhase = "archiving"
	PhaseComplete    RunPhase = "complete"
	PhaseFailed      RunPhase = "failed"
)

// Terminal reports whether the phase is an end state.
func (p RunPhase) Terminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// RunProgress represents the current state of a run operation.
type RunProgress struct {
	RunID      string   `json:"runId"`
	ReportKey  string   `json:"reportKey"`
	Phase      RunPhase `json:"phase"`
	FileName   string   `json:"fileName,omitempty"`
	BytesRead  int64    `json:"bytesRead,omitempty"`
	BytesTotal int64    `json:"bytesTotal,omitempty"`
	Error      string   `json:"error,omitempty"` // Non-empty if Phase is PhaseFailed
}

// Percent returns the overall progress as a percentage (0-100).
// The reading phase scales with bytes consumed when the total is known;
// later phases advance through fixed checkpoints.
func (p RunProgress) Percent() int {
	switch p.Phase {
	case PhaseReading:
		if p.BytesTotal > 0 {
			pct := int(p.BytesRead * 40 / p.BytesTotal)
			if pct > 40 {
				pct = 40
			}
			return pct
		}
		return 10
	case PhaseParsing:
		return 50
	case PhaseGrouping:
		return 65
	case PhaseSerializing:
		return 80
	case PhaseArchiving:
		return 90
	case PhaseComplete, PhaseFailed:
		return 100
	}
	return 0
}

// RunResult contains the final outcome of a run.
// Archive bytes are held separately so results can outlive a revoked
// download; fetch them with [Service.Archive].
type RunResult struct {
	RunID       string                  `json:"runId"`
	ReportKey   string                  `json:"reportKey"`
	GroupColumn string                  `json:"groupColumn"`
	FileName    string                  `json:"fileName,omitempty"`
	ArchiveName string                  `json:"archiveName,omitempty"`
	ArchiveSize int                     `json:"archiveSize"`
	Entries     []pipeline.EntrySummary `json:"entries,omitempty"`
	Stats       pipeline.Stats          `json:"stats"`
	DurationMs  int64                   `json:"durationMs"`
	CompletedAt time.Time               `json:"completedAt"`
	Error       string                  `json:"error,omitempty"` // Non-empty if the run failed
}

// RunStatus combines live progress with the final result once available.
type RunStatus struct {
	Progress RunProgress `json:"progress"`
	Percent  int         `json:"percent"`
	Result   *RunResult  `json:"result,omitempty"`
}

// StartRunRequest carries the inputs for a new run.
type StartRunRequest struct {
	// ReportKey selects a registered ReportDefinition.
	ReportKey string

	// GroupColumn, when non-empty, overrides the definition's group column
	// for this run only.
	GroupColumn string

	// FileName is the client-supplied name, kept for display and history.
	FileName string

	// Source supplies the CSV bytes. It is read to completion in the run's
	// background goroutine, so it must stay readable after StartRun
	// returns; hand the service a buffered reader, not a request-scoped
	// body.
	Source io.Reader

	// Size is the expected byte count when known, 0 otherwise. Used for
	// progress reporting and the size limit check.
	Size int64
}
