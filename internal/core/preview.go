package core

import (
	"context"
	"fmt"
	"time"

	"github.com/reportkit/splitcsv/internal/pipeline"
)

// GroupPreview describes one group the split would produce.
type GroupPreview struct {
	Key        string     `json:"key"`
	EntryName  string     `json:"entryName,omitempty"`
	Rows       int        `json:"rows"`
	Skipped    bool       `json:"skipped,omitempty"`
	Renamed    bool       `json:"renamed,omitempty"`
	SampleRows [][]string `json:"sampleRows,omitempty"`
}

// PreviewResponse is the complete response from a preview analysis.
type PreviewResponse struct {
	ReportKey        string         `json:"reportKey"`
	GroupColumn      string         `json:"groupColumn"`
	Header           []string       `json:"header"`
	Stats            pipeline.Stats `json:"stats"`
	Groups           []GroupPreview `json:"groups"`
	TruncatedGroups  bool           `json:"truncatedGroups,omitempty"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
}

// Sample limits
const (
	maxPreviewGroups     = 25
	maxPreviewSampleRows = 5
)

// AnalyzeFile performs a read-only dry run of a split.
// It parses and groups the input and reports what the archive would
// contain, without serializing or archiving anything. The same error
// taxonomy as a real run applies, so callers can surface identical
// messages either way.
func (s *Service) AnalyzeFile(ctx context.Context, reportKey, groupColumn string, data []byte) (*PreviewResponse, error) {
	startTime := time.Now()

	def, ok := Get(reportKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReport, reportKey)
	}

	cfg := def.PipelineConfig()
	if groupColumn != "" {
		cfg.GroupColumn = groupColumn
	}

	if err := ctx.Err(); err != nil {
		return nil, &pipeline.ResourceError{Op: "read", Err: err}
	}

	header, rows, err := pipeline.Parse(data)
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, &pipeline.EmptyResultError{}
	}

	col, ok := header.Index(cfg.GroupColumn)
	if !ok {
		return nil, &pipeline.SchemaError{Column: cfg.GroupColumn, Headers: header}
	}

	groups, skipped, err := pipeline.GroupRows(rows, col)
	if err != nil {
		return nil, err
	}

	folder := cfg.Folder
	if folder == "" {
		folder = pipeline.DefaultFolder
	}
	suffix := cfg.FileSuffix
	if suffix == "" {
		suffix = pipeline.DefaultFileSuffix
	}
	plans := pipeline.PlanEntries(groups, folder, suffix)

	stats := pipeline.Stats{
		TotalRows:   len(rows),
		GroupedRows: len(rows) - skipped,
		SkippedRows: skipped,
		Groups:      len(groups),
	}

	previews := make([]GroupPreview, 0, min(len(groups), maxPreviewGroups))
	for i, plan := range plans {
		if plan.Skip {
			stats.SkippedGroups++
		}
		if plan.Collided {
			stats.Collisions++
		}
		if i >= maxPreviewGroups {
			continue
		}

		gp := GroupPreview{
			Key:       plan.Key,
			EntryName: plan.Name,
			Rows:      plan.Rows,
			Skipped:   plan.Skip,
			Renamed:   plan.Collided,
		}
		for _, row := range groups[i].Rows[:min(len(groups[i].Rows), maxPreviewSampleRows)] {
			gp.SampleRows = append(gp.SampleRows, row)
		}
		previews = append(previews, gp)
	}

	return &PreviewResponse{
		ReportKey:        reportKey,
		GroupColumn:      cfg.GroupColumn,
		Header:           header,
		Stats:            stats,
		Groups:           previews,
		TruncatedGroups:  len(groups) > maxPreviewGroups,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	}, nil
}
