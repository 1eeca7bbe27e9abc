package pipeline

import (
	"context"
	"errors"
)

// ErrNoGroupColumn is returned by Run when the config names no group-key
// column.
var ErrNoGroupColumn = errors.New("group-key column not configured")

// Run executes the full pipeline on one input: parse, group, serialize,
// archive. The same bytes and config always produce the same archive.
//
// Run materializes everything in memory and never retries: the first error
// aborts the run with no partial output. The context is consulted between
// stages so an orchestration deadline or shutdown can abandon a run; that
// surfaces as a ResourceError.
func Run(ctx context.Context, data []byte, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	if cfg.GroupColumn == "" {
		return nil, ErrNoGroupColumn
	}
	if err := ctx.Err(); err != nil {
		return nil, &ResourceError{Op: "read", Err: err}
	}

	stage := func(s Stage) {
		if cfg.OnStage != nil {
			cfg.OnStage(s)
		}
	}

	stage(StageParse)
	header, rows, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, &EmptyResultError{}
	}

	col, ok := header.Index(cfg.GroupColumn)
	if !ok {
		return nil, &SchemaError{Column: cfg.GroupColumn, Headers: header}
	}

	stage(StageGroup)
	groups, skipped, err := GroupRows(rows, col)
	if err != nil {
		return nil, err
	}

	stats := Stats{
		TotalRows:   len(rows),
		GroupedRows: len(rows) - skipped,
		SkippedRows: skipped,
		Groups:      len(groups),
	}
	cfg.Logger.Debug("rows grouped",
		"rows", stats.TotalRows,
		"groups", stats.Groups,
		"skipped_rows", stats.SkippedRows,
	)

	stage(StageSerialize)
	plans := PlanEntries(groups, cfg.Folder, cfg.FileSuffix)
	entries := make([]Entry, 0, len(groups))
	for i, plan := range plans {
		if err := ctx.Err(); err != nil {
			return nil, &ResourceError{Op: "serialize", Err: err}
		}

		if plan.Skip {
			stats.SkippedGroups++
			cfg.Logger.Debug("group name sanitized to nothing, skipping", "key", plan.Key)
			continue
		}
		if plan.Collided {
			stats.Collisions++
			cfg.Logger.Warn("entry name collision, renamed",
				"key", plan.Key,
				"entry", plan.Name,
			)
		}

		data, err := SerializeGroup(header, groups[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			Name: plan.Name,
			Key:  plan.Key,
			Rows: plan.Rows,
			Data: data,
		})
	}

	stage(StageArchive)
	archive, err := BuildArchive(entries)
	if err != nil {
		return nil, err
	}

	summaries := make([]EntrySummary, len(entries))
	for i, e := range entries {
		summaries[i] = EntrySummary{Name: e.Name, Key: e.Key, Rows: e.Rows, Size: len(e.Data)}
	}

	return &Result{Archive: archive, Entries: summaries, Stats: stats}, nil
}
