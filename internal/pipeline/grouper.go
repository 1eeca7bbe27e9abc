package pipeline

import (
	"strings"
)

// GroupRows partitions rows into groups keyed by the value at column col,
// preserving input order within each group. Group order is the order of
// first appearance of each distinct key.
//
// Rows whose value at col is empty, whitespace-only, or absent are excluded
// from every group and counted in skipped. GroupRows fails with an
// EmptyResultError when no group is produced at all.
func GroupRows(rows []Row, col int) ([]Group, int, error) {
	var (
		groups  []Group
		byKey   = make(map[string]int)
		skipped int
	)

	for _, row := range rows {
		key := row.Cell(col)
		if strings.TrimSpace(key) == "" {
			skipped++
			continue
		}

		i, ok := byKey[key]
		if !ok {
			i = len(groups)
			byKey[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}

	if len(groups) == 0 {
		return nil, skipped, &EmptyResultError{TotalRows: len(rows), SkippedRows: skipped}
	}
	return groups, skipped, nil
}
