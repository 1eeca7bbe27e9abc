package pipeline

// serializer.go renders groups back to CSV text and derives each group's
// archive filename.
//
// Filenames follow a fixed transform of the group key (see SanitizeGroupName)
// plus a collision policy: the first key to claim a sanitized base owns it,
// and every later key reducing to the same base gets _2, _3, ... appended to
// the base before the suffix. Two distinct keys therefore never overwrite
// one another's entry.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode"
)

// SerializeGroup renders one group as CSV text: the full original header
// list first, then the group's rows in order. Rows shorter than the header
// pad missing cells with empty strings; cells beyond the header are dropped.
// Quoting follows RFC 4180 (fields holding the delimiter, a quote, or a
// line break are quoted, embedded quotes doubled).
func SerializeGroup(header Header, g Group) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, &ResourceError{Op: "serialize", Err: err}
	}
	for _, row := range g.Rows {
		if err := w.Write(alignRow(row, len(header))); err != nil {
			return nil, &ResourceError{Op: "serialize", Err: err}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, &ResourceError{Op: "serialize", Err: err}
	}
	return buf.Bytes(), nil
}

// alignRow fits a row to the header width.
func alignRow(row Row, width int) []string {
	if len(row) == width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

// SanitizeGroupName reduces a group key to a filename-safe base name:
// every character other than an ASCII letter, digit, whitespace, or hyphen
// is dropped; runs of whitespace collapse to a single underscore; leading
// and trailing underscores are trimmed. An empty result means the group
// cannot be named and is skipped by the caller.
func SanitizeGroupName(key string) string {
	var b strings.Builder
	b.Grow(len(key))

	inSpace := false
	for _, r := range key {
		switch {
		case r == '-' ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9'):
			if inSpace && b.Len() > 0 {
				b.WriteByte('_')
			}
			inSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			inSpace = true
		}
	}

	return strings.Trim(b.String(), "_")
}

// EntryPlan records the archive filename decision for one group.
type EntryPlan struct {
	Key      string `json:"key"`
	Name     string `json:"name"` // full entry path; empty when Skip
	Rows     int    `json:"rows"`
	Skip     bool   `json:"skip"`     // sanitized base was empty
	Collided bool   `json:"collided"` // renamed by the collision policy
}

// PlanEntries computes the archive entry name for every group in order.
// The result has one plan per group, groups unchanged. Planning is
// deterministic: the same groups in the same order always yield the same
// names.
func PlanEntries(groups []Group, folder, suffix string) []EntryPlan {
	if folder == "" {
		folder = DefaultFolder
	}
	if suffix == "" {
		suffix = DefaultFileSuffix
	}

	plans := make([]EntryPlan, 0, len(groups))
	used := make(map[string]int)

	for _, g := range groups {
		plan := EntryPlan{Key: g.Key, Rows: len(g.Rows)}

		base := SanitizeGroupName(g.Key)
		if base == "" {
			plan.Skip = true
			plans = append(plans, plan)
			continue
		}

		base, plan.Collided = claimBase(base, used)
		plan.Name = folder + "/" + base + suffix
		plans = append(plans, plan)
	}

	return plans
}

// claimBase reserves a unique base name, disambiguating with a numeric
// suffix when the natural base is already taken.
func claimBase(base string, used map[string]int) (string, bool) {
	n := used[base]
	used[base] = n + 1
	if n == 0 {
		return base, false
	}

	for {
		candidate := fmt.Sprintf("%s_%d", base, n+1)
		if used[candidate] == 0 {
			used[candidate] = 1
			return candidate, true
		}
		n++
	}
}
