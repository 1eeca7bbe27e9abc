package pipeline

import (
	"log/slog"
)

// DefaultFolder is the subfolder inside the archive that holds every entry.
const DefaultFolder = "Monthly_Reports"

// DefaultFileSuffix is appended to each sanitized group name to form an
// entry filename.
const DefaultFileSuffix = "_Report.csv"

// Header is the ordered list of column names captured from the first
// non-empty record of the input. It is immutable for the duration of a run.
type Header []string

// Index returns the position of the named column. Matching is exact and
// case-sensitive on the header text as parsed.
func (h Header) Index(name string) (int, bool) {
	for i, col := range h {
		if col == name {
			return i, true
		}
	}
	return 0, false
}

// Row holds one record's cells, aligned positionally to the run's Header.
// Rows may be shorter than the header; missing cells read as empty strings.
type Row []string

// Cell returns the value at position i, or "" when the row is short.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Group is a named bucket of rows sharing one group-key value. Rows keep
// their original input order; buckets are never merged or split.
type Group struct {
	Key  string
	Rows []Row
}

// Entry is one serialized CSV file destined for the archive.
type Entry struct {
	Name string // full path inside the archive, folder included
	Key  string // originating group key
	Rows int    // data rows, excluding the header line
	Data []byte
}

// EntrySummary describes an archive entry without carrying its bytes.
type EntrySummary struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	Rows int    `json:"rows"`
	Size int    `json:"size"`
}

// Stage identifies the phase a run is about to enter. Stages are reported
// in order; a run that fails reports no further stages.
type Stage string

const (
	StageParse     Stage = "parse"
	StageGroup     Stage = "group"
	StageSerialize Stage = "serialize"
	StageArchive   Stage = "archive"
)

// Config controls a pipeline run.
type Config struct {
	// GroupColumn is the header name whose value assigns each row to a
	// group. Required.
	GroupColumn string

	// Folder is the subfolder inside the archive; DefaultFolder when empty.
	Folder string

	// FileSuffix is appended to sanitized group names; DefaultFileSuffix
	// when empty.
	FileSuffix string

	// Logger receives diagnostics for dropped rows, skipped groups, and
	// filename collisions. Discarded when nil.
	Logger *slog.Logger

	// OnStage, when set, is called synchronously as each stage begins.
	// Callbacks must be fast; they run on the caller's goroutine.
	OnStage func(Stage)
}

func (c Config) withDefaults() Config {
	if c.Folder == "" {
		c.Folder = DefaultFolder
	}
	if c.FileSuffix == "" {
		c.FileSuffix = DefaultFileSuffix
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Stats counts what one run did with its input.
type Stats struct {
	TotalRows     int `json:"totalRows"`     // data rows parsed, empty lines excluded
	GroupedRows   int `json:"groupedRows"`   // rows placed into a group
	SkippedRows   int `json:"skippedRows"`   // rows lacking a usable group-key value
	Groups        int `json:"groups"`        // distinct group keys
	SkippedGroups int `json:"skippedGroups"` // groups whose sanitized name was empty
	Collisions    int `json:"collisions"`    // entries renamed by the collision policy
}

// Result is the outcome of a successful run.
type Result struct {
	Archive []byte
	Entries []EntrySummary
	Stats   Stats
}
