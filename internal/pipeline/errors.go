package pipeline

// errors.go defines the pipeline error taxonomy. Every error here is
// terminal for its run: callers receive exactly one of these and never a
// partial result.

import (
	"fmt"
	"strings"
)

// Diagnostic is one tokenizer complaint tied to an input line.
type Diagnostic struct {
	Line    int    // 1-based input line number, 0 when unknown
	Message string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d: %s", d.Line, d.Message)
	}
	return d.Message
}

// ParseError reports malformed CSV structure. The run aborts before any
// grouping occurs.
type ParseError struct {
	Diags []Diagnostic
}

func (e *ParseError) Error() string {
	switch len(e.Diags) {
	case 0:
		return "malformed CSV"
	case 1:
		return "malformed CSV: " + e.Diags[0].String()
	default:
		return fmt.Sprintf("malformed CSV: %s (and %d more)", e.Diags[0].String(), len(e.Diags)-1)
	}
}

// SchemaError reports that the configured group-key column is absent from
// the header row.
type SchemaError struct {
	Column  string
	Headers []string
}

func (e *SchemaError) Error() string {
	if len(e.Headers) == 0 {
		return fmt.Sprintf("column %q not found: input has no header row", e.Column)
	}
	return fmt.Sprintf("column %q not found in header (have: %s)", e.Column, strings.Join(e.Headers, ", "))
}

// EmptyResultError reports that parsing succeeded but grouping produced
// nothing to archive.
type EmptyResultError struct {
	TotalRows   int
	SkippedRows int
}

func (e *EmptyResultError) Error() string {
	if e.TotalRows == 0 {
		return "no data rows found after the header"
	}
	return fmt.Sprintf("no groups produced: all %d rows lacked a group-key value", e.TotalRows)
}

// ResourceError reports a failure acquiring the input bytes or finalizing
// the archive.
type ResourceError struct {
	Op  string // "read", "serialize", or "archive"
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
