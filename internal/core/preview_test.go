package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/reportkit/splitcsv/internal/pipeline"
)

func newPreviewService(t *testing.T) *Service {
	t.Helper()
	return newTestService(t, ServiceOptions{Logger: slog.New(slog.DiscardHandler)})
}

func TestAnalyzeFile(t *testing.T) {
	svc := newPreviewService(t)

	res, err := svc.AnalyzeFile(context.Background(), "monthly", "", []byte(monthlyCSV))
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}

	if res.GroupColumn != "Development Name??" {
		t.Errorf("GroupColumn = %q, want the report's column", res.GroupColumn)
	}
	if len(res.Header) != 2 {
		t.Errorf("Header = %v, want 2 columns", res.Header)
	}
	if res.Stats.Groups != 2 || res.Stats.TotalRows != 3 {
		t.Errorf("Stats = %+v, want 2 groups over 3 rows", res.Stats)
	}
	if len(res.Groups) != 2 {
		t.Fatalf("Groups = %d, want 2", len(res.Groups))
	}

	alpha := res.Groups[0]
	if alpha.Key != "Alpha" {
		t.Errorf("first group = %q, want Alpha (first appearance order)", alpha.Key)
	}
	if alpha.EntryName != "Monthly_Reports/Alpha_Report.csv" {
		t.Errorf("EntryName = %q", alpha.EntryName)
	}
	if alpha.Rows != 2 || len(alpha.SampleRows) != 2 {
		t.Errorf("Alpha rows = %d with %d samples, want 2 and 2", alpha.Rows, len(alpha.SampleRows))
	}
	if res.TruncatedGroups {
		t.Error("TruncatedGroups = true for a two-group file")
	}
}

func TestAnalyzeFile_GroupColumnOverride(t *testing.T) {
	svc := newPreviewService(t)

	res, err := svc.AnalyzeFile(context.Background(), "monthly", "Amount", []byte(monthlyCSV))
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}
	if res.GroupColumn != "Amount" {
		t.Errorf("GroupColumn = %q, want %q", res.GroupColumn, "Amount")
	}
	if res.Stats.Groups != 3 {
		t.Errorf("Stats.Groups = %d, want 3 distinct amounts", res.Stats.Groups)
	}
}

func TestAnalyzeFile_SchemaError(t *testing.T) {
	svc := newPreviewService(t)

	_, err := svc.AnalyzeFile(context.Background(), "monthly", "Nope", []byte(monthlyCSV))

	var schemaErr *pipeline.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schemaErr.Column != "Nope" {
		t.Errorf("SchemaError.Column = %q, want %q", schemaErr.Column, "Nope")
	}
}

func TestAnalyzeFile_UnknownReport(t *testing.T) {
	svc := newPreviewService(t)

	if _, err := svc.AnalyzeFile(context.Background(), "quarterly", "", []byte(monthlyCSV)); !errors.Is(err, ErrUnknownReport) {
		t.Errorf("expected ErrUnknownReport, got %v", err)
	}
}

func TestAnalyzeFile_CountsCollisionsAndSkips(t *testing.T) {
	svc := newPreviewService(t)

	csv := "Development Name??,Amount\nAlpha,1\nAlpha?,2\n??,3\n"
	res, err := svc.AnalyzeFile(context.Background(), "monthly", "", []byte(csv))
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}

	if res.Stats.Collisions != 1 {
		t.Errorf("Stats.Collisions = %d, want 1 (Alpha? renames)", res.Stats.Collisions)
	}
	if res.Stats.SkippedGroups != 1 {
		t.Errorf("Stats.SkippedGroups = %d, want 1 (?? sanitizes to nothing)", res.Stats.SkippedGroups)
	}

	var renamed, skipped bool
	for _, g := range res.Groups {
		if g.Key == "Alpha?" && g.Renamed && g.EntryName == "Monthly_Reports/Alpha_2_Report.csv" {
			renamed = true
		}
		if g.Key == "??" && g.Skipped {
			skipped = true
		}
	}
	if !renamed {
		t.Error("preview does not show the renamed Alpha? group")
	}
	if !skipped {
		t.Error("preview does not show the skipped ?? group")
	}
}

func TestAnalyzeFile_TruncatesLongGroupLists(t *testing.T) {
	svc := newPreviewService(t)

	var b strings.Builder
	b.WriteString("Development Name??,Amount\n")
	for i := 0; i < maxPreviewGroups+10; i++ {
		fmt.Fprintf(&b, "Dev %d,%d\n", i, i)
	}

	res, err := svc.AnalyzeFile(context.Background(), "monthly", "", []byte(b.String()))
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}

	if len(res.Groups) != maxPreviewGroups {
		t.Errorf("Groups = %d, want capped at %d", len(res.Groups), maxPreviewGroups)
	}
	if !res.TruncatedGroups {
		t.Error("TruncatedGroups should be set")
	}
	if res.Stats.Groups != maxPreviewGroups+10 {
		t.Errorf("Stats.Groups = %d, want the uncapped count %d", res.Stats.Groups, maxPreviewGroups+10)
	}
}

func TestAnalyzeFile_SampleRowsCapped(t *testing.T) {
	svc := newPreviewService(t)

	var b strings.Builder
	b.WriteString("Development Name??,Amount\n")
	for i := 0; i < maxPreviewSampleRows+5; i++ {
		fmt.Fprintf(&b, "Alpha,%d\n", i)
	}

	res, err := svc.AnalyzeFile(context.Background(), "monthly", "", []byte(b.String()))
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}

	if len(res.Groups) != 1 {
		t.Fatalf("Groups = %d, want 1", len(res.Groups))
	}
	if got := len(res.Groups[0].SampleRows); got != maxPreviewSampleRows {
		t.Errorf("SampleRows = %d, want capped at %d", got, maxPreviewSampleRows)
	}
	if res.Groups[0].Rows != maxPreviewSampleRows+5 {
		t.Errorf("Rows = %d, want the uncapped count", res.Groups[0].Rows)
	}
}
