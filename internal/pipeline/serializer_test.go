package pipeline

import (
	"reflect"
	"testing"
)

// ============================================================================
// SerializeGroup Tests
// ============================================================================

func TestSerializeGroup(t *testing.T) {
	tests := []struct {
		name   string
		header Header
		group  Group
		want   string
	}{
		{
			name:   "plain rows under original header",
			header: Header{"Name", "Amount"},
			group: Group{Key: "Alpha", Rows: []Row{
				{"Alpha", "10"},
				{"Alpha", "30"},
			}},
			want: "Name,Amount\nAlpha,10\nAlpha,30\n",
		},
		{
			name:   "short rows pad with empty fields",
			header: Header{"A", "B", "C"},
			group: Group{Key: "x", Rows: []Row{
				{"x"},
			}},
			want: "A,B,C\nx,,\n",
		},
		{
			name:   "long rows drop cells beyond the header",
			header: Header{"A", "B"},
			group: Group{Key: "x", Rows: []Row{
				{"x", "1", "extra"},
			}},
			want: "A,B\nx,1\n",
		},
		{
			name:   "delimiters and quotes escaped",
			header: Header{"Name", "Note"},
			group: Group{Key: "Smith, John", Rows: []Row{
				{"Smith, John", `said "hi"`},
			}},
			want: "Name,Note\n\"Smith, John\",\"said \"\"hi\"\"\"\n",
		},
		{
			name:   "embedded newline quoted",
			header: Header{"Name", "Note"},
			group: Group{Key: "a", Rows: []Row{
				{"a", "one\ntwo"},
			}},
			want: "Name,Note\na,\"one\ntwo\"\n",
		},
		{
			name:   "no data rows still emits header line",
			header: Header{"Name", "Amount"},
			group:  Group{Key: "a"},
			want:   "Name,Amount\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SerializeGroup(tt.header, tt.group)
			if err != nil {
				t.Fatalf("SerializeGroup() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("SerializeGroup() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestSerializeGroup_RoundTrip serializes a group and re-parses it,
// expecting the exact original values back.
func TestSerializeGroup_RoundTrip(t *testing.T) {
	header := Header{"Development Name??", "Amount", "Note"}
	group := Group{Key: "Alpha", Rows: []Row{
		{"Alpha", "007", `tricky "quoted" value`},
		{"Alpha", "1e3", "line\nbreak, and comma"},
	}}

	data, err := SerializeGroup(header, group)
	if err != nil {
		t.Fatalf("SerializeGroup() error = %v", err)
	}

	gotHeader, gotRows, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(serialized) error = %v", err)
	}
	if !reflect.DeepEqual(gotHeader, header) {
		t.Errorf("round-trip header = %q, want %q", gotHeader, header)
	}
	if !reflect.DeepEqual(gotRows, []Row(group.Rows)) {
		t.Errorf("round-trip rows = %q, want %q", gotRows, group.Rows)
	}
}

// ============================================================================
// SanitizeGroupName Tests
// ============================================================================

func TestSanitizeGroupName(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{name: "plain word unchanged", key: "Alpha", want: "Alpha"},
		{name: "spaces become underscores", key: "North Tower", want: "North_Tower"},
		{name: "whitespace runs collapse", key: "North \t  Tower", want: "North_Tower"},
		{name: "punctuation stripped", key: "St. John's Court", want: "St_Johns_Court"},
		{name: "hyphen kept", key: "Building-7", want: "Building-7"},
		{name: "leading and trailing whitespace trimmed", key: "  Alpha  ", want: "Alpha"},
		{name: "non-ASCII letters dropped", key: "Café", want: "Caf"},
		{name: "digits kept", key: "Unit 42", want: "Unit_42"},
		{name: "slashes stripped", key: "A/B\\C", want: "ABC"},
		{name: "underscores in key are stripped", key: "_Alpha_", want: "Alpha"},
		{name: "only punctuation yields empty", key: "??!!", want: ""},
		{name: "empty key yields empty", key: "", want: ""},
		{name: "hyphen island survives", key: "- -", want: "-_-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeGroupName(tt.key)
			if got != tt.want {
				t.Errorf("SanitizeGroupName(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

// TestSanitizeGroupName_Deterministic runs the transform repeatedly over the
// same key and expects identical output every time.
func TestSanitizeGroupName_Deterministic(t *testing.T) {
	key := "  Per?plex -- ing\tname 99 "
	first := SanitizeGroupName(key)
	for i := 0; i < 50; i++ {
		if got := SanitizeGroupName(key); got != first {
			t.Fatalf("SanitizeGroupName(%q) = %q on run %d, want %q", key, got, i, first)
		}
	}
}

// ============================================================================
// PlanEntries Tests
// ============================================================================

func TestPlanEntries(t *testing.T) {
	groups := []Group{
		{Key: "Alpha", Rows: []Row{{"Alpha", "1"}}},
		{Key: "Beta", Rows: []Row{{"Beta", "2"}, {"Beta", "3"}}},
	}

	plans := PlanEntries(groups, "", "")
	want := []EntryPlan{
		{Key: "Alpha", Name: "Monthly_Reports/Alpha_Report.csv", Rows: 1},
		{Key: "Beta", Name: "Monthly_Reports/Beta_Report.csv", Rows: 2},
	}
	if !reflect.DeepEqual(plans, want) {
		t.Errorf("PlanEntries() = %+v, want %+v", plans, want)
	}
}

func TestPlanEntries_Collisions(t *testing.T) {
	groups := []Group{
		{Key: "Alpha"},
		{Key: "Alpha?"},  // sanitizes to Alpha
		{Key: "Alpha!!"}, // sanitizes to Alpha
	}

	plans := PlanEntries(groups, "", "")

	wantNames := []string{
		"Monthly_Reports/Alpha_Report.csv",
		"Monthly_Reports/Alpha_2_Report.csv",
		"Monthly_Reports/Alpha_3_Report.csv",
	}
	for i, plan := range plans {
		if plan.Name != wantNames[i] {
			t.Errorf("plans[%d].Name = %q, want %q", i, plan.Name, wantNames[i])
		}
	}
	if plans[0].Collided {
		t.Error("plans[0].Collided = true, want false for the first claimant")
	}
	if !plans[1].Collided || !plans[2].Collided {
		t.Error("later claimants not marked Collided")
	}
}

// TestPlanEntries_CollisionWithNaturalName covers a synthesized name landing
// on a base another key produces naturally.
func TestPlanEntries_CollisionWithNaturalName(t *testing.T) {
	groups := []Group{
		{Key: "Alpha"},
		{Key: "Alpha 2"}, // naturally sanitizes to Alpha_2
		{Key: "Alpha?"},  // would synthesize Alpha_2, must step past it
	}

	plans := PlanEntries(groups, "", "")

	wantNames := []string{
		"Monthly_Reports/Alpha_Report.csv",
		"Monthly_Reports/Alpha_2_Report.csv",
		"Monthly_Reports/Alpha_3_Report.csv",
	}
	for i, plan := range plans {
		if plan.Name != wantNames[i] {
			t.Errorf("plans[%d].Name = %q, want %q", i, plan.Name, wantNames[i])
		}
	}
}

func TestPlanEntries_UnnameableGroupSkipped(t *testing.T) {
	groups := []Group{
		{Key: "??"},
		{Key: "Beta"},
	}

	plans := PlanEntries(groups, "", "")

	if !plans[0].Skip {
		t.Error("plans[0].Skip = false, want true for unnameable key")
	}
	if plans[0].Name != "" {
		t.Errorf("plans[0].Name = %q, want empty", plans[0].Name)
	}
	if plans[1].Skip || plans[1].Name != "Monthly_Reports/Beta_Report.csv" {
		t.Errorf("plans[1] = %+v, want named Beta entry", plans[1])
	}
}

func TestPlanEntries_CustomFolderAndSuffix(t *testing.T) {
	groups := []Group{{Key: "Alpha"}}

	plans := PlanEntries(groups, "Weekly", "_Extract.csv")
	if plans[0].Name != "Weekly/Alpha_Extract.csv" {
		t.Errorf("plans[0].Name = %q, want %q", plans[0].Name, "Weekly/Alpha_Extract.csv")
	}
}
