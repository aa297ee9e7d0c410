package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"phonehunt/internal/batch"
)

func testRun() *Run {
	started := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	return &Run{
		Input:      "input.csv",
		Output:     "output.csv",
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Minute),
		Summaries: []*batch.Summary{
			{
				RunID:    uuid.New(),
				Start:    1,
				End:      50,
				Resolved: 30,
				Skipped:  15,
				Outcomes: []batch.RecordOutcome{
					{Row: 7, Role: "IndirectName", Name: "JOHN SMITH", Outcome: batch.OutcomeUnresolved, Detail: "no matching candidate"},
				},
				Unresolved: 1,
			},
			{
				RunID:       uuid.New(),
				Start:       51,
				End:         100,
				Resolved:    5,
				Aborted:     true,
				AbortReason: "proxy unavailable: pool exhausted for today",
			},
		},
	}
}

func TestMarkdownWriterFullRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := NewMarkdownWriter(&buf).Write(testRun()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Phone Extraction Report",
		"Aborted (partial results)",
		"🟢 Resolved",
		"⚪ Skipped",
		"🟡 Unresolved",
		"35",
		"pool exhausted for today",
		"## Batches",
		"1-50",
		"51-100",
		"## Unresolved Records",
		"row 7, IndirectName: JOHN SMITH",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestMarkdownWriterCleanRun(t *testing.T) {
	t.Parallel()

	run := testRun()
	run.Summaries = []*batch.Summary{{RunID: uuid.New(), Start: 1, End: 10, Resolved: 10}}

	var buf bytes.Buffer
	if err := NewMarkdownWriter(&buf).Write(run); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "Complete") {
		t.Error("report missing clean status")
	}
	if strings.Contains(out, "## Unresolved Records") {
		t.Error("clean run should not list unresolved records")
	}
}

func TestRunTotals(t *testing.T) {
	t.Parallel()

	resolved, skipped, unresolved := testRun().Totals()
	if resolved != 35 || skipped != 15 || unresolved != 1 {
		t.Errorf("Totals = %d/%d/%d, want 35/15/1", resolved, skipped, unresolved)
	}
	if !testRun().Aborted() {
		t.Error("Aborted = false, want true")
	}
}
