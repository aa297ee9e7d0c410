package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"phonehunt/internal/batch"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleSummary(start, end int) *batch.Summary {
	now := time.Now()
	return &batch.Summary{
		RunID:      uuid.New(),
		Start:      start,
		End:        end,
		Resolved:   2,
		Skipped:    1,
		Unresolved: 1,
		Outcomes: []batch.RecordOutcome{
			{Row: start, Role: "IndirectName", Name: "JOHN SMITH", Outcome: batch.OutcomeResolved, Phone: "(954) 555-0100"},
			{Row: start + 1, Role: "DirectName", Name: "JANE DOE", Outcome: batch.OutcomeUnresolved, Detail: "no matching candidate"},
		},
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: now,
	}
}

func TestRecordAndRecentRuns(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	first := sampleSummary(1, 50)
	first.StartedAt = time.Now().Add(-2 * time.Hour)
	second := sampleSummary(51, 100)
	second.Aborted = true
	second.AbortReason = "proxy unavailable: pool exhausted for today"

	if err := s.RecordRun(ctx, first, "input.csv", "output.csv"); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := s.RecordRun(ctx, second, "input.csv", "output.csv"); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	runs, err := s.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].RunID != second.RunID.String() {
		t.Errorf("newest run = %s, want %s", runs[0].RunID, second.RunID)
	}
	if !runs[0].Aborted || runs[0].AbortReason == "" {
		t.Errorf("abort state lost: %+v", runs[0])
	}
	if runs[1].Resolved != 2 || runs[1].Skipped != 1 {
		t.Errorf("counters lost: %+v", runs[1])
	}
	if runs[0].StartedAt.IsZero() {
		t.Error("StartedAt did not round-trip")
	}
}

func TestRecentRunsLimit(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		sum := sampleSummary(i*10+1, i*10+10)
		sum.StartedAt = time.Now().Add(time.Duration(i) * time.Minute)
		if err := s.RecordRun(ctx, sum, "input.csv", "output.csv"); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	runs, err := s.RecentRuns(ctx, 3)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("len(runs) = %d, want 3", len(runs))
	}
}

func TestOutcomesRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	sum := sampleSummary(1, 10)
	if err := s.RecordRun(ctx, sum, "input.csv", "output.csv"); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	outcomes, err := s.Outcomes(ctx, sum.RunID.String())
	if err != nil {
		t.Fatalf("Outcomes: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("len(outcomes) = %d, want 2", len(outcomes))
	}
	if outcomes[0].Phone != "(954) 555-0100" {
		t.Errorf("phone = %q, want %q", outcomes[0].Phone, "(954) 555-0100")
	}
	if outcomes[1].Detail != "no matching candidate" {
		t.Errorf("detail = %q, want %q", outcomes[1].Detail, "no matching candidate")
	}
}

func TestLastResolvedRow(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	row, err := s.LastResolvedRow(ctx, "input.csv")
	if err != nil {
		t.Fatalf("LastResolvedRow: %v", err)
	}
	if row != 0 {
		t.Errorf("row = %d, want 0 before any runs", row)
	}

	if err := s.RecordRun(ctx, sampleSummary(40, 60), "input.csv", "output.csv"); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	row, err = s.LastResolvedRow(ctx, "input.csv")
	if err != nil {
		t.Fatalf("LastResolvedRow: %v", err)
	}
	if row != 40 {
		t.Errorf("row = %d, want 40", row)
	}

	row, err = s.LastResolvedRow(ctx, "other.csv")
	if err != nil {
		t.Fatalf("LastResolvedRow: %v", err)
	}
	if row != 0 {
		t.Errorf("row = %d for unknown input, want 0", row)
	}
}
