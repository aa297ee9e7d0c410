package batch

import (
	"time"

	"github.com/google/uuid"
)

// Outcome classifies how one sub-record ended.
type Outcome string

const (
	// OutcomeResolved means phones were written.
	OutcomeResolved Outcome = "resolved"
	// OutcomeSkipped means the sub-record was rejected before any
	// network activity: invalid input, filtered type, or already
	// carrying a phone.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeUnresolved means a search ran but produced no usable
	// match, or the session failed.
	OutcomeUnresolved Outcome = "unresolved"
)

// RecordOutcome is one sub-record's result, kept for run reports.
type RecordOutcome struct {
	Row     int
	Role    string
	Name    string
	Outcome Outcome
	Detail  string
	Phone   string
}

// Summary is what a batch run hands back: counters per outcome, the
// abort state, and the per-record trail. Counts are per sub-record;
// one row carries up to two.
type Summary struct {
	RunID       uuid.UUID
	Start       int
	End         int
	Resolved    int
	Skipped     int
	Unresolved  int
	Aborted     bool
	AbortReason string
	Outcomes    []RecordOutcome
	StartedAt   time.Time
	FinishedAt  time.Time
}

func newSummary(start, end int) *Summary {
	return &Summary{
		RunID:     uuid.New(),
		Start:     start,
		End:       end,
		StartedAt: time.Now(),
	}
}

func (s *Summary) record(row int, role, name string, outcome Outcome, detail, phone string) {
	switch outcome {
	case OutcomeResolved:
		s.Resolved++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeUnresolved:
		s.Unresolved++
	}
	s.Outcomes = append(s.Outcomes, RecordOutcome{
		Row:     row,
		Role:    role,
		Name:    name,
		Outcome: outcome,
		Detail:  detail,
		Phone:   phone,
	})
}

// Processed reports how many sub-records were looked at.
func (s *Summary) Processed() int {
	return s.Resolved + s.Skipped + s.Unresolved
}

// Rebase shifts the summary's row numbers by offset. Used when a batch
// ran against a slice of a larger table and the rows need to be
// reported in the combined table's numbering.
func (s *Summary) Rebase(offset int) {
	s.Start += offset
	s.End += offset
	for i := range s.Outcomes {
		s.Outcomes[i].Row += offset
	}
}
