package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"phonehunt/internal/batch"
	"phonehunt/internal/dataset"
	"phonehunt/internal/export"
	"phonehunt/internal/history"
	"phonehunt/internal/notify"
	"phonehunt/internal/report"
)

// LoadInput reads the input CSV into the state.
type LoadInput struct{}

func (LoadInput) Name() string { return "load_input" }

func (LoadInput) Do(_ context.Context, state *State) error {
	table, err := dataset.Load(state.InputPath)
	if err != nil {
		return fmt.Errorf("load %s: %w", state.InputPath, err)
	}
	state.Table = table
	return nil
}

// EnsureResultColumns adds the per-role phone and match columns so the
// output schema is stable even when nothing resolves.
type EnsureResultColumns struct{}

func (EnsureResultColumns) Name() string { return "ensure_columns" }

func (EnsureResultColumns) Do(_ context.Context, state *State) error {
	if state.Table == nil {
		return errors.New("no table loaded")
	}
	for _, role := range dataset.Roles {
		dataset.EnsurePhoneColumns(state.Table, role)
	}
	return nil
}

// RunBatches walks rows Start..End in windows of BatchSize. Each window
// is processed on its own copy, saved as a work artifact, and its phone
// columns folded back into the combined table. An aborted batch stops
// the walk; whatever merged before the abort stays. Zero Start/End mean
// the whole table.
type RunBatches struct {
	Orchestrator *batch.Orchestrator
	Start        int
	End          int
	BatchSize    int
	BatchDelay   time.Duration
	WorkDir      string
	Log          zerolog.Logger
}

func (s *RunBatches) Name() string { return "run_batches" }

func (s *RunBatches) Do(ctx context.Context, state *State) error {
	if state.Table == nil {
		return errors.New("no table loaded")
	}

	first, last, ok := state.Table.ClampRange(s.Start, s.End)
	if !ok {
		s.Log.Warn().Int("start", s.Start).Int("end", s.End).Msg("nothing to process in range")
		return nil
	}

	size := s.BatchSize
	if size <= 0 {
		size = last - first + 1
	}

	for start := first; start <= last; start += size {
		end := start + size - 1
		if end > last {
			end = last
		}

		slice := state.Table.Slice(start, end)
		summary, runErr := s.Orchestrator.ProcessBatch(ctx, slice, 1, slice.RowCount())
		if summary != nil {
			summary.Rebase(start - 1)
			state.Summaries = append(state.Summaries, summary)
		}

		if s.WorkDir != "" {
			artifact := filepath.Join(s.WorkDir, fmt.Sprintf("batch_%04d_%04d.csv", start, end))
			if err := slice.Save(artifact); err != nil {
				s.Log.Warn().Err(err).Str("path", artifact).Msg("could not save batch artifact")
			}
		}
		if err := dataset.MergePhoneColumns(state.Table, slice, start-1); err != nil {
			return fmt.Errorf("merge batch %d-%d: %w", start, end, err)
		}

		if runErr != nil {
			return runErr
		}
		if summary != nil && summary.Aborted {
			s.Log.Warn().Int("start", start).Int("end", end).Msg("batch aborted, stopping the walk")
			return nil
		}

		if end < last && s.BatchDelay > 0 {
			select {
			case <-time.After(s.BatchDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// WriteCombined saves the combined table to the output path.
type WriteCombined struct{}

func (WriteCombined) Name() string { return "write_output" }

func (WriteCombined) Do(_ context.Context, state *State) error {
	if state.Table == nil {
		return errors.New("no table loaded")
	}
	if err := state.Table.Save(state.OutputPath); err != nil {
		return fmt.Errorf("save %s: %w", state.OutputPath, err)
	}
	return nil
}

// ExportSpreadsheet writes the Excel workbook. A blank path disables
// the step; a failed export is logged and never fails the run, because
// the combined CSV already carries the results.
type ExportSpreadsheet struct {
	Exporter *export.Exporter
	Path     string
	Log      zerolog.Logger
}

func (s *ExportSpreadsheet) Name() string { return "export_xlsx" }

func (s *ExportSpreadsheet) Do(_ context.Context, state *State) error {
	if s.Path == "" {
		return nil
	}
	exporter := s.Exporter
	if exporter == nil {
		exporter = export.NewExporter()
	}
	if err := exporter.ExportFile(state.Table, state.Summaries, s.Path); err != nil {
		s.Log.Warn().Err(err).Str("path", s.Path).Msg("spreadsheet export failed")
	}
	return nil
}

// WriteRunReport renders the Markdown run report. A blank path disables
// the step; a failed report is logged and never fails the run.
type WriteRunReport struct {
	Path string
	Log  zerolog.Logger
}

func (s *WriteRunReport) Name() string { return "write_report" }

func (s *WriteRunReport) Do(_ context.Context, state *State) error {
	if s.Path == "" {
		return nil
	}

	f, err := os.Create(s.Path)
	if err != nil {
		s.Log.Warn().Err(err).Str("path", s.Path).Msg("cannot create run report")
		return nil
	}
	defer f.Close()

	run := &report.Run{
		Input:      state.InputPath,
		Output:     state.OutputPath,
		StartedAt:  state.StartedAt,
		FinishedAt: time.Now(),
		Summaries:  state.Summaries,
	}
	if err := report.NewMarkdownWriter(f).Write(run); err != nil {
		s.Log.Warn().Err(err).Str("path", s.Path).Msg("run report failed")
	}
	return nil
}

// RecordHistory stores every batch summary in the runs ledger. A nil
// store disables the step; ledger failures are logged and never fail
// the run.
type RecordHistory struct {
	Store *history.Store
	Log   zerolog.Logger
}

func (s *RecordHistory) Name() string { return "record_history" }

func (s *RecordHistory) Do(ctx context.Context, state *State) error {
	if s.Store == nil {
		return nil
	}
	for _, sum := range state.Summaries {
		if err := s.Store.RecordRun(ctx, sum, state.InputPath, state.OutputPath); err != nil {
			s.Log.Warn().Err(err).Str("run", sum.RunID.String()).Msg("cannot record run")
		}
	}
	return nil
}

// SendNotification tells the configured channels the run is done. A
// notification failure is logged and never fails the run.
type SendNotification struct {
	Notifier notify.Notifier
	Log      zerolog.Logger
}

func (s *SendNotification) Name() string { return "notify" }

func (s *SendNotification) Do(ctx context.Context, state *State) error {
	notifier := s.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}

	resolved, skipped, unresolved := state.Totals()
	info := &notify.RunInfo{
		Input:      state.InputPath,
		Output:     state.OutputPath,
		Resolved:   resolved,
		Skipped:    skipped,
		Unresolved: unresolved,
		Aborted:    state.Aborted(),
		Duration:   time.Since(state.StartedAt),
	}
	for _, sum := range state.Summaries {
		if sum.Aborted {
			info.AbortReason = sum.AbortReason
			break
		}
	}
	if err := notifier.RunCompleted(ctx, info); err != nil {
		s.Log.Warn().Err(err).Msg("notification failed")
	}
	return nil
}
