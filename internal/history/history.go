// Package history keeps a local ledger of past runs in SQLite, so
// operators can see what ranges were processed, how they went, and
// which records still need attention. The ledger is bookkeeping only;
// resume decisions come from the phone columns in the data itself.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"phonehunt/internal/batch"
)

// Store wraps the runs database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the ledger at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: path}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		input TEXT NOT NULL,
		output TEXT NOT NULL,
		start_row INTEGER NOT NULL,
		end_row INTEGER NOT NULL,
		resolved INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		unresolved INTEGER NOT NULL DEFAULT 0,
		aborted INTEGER NOT NULL DEFAULT 0,
		abort_reason TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		row_num INTEGER NOT NULL,
		role TEXT NOT NULL,
		name TEXT,
		outcome TEXT NOT NULL,
		detail TEXT,
		phone TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is one stored batch run.
type RunRecord struct {
	RunID       string
	Input       string
	Output      string
	Start       int
	End         int
	Resolved    int
	Skipped     int
	Unresolved  int
	Aborted     bool
	AbortReason string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// OutcomeRecord is one stored sub-record outcome.
type OutcomeRecord struct {
	RunID   string
	Row     int
	Role    string
	Name    string
	Outcome string
	Detail  string
	Phone   string
}

// RecordRun stores a batch summary and its per-record trail.
func (s *Store) RecordRun(ctx context.Context, summary *batch.Summary, input, output string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO runs (run_id, input, output, start_row, end_row, resolved, skipped, unresolved, aborted, abort_reason, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	aborted := 0
	if summary.Aborted {
		aborted = 1
	}
	_, err = tx.ExecContext(ctx, query,
		summary.RunID.String(),
		input,
		output,
		summary.Start,
		summary.End,
		summary.Resolved,
		summary.Skipped,
		summary.Unresolved,
		aborted,
		summary.AbortReason,
		summary.StartedAt.UTC().Format(time.RFC3339),
		summary.FinishedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	outcomeQuery := `
	INSERT INTO outcomes (run_id, row_num, role, name, outcome, detail, phone)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, o := range summary.Outcomes {
		if _, err := tx.ExecContext(ctx, outcomeQuery,
			summary.RunID.String(), o.Row, o.Role, o.Name, string(o.Outcome), o.Detail, o.Phone,
		); err != nil {
			return fmt.Errorf("insert outcome: %w", err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns the newest runs first, up to limit.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
	SELECT run_id, input, output, start_row, end_row, resolved, skipped, unresolved, aborted, abort_reason, started_at, finished_at
	FROM runs
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var (
			r        RunRecord
			aborted  int
			started  string
			finished string
		)
		if err := rows.Scan(
			&r.RunID, &r.Input, &r.Output, &r.Start, &r.End,
			&r.Resolved, &r.Skipped, &r.Unresolved, &aborted, &r.AbortReason,
			&started, &finished,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Aborted = aborted != 0
		r.StartedAt = parseTimestamp(started)
		r.FinishedAt = parseTimestamp(finished)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Outcomes returns the per-record trail of one run.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]OutcomeRecord, error) {
	query := `
	SELECT run_id, row_num, role, name, outcome, detail, phone
	FROM outcomes
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var records []OutcomeRecord
	for rows.Next() {
		var o OutcomeRecord
		if err := rows.Scan(&o.RunID, &o.Row, &o.Role, &o.Name, &o.Outcome, &o.Detail, &o.Phone); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		records = append(records, o)
	}
	return records, rows.Err()
}

// LastResolvedRow returns the highest row number that ever resolved for
// the given input file, or 0 when none did. Useful for picking the next
// batch range by hand.
func (s *Store) LastResolvedRow(ctx context.Context, input string) (int, error) {
	query := `
	SELECT COALESCE(MAX(o.row_num), 0)
	FROM outcomes o
	JOIN runs r ON r.run_id = o.run_id
	WHERE r.input = ? AND o.outcome = 'resolved'
	`

	var row int
	if err := s.db.QueryRowContext(ctx, query, input).Scan(&row); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("query last resolved row: %w", err)
	}
	return row, nil
}

// parseTimestamp handles the formats SQLite hands back depending on how
// the value was written.
func parseTimestamp(s string) time.Time {
	for _, format := range []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
