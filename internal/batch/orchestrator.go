// Package batch walks a record range and drives one search session per
// sub-record. Each row carries up to two independent name slots; each
// slot is validated, given a fresh proxy lease and browser session, and
// either resolved to phone numbers or recorded as skipped/unresolved.
// Proxy exhaustion aborts the remaining range so partial results stay
// intact instead of burning sessions that cannot succeed.
package batch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"phonehunt/internal/address"
	"phonehunt/internal/dataset"
	"phonehunt/internal/metrics"
	"phonehunt/internal/proxy"
	"phonehunt/internal/search"
	"phonehunt/internal/session"
)

// Searcher runs one person search on an already prepared page.
type Searcher interface {
	Search(page playwright.Page, first, last, city, state string) (*search.Result, error)
}

// SessionRunner provisions an isolated browser session and executes
// the task inside it. session.Manager satisfies this.
type SessionRunner interface {
	Run(ctx context.Context, lease *proxy.Lease, policy *session.BandwidthPolicy, task session.Task) error
}

// Config carries the tunables for a batch run.
type Config struct {
	// SearchHost shapes the per-batch bandwidth policy.
	SearchHost string
	// DefaultCity and DefaultState fill in blank location columns.
	DefaultCity  string
	DefaultState string
	// RecordDelay paces sub-records that reached the network. Zero
	// disables pacing.
	RecordDelay time.Duration
}

// Orchestrator owns one batch run. All collaborators are injected, so
// tests can drive the full record walk without a browser or proxy.
type Orchestrator struct {
	cfg        Config
	gatekeeper proxy.Gatekeeper
	sessions   SessionRunner
	searcher   Searcher
	normalizer *address.Normalizer
	log        zerolog.Logger
}

// New wires an Orchestrator. A nil normalizer falls back to one for the
// default state.
func New(cfg Config, gk proxy.Gatekeeper, sessions SessionRunner, searcher Searcher, norm *address.Normalizer, log zerolog.Logger) *Orchestrator {
	if cfg.SearchHost == "" {
		cfg.SearchHost = "www.zabasearch.com"
	}
	if cfg.DefaultCity == "" {
		cfg.DefaultCity = "HALLANDALE BEACH"
	}
	if cfg.DefaultState == "" {
		cfg.DefaultState = "Florida"
	}
	if norm == nil {
		norm = address.NewNormalizer(address.StateAbbrev(cfg.DefaultState))
	}
	return &Orchestrator{
		cfg:        cfg,
		gatekeeper: gk,
		sessions:   sessions,
		searcher:   searcher,
		normalizer: norm,
		log:        log,
	}
}

// ProcessFile loads inPath, runs the clamped range against a working
// copy, and saves the copy to outPath. The input file is never written.
// The output is saved even when the batch aborted partway, so whatever
// resolved before the abort is preserved.
func (o *Orchestrator) ProcessFile(ctx context.Context, inPath, outPath string, start, end int) (*Summary, error) {
	table, err := dataset.Load(inPath)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}

	summary, runErr := o.ProcessBatch(ctx, table, start, end)
	if err := table.Save(outPath); err != nil {
		if runErr == nil {
			return summary, fmt.Errorf("save output: %w", err)
		}
		o.log.Error().Err(err).Str("path", outPath).Msg("could not save partial output")
	}
	return summary, runErr
}

// ProcessBatch walks rows start..end (1-based, inclusive, clamped to
// the table) and processes both name slots of every row. The table is
// mutated in place. Proxy exhaustion flips Summary.Aborted and returns
// a nil error; a non-nil error means the walk itself broke (context
// cancellation or a write fault).
func (o *Orchestrator) ProcessBatch(ctx context.Context, table *dataset.Table, start, end int) (*Summary, error) {
	start, end, ok := table.ClampRange(start, end)
	summary := newSummary(start, end)
	defer func() { summary.FinishedAt = time.Now() }()

	if !ok {
		o.log.Warn().Int("start", start).Int("end", end).Msg("empty batch range")
		return summary, nil
	}

	for _, role := range dataset.Roles {
		dataset.EnsurePhoneColumns(table, role)
	}

	metrics.BatchActive.Set(1)
	defer metrics.BatchActive.Set(0)

	policy := session.DefaultBandwidthPolicy(o.cfg.SearchHost)

	o.log.Info().
		Str("run_id", summary.RunID.String()).
		Int("start", start).
		Int("end", end).
		Int("rows", end-start+1).
		Msg("batch started")

	for row := start; row <= end; row++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		for _, role := range dataset.Roles {
			sub := dataset.SubRecordAt(table, row, role)
			outcome, detail, phone, err := o.processSubRecord(ctx, table, policy, sub)
			if err != nil {
				if errors.Is(err, proxy.ErrUnavailable) {
					summary.Aborted = true
					summary.AbortReason = err.Error()
					metrics.BatchAborts.Inc()
					o.log.Error().
						Int("row", row).
						Str("role", role).
						Err(err).
						Msg("no proxy available, aborting remaining batch")
					return summary, nil
				}
				return summary, err
			}
			if outcome == "" {
				continue
			}
			summary.record(row, role, sub.Name, outcome, detail, phone)
		}
	}

	o.log.Info().
		Str("run_id", summary.RunID.String()).
		Int("resolved", summary.Resolved).
		Int("skipped", summary.Skipped).
		Int("unresolved", summary.Unresolved).
		Msg("batch finished")
	return summary, nil
}

// processSubRecord runs one name slot through the gate sequence:
// input checks first, proxy acquisition second, browser session last.
// An empty outcome means the slot held no record at all. A returned
// error stops the batch.
func (o *Orchestrator) processSubRecord(ctx context.Context, table *dataset.Table, policy *session.BandwidthPolicy, sub dataset.SubRecord) (Outcome, string, string, error) {
	if sub.Empty() {
		return "", "", "", nil
	}
	if table.HasColumn(sub.Role+"_Type") && sub.Type != "Person" {
		return "", "", "", nil
	}

	log := o.log.With().Int("row", sub.Row).Str("role", sub.Role).Str("name", sub.Name).Logger()

	if sub.Name == "" || sub.Address == "" {
		log.Debug().Msg("incomplete record, skipping")
		metrics.RecordsSkipped.Inc()
		return OutcomeSkipped, "incomplete record", "", nil
	}
	if dataset.HasPhone(table, sub.Row, sub.Role) {
		log.Debug().Msg("phone already present, skipping")
		metrics.RecordsSkipped.Inc()
		return OutcomeSkipped, "already resolved", "", nil
	}

	tokens := strings.Fields(sub.Name)
	if len(tokens) < 2 {
		log.Warn().Msg("name has a single token, cannot search")
		metrics.RecordsSkipped.Inc()
		return OutcomeSkipped, "single token name", "", nil
	}
	first, last := tokens[0], tokens[len(tokens)-1]

	lease, err := o.gatekeeper.Acquire(ctx)
	if err != nil {
		metrics.ProxyFailures.Inc()
		return "", "", "", err
	}
	metrics.ProxyAcquisitions.Inc()

	city := sub.City
	if city == "" {
		city = o.cfg.DefaultCity
	}
	state := sub.State
	if state == "" {
		state = o.cfg.DefaultState
	}

	var (
		match   *search.Match
		matched bool
	)
	runErr := o.sessions.Run(ctx, lease, policy, func(page playwright.Page) error {
		result, err := o.searcher.Search(page, first, last, city, state)
		if err != nil {
			return err
		}
		match, matched = result.Resolve(o.normalizer, sub.Address)
		return nil
	})
	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", "", "", ctxErr
		}
		log.Warn().Err(runErr).Msg("session failed, leaving record unresolved")
		metrics.RecordsUnresolved.Inc()
		o.pace(ctx)
		return OutcomeUnresolved, runErr.Error(), "", nil
	}

	if !matched {
		log.Info().Msg("no candidate matched the target address")
		metrics.RecordsUnresolved.Inc()
		o.pace(ctx)
		return OutcomeUnresolved, "no matching candidate", "", nil
	}

	if err := o.writeMatch(table, sub, match); err != nil {
		return "", "", "", err
	}
	log.Info().
		Str("phone", match.Primary).
		Str("matched_address", match.Address).
		Msg("record resolved")
	metrics.RecordsResolved.Inc()
	o.pace(ctx)
	return OutcomeResolved, "", match.Primary, nil
}

func (o *Orchestrator) writeMatch(table *dataset.Table, sub dataset.SubRecord, match *search.Match) error {
	cells := map[string]string{
		sub.Role + "_Phone_Primary":   match.Primary,
		sub.Role + "_Phone_Secondary": match.Secondary,
		sub.Role + "_Phone_All":       search.JoinPhones(match.AllPhones),
		sub.Role + "_Address_Match":   match.Address,
	}
	for col, val := range cells {
		if err := table.Set(sub.Row, col, val); err != nil {
			return fmt.Errorf("write %s row %d: %w", col, sub.Row, err)
		}
	}
	return nil
}

// pace sleeps a jittered delay between networked sub-records so the
// walk does not hammer the search site. Context cancellation cuts the
// sleep short; the caller notices on its next check.
func (o *Orchestrator) pace(ctx context.Context) {
	if o.cfg.RecordDelay <= 0 {
		return
	}
	d := o.cfg.RecordDelay + time.Duration(rand.Int63n(int64(o.cfg.RecordDelay)))
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
