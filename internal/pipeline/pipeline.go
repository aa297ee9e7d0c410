// Package pipeline strings the stages of an extraction run together:
// load the dataset, walk it in batches, then fan the results out to the
// output file, workbook, report, ledger, and notification channels.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"phonehunt/internal/batch"
	"phonehunt/internal/dataset"
)

// State is the shared bag a run accumulates as steps execute.
type State struct {
	InputPath  string
	OutputPath string
	Table      *dataset.Table
	Summaries  []*batch.Summary
	StartedAt  time.Time
	StepsRun   []string
}

// Aborted reports whether any batch hit proxy exhaustion.
func (s *State) Aborted() bool {
	for _, sum := range s.Summaries {
		if sum.Aborted {
			return true
		}
	}
	return false
}

// Totals sums the outcome counters across batches.
func (s *State) Totals() (resolved, skipped, unresolved int) {
	for _, sum := range s.Summaries {
		resolved += sum.Resolved
		skipped += sum.Skipped
		unresolved += sum.Unresolved
	}
	return resolved, skipped, unresolved
}

// Step is one stage of a run. Steps mutate the shared state and return
// an error only when the run cannot usefully continue.
type Step interface {
	Do(ctx context.Context, state *State) error
	Name() string
}

// Pipeline executes steps in order.
type Pipeline struct {
	steps           []Step
	log             zerolog.Logger
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithContinueOnError keeps later steps running after one fails, so a
// broken side channel (say, the webhook) cannot cost a finished run its
// output files.
func WithContinueOnError(cont bool) Option {
	return func(p *Pipeline) { p.continueOnError = cont }
}

// New creates an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddStep appends a step. Steps run in insertion order.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in order, checking for cancellation between
// them. With continueOnError set, the first error is remembered and
// returned after the remaining steps run.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	var firstErr error

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.log.Warn().Str("step", step.Name()).Err(ctx.Err()).Msg("pipeline cancelled")
			return ctx.Err()
		default:
		}

		p.log.Info().Str("step", step.Name()).Msg("executing step")
		if err := step.Do(ctx, state); err != nil {
			p.log.Error().Str("step", step.Name()).Err(err).Msg("step failed")
			if !p.continueOnError {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
		}
		state.StepsRun = append(state.StepsRun, step.Name())
	}

	return firstErr
}

// StepNames returns the configured step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
