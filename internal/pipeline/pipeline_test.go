package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

type mockStep struct {
	name string
	err  error
	fn   func(ctx context.Context, state *State)
}

func (m *mockStep) Name() string { return m.name }

func (m *mockStep) Do(ctx context.Context, state *State) error {
	if m.fn != nil {
		m.fn(ctx, state)
	}
	return m.err
}

func TestPipelineExecutesInOrder(t *testing.T) {
	t.Parallel()

	var order []string
	p := New(WithLogger(zerolog.Nop()))
	for _, name := range []string{"first", "second", "third"} {
		name := name
		p.AddStep(&mockStep{name: name, fn: func(context.Context, *State) {
			order = append(order, name)
		}})
	}

	state := &State{}
	if err := p.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("execution order = %v, want %v", order, want)
	}
	if !reflect.DeepEqual(state.StepsRun, want) {
		t.Errorf("StepsRun = %v, want %v", state.StepsRun, want)
	}
}

func TestPipelineStopsOnError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("broken step")
	var thirdRan bool

	p := New()
	p.AddSteps(
		&mockStep{name: "first"},
		&mockStep{name: "second", err: sentinel},
		&mockStep{name: "third", fn: func(context.Context, *State) { thirdRan = true }},
	)

	err := p.Execute(context.Background(), &State{})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}
	if thirdRan {
		t.Error("third step ran after a failure without continueOnError")
	}
}

func TestPipelineContinueOnError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("broken step")
	var thirdRan bool

	p := New(WithContinueOnError(true))
	p.AddSteps(
		&mockStep{name: "first"},
		&mockStep{name: "second", err: sentinel},
		&mockStep{name: "third", fn: func(context.Context, *State) { thirdRan = true }},
	)

	err := p.Execute(context.Background(), &State{})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want the first failure reported", err)
	}
	if !thirdRan {
		t.Error("third step skipped despite continueOnError")
	}
}

func TestPipelineHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var secondRan bool

	p := New()
	p.AddSteps(
		&mockStep{name: "first", fn: func(context.Context, *State) { cancel() }},
		&mockStep{name: "second", fn: func(context.Context, *State) { secondRan = true }},
	)

	err := p.Execute(ctx, &State{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if secondRan {
		t.Error("second step ran after cancellation")
	}
}

func TestStepNames(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddSteps(&mockStep{name: "a"}, &mockStep{name: "b"})
	if got := p.StepNames(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("StepNames = %v", got)
	}
}
