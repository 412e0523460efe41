package plan

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/felixgeelhaar/htn-go/domain/goal"
)

func TestStackConsumesFromFront(t *testing.T) {
	t.Parallel()

	s := NewStack("a", "b", "c")
	for _, want := range []string{"a", "b", "c"} {
		got, ok := s.Pop()
		if !ok || got != want {
			t.Fatalf("Pop() = %q, %v, want %q", got, ok, want)
		}
	}
	if _, ok := s.Pop(); ok {
		t.Error("Pop() on empty stack returned an item")
	}
	if !s.Empty() {
		t.Error("Empty() = false after draining")
	}
}

func TestStackCopiesInput(t *testing.T) {
	t.Parallel()

	steps := []string{"a", "b"}
	s := NewStack(steps...)
	steps[0] = "changed"

	if got, _ := s.Peek(); got != "a" {
		t.Errorf("Peek() = %s, want a", got)
	}
	items := s.Items()
	items[1] = "changed"
	if !reflect.DeepEqual(s.Items(), []string{"a", "b"}) {
		t.Errorf("Items() leaked internal slice: %v", s.Items())
	}
}

func TestNilStack(t *testing.T) {
	t.Parallel()

	var s *Stack
	if s.Len() != 0 || !s.Empty() || s.Items() != nil {
		t.Error("nil stack should behave as empty")
	}
	if _, ok := s.Pop(); ok {
		t.Error("Pop() on nil stack returned an item")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	t.Parallel()

	if !errors.Is(ErrNoGoal, ErrPlanningFailed) {
		t.Error("ErrNoGoal should match ErrPlanningFailed")
	}
	if !errors.Is(ErrNoLeaf, ErrPlanningFailed) {
		t.Error("ErrNoLeaf should match ErrPlanningFailed")
	}
	joined := errors.Join(ErrNoLeaf, ErrSearchBudgetExceeded)
	if !errors.Is(joined, ErrPlanningFailed) || !errors.Is(joined, ErrSearchBudgetExceeded) {
		t.Error("joined budget error should match both sentinels")
	}
	if errors.Is(ErrMalformedTaskGraph, ErrPlanningFailed) {
		t.Error("ErrMalformedTaskGraph is a bug signal, not a planning failure")
	}
}

func TestRequestEvaluationDefaultsToTop(t *testing.T) {
	t.Parallel()

	req := Request{Goals: []goal.Goal{{Name: "first"}, {Name: "second"}}}
	g, ok := req.Evaluation().Next(req.Goals, req.World)
	if !ok || g.Name != "first" {
		t.Errorf("default evaluation picked %q, want first", g.Name)
	}
}

func TestPlannerFunc(t *testing.T) {
	t.Parallel()

	var p Planner = PlannerFunc(func(_ context.Context, req Request) (*Plan, error) {
		return &Plan{Goal: req.Agent, Steps: []string{"x"}}, nil
	})
	got, err := p.Plan(context.Background(), Request{Agent: "hero"})
	if err != nil || got.Goal != "hero" || got.Len() != 1 {
		t.Errorf("PlannerFunc.Plan() = %+v, %v", got, err)
	}
	if got.Stack().Len() != 1 {
		t.Error("Stack() should expose the steps")
	}
}
