package planner

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/htn-go/domain/plan"
	"github.com/felixgeelhaar/htn-go/domain/task"
)

func chain(names ...string) *arena {
	a := newArena(len(names) + 1)
	a.add(node{parent: noParent})
	for i, name := range names {
		a.add(node{task: task.Named(name), depth: i + 1, parent: i})
	}
	return a
}

func TestArenaUnwind(t *testing.T) {
	t.Parallel()

	a := chain("a", "b", "c")
	seq, err := a.unwind(3)
	if err != nil {
		t.Fatalf("unwind() error = %v", err)
	}
	got := task.Names(seq)
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unwind() = %v, want %v", got, want)
		}
	}
}

func TestArenaUnwindMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		arena func() *arena
	}{
		{
			name: "missing task",
			arena: func() *arena {
				a := chain("a")
				a.add(node{depth: 2, parent: 1})
				return a
			},
		},
		{
			name: "forward parent",
			arena: func() *arena {
				a := chain("a", "b")
				a.nodes[1].parent = 2
				return a
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := tt.arena()
			_, err := a.unwind(a.len() - 1)
			if !errors.Is(err, plan.ErrMalformedTaskGraph) {
				t.Errorf("unwind() error = %v, want ErrMalformedTaskGraph", err)
			}
		})
	}
}

func TestArenaOscillates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		chain []string
		want  bool
	}{
		{"too short", []string{"a", "b", "a"}, false},
		{"alternating", []string{"a", "b", "a", "b"}, true},
		{"repeating", []string{"a", "a", "a", "a"}, true},
		{"three cycle", []string{"a", "b", "c", "a", "b", "c"}, false},
		{"progress", []string{"a", "b", "c", "d"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := chain(tt.chain...)
			if got := a.oscillates(a.len() - 1); got != tt.want {
				t.Errorf("oscillates() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArenaReset(t *testing.T) {
	t.Parallel()

	a := chain("a", "b")
	a.reset()
	if a.len() != 0 {
		t.Errorf("len() = %d after reset, want 0", a.len())
	}
}
