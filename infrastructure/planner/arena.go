package planner

import (
	"fmt"
	"slices"

	"github.com/felixgeelhaar/htn-go/domain/plan"
	"github.com/felixgeelhaar/htn-go/domain/task"
	"github.com/felixgeelhaar/htn-go/domain/world"
)

// noParent marks the root of the search tree.
const noParent = -1

// node is one state in the search tree. Parents always precede their
// children in the arena.
type node struct {
	task   task.Task
	world  world.State
	cost   float64
	depth  int
	parent int
}

// arena owns every node of a single search.
type arena struct {
	nodes []node
}

func newArena(capacity int) *arena {
	return &arena{nodes: make([]node, 0, capacity)}
}

func (a *arena) add(n node) int {
	a.nodes = append(a.nodes, n)
	return len(a.nodes) - 1
}

func (a *arena) len() int {
	return len(a.nodes)
}

func (a *arena) at(i int) node {
	return a.nodes[i]
}

func (a *arena) parent(i int) int {
	if i < 0 {
		return noParent
	}
	return a.nodes[i].parent
}

// taskName is empty for the root and for indices outside the tree.
func (a *arena) taskName(i int) string {
	if i < 0 || a.nodes[i].task == nil {
		return ""
	}
	return a.nodes[i].task.Name()
}

// oscillates reports an A,B,A,B pattern over the last four tasks ending at i.
// Longer cycles are not detected.
func (a *arena) oscillates(i int) bool {
	p1 := a.parent(i)
	p2 := a.parent(p1)
	p3 := a.parent(p2)
	if p1 < 0 || p2 < 0 || p3 < 0 {
		return false
	}
	return a.taskName(i) == a.taskName(p2) && a.taskName(p1) == a.taskName(p3)
}

// unwind returns the tasks from the root to leaf.
func (a *arena) unwind(leaf int) ([]task.Task, error) {
	var seq []task.Task
	for i := leaf; i >= 0; {
		n := a.nodes[i]
		if n.parent == noParent {
			break
		}
		if n.parent >= i {
			return nil, fmt.Errorf("%w: node %d points forward to parent %d", plan.ErrMalformedTaskGraph, i, n.parent)
		}
		if n.task == nil {
			return nil, fmt.Errorf("%w: node %d at depth %d has no task", plan.ErrMalformedTaskGraph, i, n.depth)
		}
		seq = append(seq, n.task)
		i = n.parent
	}
	slices.Reverse(seq)
	return seq, nil
}

func (a *arena) reset() {
	clear(a.nodes)
	a.nodes = a.nodes[:0]
}
