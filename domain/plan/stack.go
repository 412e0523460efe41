package plan

// Stack is an ordered sequence of primitive task names consumed from the front.
type Stack struct {
	items []string
}

// NewStack creates a stack whose first item is executed first.
func NewStack(items ...string) *Stack {
	s := make([]string, len(items))
	copy(s, items)
	return &Stack{items: s}
}

// Pop removes and returns the next task name.
func (s *Stack) Pop() (string, bool) {
	if s == nil || len(s.items) == 0 {
		return "", false
	}
	next := s.items[0]
	s.items = s.items[1:]
	return next, true
}

// Peek returns the next task name without removing it.
func (s *Stack) Peek() (string, bool) {
	if s == nil || len(s.items) == 0 {
		return "", false
	}
	return s.items[0], true
}

// Len returns the number of remaining items.
func (s *Stack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Empty reports whether no items remain.
func (s *Stack) Empty() bool {
	return s.Len() == 0
}

// Items returns a copy of the remaining items in execution order.
func (s *Stack) Items() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}
