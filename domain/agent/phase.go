package agent

// Phase is the execution lifecycle position of an agent.
type Phase string

const (
	PhaseUnplanned Phase = "unplanned" // Waiting for a plan
	PhasePlanned   Phase = "planned"   // Plan stack assigned, nothing active yet
	PhaseRunning   Phase = "running"   // Current task activated and unresolved
	PhaseSucceeded Phase = "succeeded" // Current task reported success
	PhaseFailed    Phase = "failed"    // Current task reported failure
)

// IsValid returns true if the phase is recognized.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseUnplanned, PhasePlanned, PhaseRunning, PhaseSucceeded, PhaseFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// Status is the observable state of the active task.
func (p Phase) Status() Status {
	switch p {
	case PhaseRunning:
		return StatusRunning
	case PhaseSucceeded:
		return StatusSuccess
	case PhaseFailed:
		return StatusFailure
	default:
		return StatusNone
	}
}

// AllPhases returns every phase.
func AllPhases() []Phase {
	return []Phase{PhaseUnplanned, PhasePlanned, PhaseRunning, PhaseSucceeded, PhaseFailed}
}

// Status is what host behaviors observe and report for the current task.
type Status string

const (
	StatusNone    Status = ""
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// ParseStatus maps a reported outcome name to a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusRunning, StatusSuccess, StatusFailure:
		return Status(s), nil
	default:
		return StatusNone, ErrInvalidStatus
	}
}

// IsResolved returns true for Success and Failure.
func (s Status) IsResolved() bool {
	return s == StatusSuccess || s == StatusFailure
}

// transitions lists the allowed phase changes.
var transitions = map[Phase][]Phase{
	PhaseUnplanned: {PhasePlanned},
	PhasePlanned:   {PhaseRunning, PhaseUnplanned},
	PhaseRunning:   {PhaseSucceeded, PhaseFailed},
	PhaseSucceeded: {PhaseRunning, PhaseUnplanned},
	PhaseFailed:    {PhaseUnplanned},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Transitions returns a copy of the allowed phase changes.
func Transitions() map[Phase][]Phase {
	out := make(map[Phase][]Phase, len(transitions))
	for from, to := range transitions {
		out[from] = append([]Phase(nil), to...)
	}
	return out
}
