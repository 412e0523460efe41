package event

// Type classifies domain events.
type Type string

// Planning events.
const (
	TypePlanCreated          Type = "plan.created"
	TypePlanFailed           Type = "plan.failed"
	TypeSearchBudgetExceeded Type = "search.budget_exceeded"
)

// Execution events.
const (
	TypeTaskActivated   Type = "task.activated"
	TypeTaskDeactivated Type = "task.deactivated"
	TypeTaskSucceeded   Type = "task.succeeded"
	TypeTaskFailed      Type = "task.failed"
	TypeTaskUnknown     Type = "task.unknown"
	TypePlanCompleted   Type = "plan.completed"
	TypePlanAborted     Type = "plan.aborted"
	TypePhaseChanged    Type = "phase.changed"
)

// AllTypes returns every event type.
func AllTypes() []Type {
	return []Type{
		TypePlanCreated, TypePlanFailed, TypeSearchBudgetExceeded,
		TypeTaskActivated, TypeTaskDeactivated, TypeTaskSucceeded, TypeTaskFailed,
		TypeTaskUnknown, TypePlanCompleted, TypePlanAborted, TypePhaseChanged,
	}
}

// PlanCreatedPayload contains data for plan.created events.
type PlanCreatedPayload struct {
	Goal       string   `json:"goal"`
	Steps      []string `json:"steps"`
	Cost       float64  `json:"cost"`
	Iterations int      `json:"iterations"`
}

// PlanFailedPayload contains data for plan.failed events.
type PlanFailedPayload struct {
	Error string `json:"error"`
}

// SearchBudgetExceededPayload contains data for search.budget_exceeded events.
type SearchBudgetExceededPayload struct {
	Iterations int  `json:"iterations"`
	Leaves     int  `json:"leaves"`
	Recovered  bool `json:"recovered"`
}

// TaskPayload contains data for task.* events.
type TaskPayload struct {
	Task      string `json:"task"`
	Remaining int    `json:"remaining"`
}

// PlanEndedPayload contains data for plan.completed and plan.aborted events.
type PlanEndedPayload struct {
	Goal string `json:"goal,omitempty"`
	// LastTask is the task that was current when the plan ended.
	LastTask string `json:"last_task,omitempty"`
	// Dropped counts steps discarded by an abort.
	Dropped int `json:"dropped,omitempty"`
}

// PhaseChangedPayload contains data for phase.changed events.
type PhaseChangedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}
