package agent

import "errors"

// Domain errors for agents and their execution.
var (
	// ErrAgentNotFound indicates no agent has the given ID.
	ErrAgentNotFound = errors.New("agent: not found")

	// ErrAgentExists indicates an agent with the same ID is already registered.
	ErrAgentExists = errors.New("agent: already exists")

	// ErrInvalidAgentID indicates an empty or malformed ID.
	ErrInvalidAgentID = errors.New("agent: invalid id")

	// ErrInvalidStatus indicates an unknown or misplaced task status report.
	ErrInvalidStatus = errors.New("agent: invalid status")

	// ErrInvalidTransition indicates a phase change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("agent: invalid phase transition")

	// ErrSnapshotNotFound indicates no snapshot is stored for the agent.
	ErrSnapshotNotFound = errors.New("agent: snapshot not found")

	// ErrInvalidSnapshot indicates a snapshot that cannot be restored.
	ErrInvalidSnapshot = errors.New("agent: invalid snapshot")
)
