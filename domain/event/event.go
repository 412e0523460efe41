// Package event defines the planning and execution events agents emit and
// the ports for storing them.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one entry in an agent's event stream.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// AgentID is the agent whose stream this event belongs to.
	AgentID string `json:"agent_id"`

	// Type classifies the event.
	Type Type `json:"type"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Payload contains the event-specific data.
	Payload json.RawMessage `json:"payload"`

	// Sequence orders events within the agent's stream. Stores assign it on append.
	Sequence uint64 `json:"sequence"`

	// Version is the payload schema version.
	Version int `json:"version,omitempty"`
}

// NewEvent creates an event with a fresh ID and the given payload.
func NewEvent(agentID string, eventType Type, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   data,
		Version:   1,
	}, nil
}

// Must is NewEvent for payloads that always marshal, such as the ones in this package.
func Must(agentID string, eventType Type, payload any) Event {
	e, err := NewEvent(agentID, eventType, payload)
	if err != nil {
		panic(err)
	}
	return e
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Validate checks the fields a store needs.
func (e *Event) Validate() error {
	if e.AgentID == "" || e.Type == "" {
		return ErrInvalidEvent
	}
	return nil
}
