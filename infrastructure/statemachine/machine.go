// Package statemachine drives an agent's plan execution lifecycle on statekit.
package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/htn-go/domain/agent"
	"github.com/felixgeelhaar/htn-go/domain/event"
	"github.com/felixgeelhaar/htn-go/domain/task"
)

// MachineID identifies the execution statechart in snapshots.
const MachineID = "htn-agent"

// Context carries one agent's execution state through the machine.
type Context struct {
	Agent    *agent.Agent
	Registry task.Registry

	// Events collects what the transitions produced until drained.
	Events []event.Event
}

// NewContext creates a machine context for a.
func NewContext(a *agent.Agent, reg task.Registry) *Context {
	return &Context{Agent: a, Registry: reg}
}

func (c *Context) record(typ event.Type, payload any) {
	c.Events = append(c.Events, event.Must(c.Agent.ID(), typ, payload))
}

// State IDs mirror the domain phases.
const (
	stateUnplanned statekit.StateID = statekit.StateID(agent.PhaseUnplanned)
	statePlanned   statekit.StateID = statekit.StateID(agent.PhasePlanned)
	stateRunning   statekit.StateID = statekit.StateID(agent.PhaseRunning)
	stateSucceeded statekit.StateID = statekit.StateID(agent.PhaseSucceeded)
	stateFailed    statekit.StateID = statekit.StateID(agent.PhaseFailed)
)

// Machine events.
const (
	EventPlanned = "PLANNED"
	EventAdvance = "ADVANCE"
	EventExhaust = "EXHAUST"
	EventSucceed = "SUCCEED"
	EventFail    = "FAIL"
	EventReset   = "RESET"
)

// NewAgentMachine creates the execution statechart.
func NewAgentMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context](MachineID).
		WithInitial(stateUnplanned).
		WithContext(&Context{}).
		WithAction("logEntry", logStateEntry).
		WithAction("assignPlan", assignPlan).
		WithAction("advance", advance).
		WithAction("complete", complete).
		WithAction("succeed", succeed).
		WithAction("fail", fail).
		WithAction("abort", abort).
		WithGuard("hasNext", guardHasNext).
		State(stateUnplanned).
			OnEntry("logEntry").
			On(EventPlanned).Target(statePlanned).Do("assignPlan").
			Done().
		State(statePlanned).
			OnEntry("logEntry").
			On(EventAdvance).Target(stateRunning).Guard("hasNext").Do("advance").
			On(EventExhaust).Target(stateUnplanned).Do("complete").
			Done().
		State(stateRunning).
			OnEntry("logEntry").
			On(EventSucceed).Target(stateSucceeded).Do("succeed").
			On(EventFail).Target(stateFailed).Do("fail").
			Done().
		State(stateSucceeded).
			OnEntry("logEntry").
			On(EventAdvance).Target(stateRunning).Guard("hasNext").Do("advance").
			On(EventExhaust).Target(stateUnplanned).Do("complete").
			Done().
		State(stateFailed).
			OnEntry("logEntry").
			On(EventReset).Target(stateUnplanned).Do("abort").
			Done().
		Build()
}

// EventForTransition returns the machine event that moves from one phase to another.
func EventForTransition(from, to agent.Phase) statekit.EventType {
	switch to {
	case agent.PhasePlanned:
		return EventPlanned
	case agent.PhaseRunning:
		return EventAdvance
	case agent.PhaseSucceeded:
		return EventSucceed
	case agent.PhaseFailed:
		return EventFail
	case agent.PhaseUnplanned:
		if from == agent.PhaseFailed {
			return EventReset
		}
		return EventExhaust
	default:
		return statekit.EventType(to)
	}
}

// PhaseFromMachine converts a machine state ID to a domain phase.
func PhaseFromMachine(stateID statekit.StateID) agent.Phase {
	return agent.Phase(stateID)
}
