package logging

import (
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// AgentID adds an agent ID field.
func AgentID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("agent_id", id)
	}
}

// Agent adds an agent name field.
func Agent(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("agent", name)
	}
}

// Task adds a task name field.
func Task(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("task", name)
	}
}

// Goal adds a goal name field.
func Goal(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("goal", name)
	}
}

// Phase adds a lifecycle phase field.
func Phase(phase string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("phase", phase)
	}
}

// FromPhase adds a from_phase field for transitions.
func FromPhase(phase string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_phase", phase)
	}
}

// ToPhase adds a to_phase field for transitions.
func ToPhase(phase string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_phase", phase)
	}
}

// Status adds an execution status field.
func Status(status string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("status", status)
	}
}

// Cost adds a plan or task cost field.
func Cost(cost float64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("cost", strconv.FormatFloat(cost, 'g', -1, 64))
	}
}

// Depth adds a search depth field.
func Depth(depth int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("depth", depth)
	}
}

// Iterations adds a search iteration count field.
func Iterations(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("iterations", n)
	}
}

// Nodes adds a search node count field.
func Nodes(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("nodes", n)
	}
}

// Leaves adds a goal-reaching leaf count field.
func Leaves(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("leaves", n)
	}
}

// Steps adds the plan steps as a comma separated field.
func Steps(steps []string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("steps", strings.Join(steps, ",")).Int("step_count", len(steps))
	}
}

// Tick adds the scheduler tick number.
func Tick(n uint64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("tick", int64(n)) // #nosec G115 -- tick counts stay far below MaxInt64
	}
}

// Key adds a fact or cache key field.
func Key(key string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("key", key)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// Cached adds a cache hit field.
func Cached(hit bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("cached", hit)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Component adds a component name field.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Operation adds an operation name field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// Path adds a file path field.
func Path(path string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("path", path)
	}
}

// Str adds a custom string field.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// Int adds a custom integer field.
func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, value)
	}
}

// Bool adds a custom boolean field.
func Bool(key string, value bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool(key, value)
	}
}
