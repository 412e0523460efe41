// Package memory provides in-memory implementations of the storage ports.
package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/htn-go/domain/task"
)

// TaskRegistry is an in-memory implementation of task.Registry.
type TaskRegistry struct {
	defs map[string]task.Definition
	mu   sync.RWMutex
}

// NewTaskRegistry creates a new in-memory task registry.
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{
		defs: make(map[string]task.Definition),
	}
}

// Register inserts or replaces the definition for name.
func (r *TaskRegistry) Register(name string, def task.Definition) error {
	if strings.TrimSpace(name) == "" {
		return task.ErrInvalidTaskName
	}
	if def == nil {
		return task.ErrNilDefinition
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.defs[name] = def
	return nil
}

// Get retrieves a definition by name.
func (r *TaskRegistry) Get(name string) (task.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.defs[name]
	return d, ok
}

// Has checks if a task is registered.
func (r *TaskRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.defs[name]
	return ok
}

// Names returns all registered task names in sorted order.
func (r *TaskRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tasks.
func (r *TaskRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.defs)
}

// Unregister removes a task from the registry.
func (r *TaskRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.defs[name]; !ok {
		return task.ErrUnknownTask
	}
	delete(r.defs, name)
	return nil
}

var _ task.Registry = (*TaskRegistry)(nil)
