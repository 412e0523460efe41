// Package goal defines planning goals and the policies that choose the active one.
package goal

import (
	"sort"

	"github.com/felixgeelhaar/htn-go/domain/world"
)

// Goal is a named target a plan must reach.
type Goal struct {
	Name         string
	Requirements world.Requirements
	// Utility is a static priority. Higher is more important.
	Utility float64
}

// New creates a goal.
func New(name string, req world.Requirements, utility float64) Goal {
	return Goal{Name: name, Requirements: req, Utility: utility}
}

// FromState creates a goal whose requirements are the facts of s.
func FromState(name string, s world.State, utility float64) Goal {
	return New(name, world.RequirementsOf(s), utility)
}

// Satisfied reports whether w meets the goal.
func (g Goal) Satisfied(w world.State) bool {
	return g.Requirements.Validate(w)
}

// SortByUtility orders goals by descending utility. Equal utilities keep
// their original order.
func SortByUtility(goals []Goal) {
	sort.SliceStable(goals, func(i, j int) bool {
		return goals[i].Utility > goals[j].Utility
	})
}
