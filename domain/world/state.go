package world

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Pair is a single named fact used to build a State.
type Pair struct {
	Key   string
	Value Predicate
}

// P is shorthand for constructing a Pair.
func P(key string, value Predicate) Pair {
	return Pair{Key: key, Value: value}
}

// State is an unordered set of named facts. It behaves as a value type:
// every derived State is an independent copy.
type State struct {
	entries map[string]Predicate
}

// New returns an empty state.
func New() State {
	return State{}
}

// FromPairs builds a state from pairs. Later duplicates overwrite earlier
// ones; the duplicated keys are returned so callers can report them.
func FromPairs(pairs ...Pair) (State, []string) {
	s := State{entries: make(map[string]Predicate, len(pairs))}
	var duplicates []string
	for _, p := range pairs {
		if _, exists := s.entries[p.Key]; exists {
			duplicates = append(duplicates, p.Key)
		}
		s.entries[p.Key] = p.Value
	}
	return s, duplicates
}

// Of builds a state from literal pairs written in code, where the last value
// of a repeated key wins silently. Pairs from outside the program go through
// FromPairs so the duplicates can be reported, as Runtime.SetFacts does.
func Of(pairs ...Pair) State {
	s, _ := FromPairs(pairs...)
	return s
}

// FromMap converts decoded configuration values into a state.
func FromMap(m map[string]any) (State, error) {
	s := State{entries: make(map[string]Predicate, len(m))}
	for k, v := range m {
		p, err := PredicateOf(v)
		if err != nil {
			return State{}, fmt.Errorf("fact %q: %w", k, err)
		}
		s.entries[k] = p
	}
	return s, nil
}

// Set inserts or silently overwrites a fact.
func (s *State) Set(key string, value Predicate) *State {
	if s.entries == nil {
		s.entries = make(map[string]Predicate)
	}
	s.entries[key] = value
	return s
}

// Delete removes a fact.
func (s *State) Delete(key string) {
	delete(s.entries, key)
}

// Get returns the fact value, or None when the key is absent.
func (s State) Get(key string) Predicate {
	return s.entries[key]
}

// Lookup returns the fact value and whether the key is present.
func (s State) Lookup(key string) (Predicate, bool) {
	p, ok := s.entries[key]
	return p, ok
}

// Has reports whether the key is present, regardless of its value.
func (s State) Has(key string) bool {
	_, ok := s.entries[key]
	return ok
}

// Len returns the number of facts.
func (s State) Len() int {
	return len(s.entries)
}

// Keys returns the fact names in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate reports whether every fact in other is present in s with an
// identical value.
func (s State) Validate(other State) bool {
	for k, want := range other.entries {
		got, ok := s.entries[k]
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// Concat returns a new state with other's facts overriding s on collision.
func (s State) Concat(other State) State {
	out := s.Clone()
	out.Append(other)
	return out
}

// Append merges other into s in place; other wins on collision.
func (s *State) Append(other State) {
	if len(other.entries) == 0 {
		return
	}
	if s.entries == nil {
		s.entries = make(map[string]Predicate, len(other.entries))
	}
	for k, v := range other.entries {
		s.entries[k] = v
	}
}

// Clone returns an independent copy.
func (s State) Clone() State {
	if s.entries == nil {
		return State{}
	}
	out := State{entries: make(map[string]Predicate, len(s.entries))}
	for k, v := range s.entries {
		out.entries[k] = v
	}
	return out
}

// Equal reports whether both states hold exactly the same facts.
func (s State) Equal(other State) bool {
	return len(s.entries) == len(other.entries) && s.Validate(other)
}

// Map returns the facts as plain Go values for expression evaluation.
func (s State) Map() map[string]any {
	out := make(map[string]any, len(s.entries))
	for k, v := range s.entries {
		out[k] = v.Value()
	}
	return out
}

// Each calls fn for every fact in sorted key order.
func (s State) Each(fn func(key string, value Predicate)) {
	for _, k := range s.Keys() {
		fn(k, s.entries[k])
	}
}

// String renders the facts in sorted order.
func (s State) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range s.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(s.entries[k].String())
	}
	b.WriteByte('}')
	return b.String()
}

// MarshalJSON encodes the state as a JSON object.
func (s State) MarshalJSON() ([]byte, error) {
	if s.entries == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.entries)
}

// UnmarshalJSON decodes a JSON object of facts.
func (s *State) UnmarshalJSON(data []byte) error {
	entries := make(map[string]Predicate)
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	s.entries = entries
	return nil
}
