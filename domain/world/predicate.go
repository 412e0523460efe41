// Package world provides the fact model used for planning: predicates,
// world states and requirement sets evaluated against them.
package world

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Predicate.
type Kind uint8

// Predicate kinds.
const (
	KindNone Kind = iota
	KindBool
	KindString
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return "none"
	}
}

// Predicate is the truth value of a single fact.
// The zero value is None, which never equals any Bool or String value.
type Predicate struct {
	kind Kind
	b    bool
	s    string
}

// Bool returns a boolean predicate.
func Bool(v bool) Predicate {
	return Predicate{kind: KindBool, b: v}
}

// String returns a string predicate.
func String(v string) Predicate {
	return Predicate{kind: KindString, s: v}
}

// None returns the absent predicate.
func None() Predicate {
	return Predicate{}
}

// PredicateOf converts a decoded configuration value into a predicate.
// Numbers are stored as their decimal string form so numeric
// requirements can compare them.
func PredicateOf(v any) (Predicate, error) {
	switch val := v.(type) {
	case nil:
		return None(), nil
	case Predicate:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return String(strconv.Itoa(val)), nil
	case int64:
		return String(strconv.FormatInt(val, 10)), nil
	case uint64:
		return String(strconv.FormatUint(val, 10)), nil
	case float64:
		return String(formatFloat(val)), nil
	case float32:
		return String(formatFloat(float64(val))), nil
	default:
		return None(), fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// Kind returns the predicate variant.
func (p Predicate) Kind() Kind {
	return p.kind
}

// IsNone reports whether p is the absent predicate.
func (p Predicate) IsNone() bool {
	return p.kind == KindNone
}

// Bool returns the boolean value and whether p holds one.
func (p Predicate) Bool() (bool, bool) {
	return p.b, p.kind == KindBool
}

// Str returns the string value and whether p holds one.
func (p Predicate) Str() (string, bool) {
	return p.s, p.kind == KindString
}

// Float returns the numeric value of a string predicate.
func (p Predicate) Float() (float64, bool) {
	if p.kind != KindString {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(p.s), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Equal reports variant-and-value equality.
func (p Predicate) Equal(other Predicate) bool {
	if p.kind != other.kind {
		return false
	}
	switch p.kind {
	case KindBool:
		return p.b == other.b
	case KindString:
		return p.s == other.s
	default:
		return true
	}
}

// Value returns the predicate as a plain Go value (bool, string or nil).
func (p Predicate) Value() any {
	switch p.kind {
	case KindBool:
		return p.b
	case KindString:
		return p.s
	default:
		return nil
	}
}

// String renders the predicate for logs and diagnostics.
func (p Predicate) String() string {
	switch p.kind {
	case KindBool:
		return strconv.FormatBool(p.b)
	case KindString:
		return strconv.Quote(p.s)
	default:
		return "none"
	}
}

// MarshalJSON encodes bool as true/false, string as text and none as null.
func (p Predicate) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Value())
}

// UnmarshalJSON decodes the forms produced by MarshalJSON. Numbers are
// accepted and stored as strings.
func (p *Predicate) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if n, ok := raw.(json.Number); ok {
		*p = String(n.String())
		return nil
	}
	v, err := PredicateOf(raw)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
