package world

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestPredicateEquality(t *testing.T) {
	t.Parallel()

	values := []Predicate{
		Bool(true),
		Bool(false),
		String(""),
		String("test"),
		None(),
	}

	for i, a := range values {
		for j, b := range values {
			want := i == j
			if got := a.Equal(b); got != want {
				t.Errorf("%v.Equal(%v) = %v, want %v", a, b, got, want)
			}
		}
	}

	var zero Predicate
	if !zero.Equal(None()) {
		t.Error("zero Predicate should equal None()")
	}
	if zero.Equal(Bool(false)) {
		t.Error("None should not equal Bool(false)")
	}
	if zero.Equal(String("")) {
		t.Error("None should not equal String(\"\")")
	}
}

func TestPredicateOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input any
		want  Predicate
	}{
		{"nil", nil, None()},
		{"bool", true, Bool(true)},
		{"string", "room_a", String("room_a")},
		{"int", 3, String("3")},
		{"float", 2.5, String("2.5")},
		{"predicate", Bool(false), Bool(false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := PredicateOf(tt.input)
			if err != nil {
				t.Fatalf("PredicateOf(%v) error = %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("PredicateOf(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	if _, err := PredicateOf([]int{1}); !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("PredicateOf(slice) error = %v, want ErrUnsupportedValue", err)
	}
}

func TestPredicateFloat(t *testing.T) {
	t.Parallel()

	if f, ok := String("4.5").Float(); !ok || f != 4.5 {
		t.Errorf("Float() = %v, %v, want 4.5, true", f, ok)
	}
	if _, ok := String("many").Float(); ok {
		t.Error("non-numeric string should not parse")
	}
	if _, ok := Bool(true).Float(); ok {
		t.Error("bool should not be numeric")
	}
}

func TestPredicateJSON(t *testing.T) {
	t.Parallel()

	for _, p := range []Predicate{Bool(true), String("x"), None()} {
		data, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("Marshal(%v) error = %v", p, err)
		}
		var got Predicate
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", data, err)
		}
		if !got.Equal(p) {
			t.Errorf("JSON round trip of %v = %v", p, got)
		}
	}

	var n Predicate
	if err := json.Unmarshal([]byte("12"), &n); err != nil {
		t.Fatalf("Unmarshal(12) error = %v", err)
	}
	if !n.Equal(String("12")) {
		t.Errorf("number decoded as %v, want \"12\"", n)
	}
}

func baseState() State {
	return Of(
		P("safe", Bool(true)),
		P("running", Bool(false)),
		P("happy", Bool(true)),
	)
}

func TestStateValidate(t *testing.T) {
	t.Parallel()

	base := baseState()
	valid := Of(P("safe", Bool(true)), P("happy", Bool(true)))
	invalid := Of(P("running", Bool(true)))

	tests := []struct {
		name  string
		self  State
		other State
		want  bool
	}{
		{"subset validates", base, valid, true},
		{"changed value fails", base, invalid, false},
		{"superset fails", valid, base, false},
		{"disjoint fails", valid, invalid, false},
		{"empty other validates", base, New(), true},
		{"missing key fails", New(), valid, false},
		{"self validates", base, base, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.self.Validate(tt.other); got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStateValidateEverySubset(t *testing.T) {
	t.Parallel()

	base := Of(
		P("a", Bool(true)),
		P("b", String("x")),
		P("c", Bool(false)),
		P("d", None()),
	)
	keys := base.Keys()

	for mask := 0; mask < 1<<len(keys); mask++ {
		subset := New()
		for i, k := range keys {
			if mask&(1<<i) != 0 {
				subset.Set(k, base.Get(k))
			}
		}
		if !base.Validate(subset) {
			t.Errorf("Validate(%v) = false for a subset of %v", subset, base)
		}
		for _, k := range subset.Keys() {
			changed := subset.Clone()
			changed.Set(k, String("changed"))
			if base.Validate(changed) {
				t.Errorf("Validate(%v) = true after changing %q", changed, k)
			}
		}
	}
}

func TestStateConcatIsRightBiased(t *testing.T) {
	t.Parallel()

	a := Of(P("x", Bool(true)), P("y", String("a")))
	b := Of(P("y", String("b")), P("z", Bool(false)))
	merged := a.Concat(b)

	for _, k := range []string{"x", "y", "z"} {
		want := a.Get(k)
		if b.Has(k) {
			want = b.Get(k)
		}
		if got := merged.Get(k); !got.Equal(want) {
			t.Errorf("Concat().Get(%q) = %v, want %v", k, got, want)
		}
	}

	if got := a.Get("y"); !got.Equal(String("a")) {
		t.Errorf("Concat mutated receiver: y = %v", got)
	}
	if a.Has("z") {
		t.Error("Concat mutated receiver: z present")
	}
}

func TestStateAppend(t *testing.T) {
	t.Parallel()

	var s State
	s.Append(Of(P("door_open", Bool(true))))
	if !s.Get("door_open").Equal(Bool(true)) {
		t.Errorf("Append() on zero State did not insert: %v", s)
	}
}

func TestStateGetAbsentIsNone(t *testing.T) {
	t.Parallel()

	s := baseState()
	if !s.Get("missing").IsNone() {
		t.Errorf("Get(missing) = %v, want none", s.Get("missing"))
	}
}

func TestFromPairsReportsDuplicates(t *testing.T) {
	t.Parallel()

	s, dups := FromPairs(P("k", Bool(true)), P("k", Bool(false)))
	if len(dups) != 1 || dups[0] != "k" {
		t.Errorf("duplicates = %v, want [k]", dups)
	}
	if !s.Get("k").Equal(Bool(false)) {
		t.Errorf("Get(k) = %v, want last write false", s.Get("k"))
	}
}

func TestOfKeepsLastLiteral(t *testing.T) {
	t.Parallel()

	pairs := []Pair{P("k", Bool(true)), P("j", String("x")), P("k", Bool(false))}
	want, _ := FromPairs(pairs...)
	if got := Of(pairs...); !got.Equal(want) {
		t.Errorf("Of() = %v, want %v", got, want)
	}
}

func TestStateCloneIsIndependent(t *testing.T) {
	t.Parallel()

	a := baseState()
	b := a.Clone()
	b.Set("safe", Bool(false))

	if !a.Get("safe").Equal(Bool(true)) {
		t.Error("modifying clone changed original")
	}
}

func TestStateJSON(t *testing.T) {
	t.Parallel()

	s := Of(P("in_room_a", Bool(true)), P("item", String("key")), P("unknown", None()))
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got State
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !got.Equal(s) {
		t.Errorf("round trip = %v, want %v", got, s)
	}
}

func TestFromMap(t *testing.T) {
	t.Parallel()

	s, err := FromMap(map[string]any{"hungry": true, "fuel": 3})
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}
	if !s.Get("hungry").Equal(Bool(true)) || !s.Get("fuel").Equal(String("3")) {
		t.Errorf("FromMap() = %v", s)
	}
	if _, err := FromMap(map[string]any{"bad": map[string]any{}}); err == nil {
		t.Error("FromMap() with nested map should fail")
	}
}

func TestRequirementsValidate(t *testing.T) {
	t.Parallel()

	w := Of(
		P("hungry", Bool(true)),
		P("fuel", String("5")),
		P("name", String("hero")),
	)

	tests := []struct {
		name string
		req  Requirements
		want bool
	}{
		{"equals holds", NewRequirements(Equals("hungry", Bool(true))), true},
		{"equals differs", NewRequirements(Equals("hungry", Bool(false))), false},
		{"has present", NewRequirements(Present("name")), true},
		{"has missing", NewRequirements(Present("missing")), false},
		{"greater holds", NewRequirements(Greater("fuel", 3)), true},
		{"greater fails at threshold", NewRequirements(Greater("fuel", 5)), false},
		{"less holds", NewRequirements(Less("fuel", 10)), true},
		{"less fails", NewRequirements(Less("fuel", 2)), false},
		{"numeric on bool fails", NewRequirements(Greater("hungry", 0)), false},
		{"numeric on text fails", NewRequirements(Less("name", 100)), false},
		{"missing key fails less", NewRequirements(Less("missing", 100)), false},
		{"missing key fails equals none", NewRequirements(Equals("missing", None())), false},
		{"all must hold", NewRequirements(Equals("hungry", Bool(true)), Greater("fuel", 9)), false},
		{"empty holds", NewRequirements(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.req.Validate(w); got != tt.want {
				t.Errorf("%v.Validate() = %v, want %v", tt.req, got, tt.want)
			}
		})
	}
}

func TestRequirementsOfMatchesStateValidate(t *testing.T) {
	t.Parallel()

	base := baseState()
	for _, other := range []State{
		Of(P("safe", Bool(true))),
		Of(P("running", Bool(true))),
		Of(P("missing", None())),
		New(),
	} {
		if got, want := RequirementsOf(other).Validate(base), base.Validate(other); got != want {
			t.Errorf("RequirementsOf(%v).Validate() = %v, want %v", other, got, want)
		}
	}
}

func TestRequirementsConcatIsRightBiased(t *testing.T) {
	t.Parallel()

	a := NewRequirements(Equals("x", Bool(true)), Present("y"))
	b := NewRequirements(Equals("x", Bool(false)))
	merged := a.Concat(b)

	c, _ := merged.Get("x")
	if !c.Value.Equal(Bool(false)) {
		t.Errorf("Concat().Get(x) = %v, want == false", c)
	}
	if _, ok := merged.Get("y"); !ok {
		t.Error("Concat() dropped y")
	}
	if orig, _ := a.Get("x"); !orig.Value.Equal(Bool(true)) {
		t.Error("Concat() mutated receiver")
	}
}

func TestNewConstraint(t *testing.T) {
	t.Parallel()

	c, err := NewConstraint(OpGreater, 3)
	if err != nil || c.Threshold != 3 {
		t.Errorf("NewConstraint(greater, 3) = %v, %v", c, err)
	}
	if _, err := NewConstraint(OpLess, true); !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("NewConstraint(less, true) error = %v, want ErrInvalidThreshold", err)
	}
	if _, err := NewConstraint("between", 1); !errors.Is(err, ErrUnknownOperator) {
		t.Errorf("NewConstraint(between) error = %v, want ErrUnknownOperator", err)
	}
}

func TestParseOperator(t *testing.T) {
	t.Parallel()

	tests := map[string]Operator{
		"":        OpEquals,
		"eq":      OpEquals,
		"equals":  OpEquals,
		"has":     OpHas,
		"exists":  OpHas,
		"gt":      OpGreater,
		"GREATER": OpGreater,
		"lt":      OpLess,
	}
	for in, want := range tests {
		got, err := ParseOperator(in)
		if err != nil || got != want {
			t.Errorf("ParseOperator(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseOperator("near"); !errors.Is(err, ErrUnknownOperator) {
		t.Errorf("ParseOperator(near) error = %v, want ErrUnknownOperator", err)
	}
}
