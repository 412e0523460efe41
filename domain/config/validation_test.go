package config

import (
	"strings"
	"testing"
)

func minimal() *Scenario {
	return &Scenario{
		Name:    "test",
		Version: "1",
		World:   map[string]any{"door_open": false},
		Tasks: []TaskConfig{
			{Name: "open_door", Pre: map[string]any{"door_open": false}, Post: map[string]any{"door_open": true}},
		},
		Agents: []AgentConfig{
			{
				Name:  "hero",
				Tasks: []string{"open_door"},
				Goals: []GoalConfig{{Name: "open", Requires: map[string]any{"door_open": true}}},
			},
		},
	}
}

func cost(v float64) *float64 { return &v }

func TestValidator_ValidateMinimal(t *testing.T) {
	t.Parallel()

	if errs := NewValidator().Validate(minimal()); errs.HasErrors() {
		t.Errorf("Validate() = %v, want no errors", errs)
	}
}

func TestValidator_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Scenario)
		path   string
	}{
		{"missing name", func(s *Scenario) { s.Name = "" }, "name"},
		{"missing version", func(s *Scenario) { s.Version = "" }, "version"},
		{"unsupported fact", func(s *Scenario) { s.World["nested"] = map[string]any{"a": 1} }, "world.nested"},
		{"negative iterations", func(s *Scenario) { s.Planner.MaxIterations = -1 }, "planner.max_iterations"},
		{"negative depth", func(s *Scenario) { s.Planner.MaxDepth = -1 }, "planner.max_depth"},
		{"unknown cache", func(s *Scenario) { s.Cache.Backend = "memcached" }, "cache.backend"},
		{"redis cache without address", func(s *Scenario) { s.Cache.Backend = "redis" }, "cache.address"},
		{"sqlite cache without dsn", func(s *Scenario) { s.Cache.Backend = "sqlite" }, "cache.dsn"},
		{"negative ttl", func(s *Scenario) { s.Cache.TTL = -1 }, "cache.ttl"},
		{"negative retry", func(s *Scenario) { s.Cache.Resilience.Retry.MaxAttempts = -1 }, "cache.resilience.retry.max_attempts"},
		{"unknown storage", func(s *Scenario) { s.Storage.Backend = "cassandra" }, "storage.backend"},
		{"sqlite storage without dsn", func(s *Scenario) { s.Storage.Backend = "sqlite" }, "storage.dsn"},
		{"postgres storage without dsn", func(s *Scenario) { s.Storage.Backend = "postgres" }, "storage.dsn"},
		{"redis storage without address", func(s *Scenario) { s.Storage.Backend = "redis" }, "storage.address"},
		{"bad log level", func(s *Scenario) { s.Logging.Level = "loud" }, "logging.level"},
		{"bad log format", func(s *Scenario) { s.Logging.Format = "xml" }, "logging.format"},
		{"unknown exporter", func(s *Scenario) { s.Telemetry.Exporter = "zipkin" }, "telemetry.exporter"},
		{"otlp without endpoint", func(s *Scenario) { s.Telemetry.Exporter = "otlp" }, "telemetry.endpoint"},
		{"sample rate above one", func(s *Scenario) { s.Telemetry.SampleRate = 2 }, "telemetry.sample_rate"},
		{"unnamed task", func(s *Scenario) { s.Tasks[0].Name = ""; s.Agents[0].Tasks = nil }, "tasks[0].name"},
		{"duplicate task", func(s *Scenario) { s.Tasks = append(s.Tasks, TaskConfig{Name: "open_door"}) }, "tasks[1].name"},
		{"negative cost", func(s *Scenario) { s.Tasks[0].Cost = cost(-1) }, "tasks[0].cost"},
		{"cost and cost_expr", func(s *Scenario) { s.Tasks[0].Cost = cost(1); s.Tasks[0].CostExpr = "2" }, "tasks[0].cost_expr"},
		{"bad operator", func(s *Scenario) {
			s.Tasks[0].Require = []ConstraintConfig{{Key: "n", Op: "between"}}
		}, "tasks[0].require[0].op"},
		{"non numeric threshold", func(s *Scenario) {
			s.Tasks[0].Require = []ConstraintConfig{{Key: "n", Op: "greater", Value: "many"}}
		}, "tasks[0].require[0].value"},
		{"constraint without key", func(s *Scenario) {
			s.Tasks[0].Require = []ConstraintConfig{{Op: "has"}}
		}, "tasks[0].require[0].key"},
		{"unknown behavior", func(s *Scenario) { s.Tasks[0].Behavior.Type = "sleep" }, "tasks[0].behavior.type"},
		{"negative wait", func(s *Scenario) { s.Tasks[0].Behavior = BehaviorConfig{Type: "wait", Ticks: -1} }, "tasks[0].behavior.ticks"},
		{"empty macro", func(s *Scenario) { s.Macros = []MacroConfig{{Name: "m"}} }, "macros[0].steps"},
		{"macro with unknown step", func(s *Scenario) {
			s.Macros = []MacroConfig{{Name: "m", Steps: []string{"fly"}}}
		}, "macros[0].steps[0]"},
		{"macro shadows task", func(s *Scenario) {
			s.Macros = []MacroConfig{{Name: "open_door", Steps: []string{"open_door"}}}
		}, "macros[0].name"},
		{"cyclic macros", func(s *Scenario) {
			s.Macros = []MacroConfig{
				{Name: "a", Steps: []string{"b"}},
				{Name: "b", Steps: []string{"a"}},
			}
		}, "macros[0].steps"},
		{"unnamed agent", func(s *Scenario) { s.Agents[0].Name = "" }, "agents[0].name"},
		{"duplicate agent", func(s *Scenario) { s.Agents = append(s.Agents, AgentConfig{Name: "hero"}) }, "agents[1].name"},
		{"agent with unknown task", func(s *Scenario) { s.Agents[0].Tasks = []string{"fly"} }, "agents[0].tasks[0]"},
		{"bad evaluation", func(s *Scenario) { s.Agents[0].Evaluation = "best" }, "agents[0].evaluation"},
		{"unnamed goal", func(s *Scenario) { s.Agents[0].Goals[0].Name = "" }, "agents[0].goals[0].name"},
		{"agent world", func(s *Scenario) { s.Agents[0].World = map[string]any{"x": []int{1}} }, "agents[0].world.x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := minimal()
			tt.modify(s)
			errs := NewValidator().Validate(s)
			for _, e := range errs {
				if e.Path == tt.path {
					return
				}
			}
			t.Errorf("Validate() = %v, want an error at %s", errs, tt.path)
		})
	}
}

func TestValidator_MacrosAreTasks(t *testing.T) {
	t.Parallel()

	s := minimal()
	s.Tasks = append(s.Tasks, TaskConfig{Name: "walk_thru_door"})
	s.Macros = []MacroConfig{
		{Steps: []string{"open_door", "walk_thru_door"}},
		{Name: "leave", Steps: []string{"open_door+walk_thru_door"}},
	}
	s.Agents[0].Tasks = []string{"leave", "open_door+walk_thru_door"}

	if errs := NewValidator().Validate(s); errs.HasErrors() {
		t.Errorf("Validate() = %v, want no errors", errs)
	}
}

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	if got := (ValidationError{Path: "a.b", Message: "bad"}).Error(); got != "a.b: bad" {
		t.Errorf("Error() = %q, want %q", got, "a.b: bad")
	}
	if got := (ValidationError{Message: "bad"}).Error(); got != "bad" {
		t.Errorf("Error() = %q, want %q", got, "bad")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	if got := ValidationErrors(nil).Error(); got != "no validation errors" {
		t.Errorf("Error() = %q", got)
	}
	one := ValidationErrors{{Path: "name", Message: "required"}}
	if got := one.Error(); got != "name: required" {
		t.Errorf("Error() = %q, want %q", got, "name: required")
	}
	two := append(one, ValidationError{Path: "version", Message: "required"})
	if got := two.Error(); !strings.HasPrefix(got, "2 validation errors:") {
		t.Errorf("Error() = %q, want a 2 error summary", got)
	}
	if !two.HasErrors() || ValidationErrors(nil).HasErrors() {
		t.Error("HasErrors() mismatch")
	}
}

func TestValidator_AllErrorsReturned(t *testing.T) {
	t.Parallel()

	errs := NewValidator().Validate(&Scenario{
		Cache:   CacheConfig{Backend: "nope"},
		Storage: StorageConfig{Backend: "nope"},
	})
	if len(errs) != 4 {
		t.Errorf("Validate() returned %d errors, want 4: %v", len(errs), errs)
	}
}
