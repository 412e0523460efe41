package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/htn-go/domain/config"
)

const roomsYAML = `
name: rooms
version: "1"
world:
  door_open: false
  room: a
planner:
  max_depth: 8
tasks:
  - name: goto_door
    pre: {near_door: false}
    post: {near_door: true}
  - name: open_door
    pre: {near_door: true, door_open: false}
    post: {door_open: true}
    cost: 2
    behavior: {type: debug, message: opening}
  - name: walk_thru_door
    pre: {door_open: true}
    post: {room: b}
    behavior: {type: wait, ticks: 2}
macros:
  - steps: [open_door, walk_thru_door]
agents:
  - name: hero
    tasks: [goto_door, open_door+walk_thru_door]
    world: {near_door: false}
    goals:
      - name: leave
        requires: {room: b}
        utility: 10
`

const roomsJSON = `{
  "name": "rooms",
  "version": "1",
  "world": {"door_open": false},
  "tasks": [
    {"name": "open_door", "pre": {"door_open": false}, "post": {"door_open": true}}
  ],
  "agents": [
    {"name": "hero", "tasks": ["open_door"], "goals": [{"name": "open", "requires": {"door_open": true}}]}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoader_LoadFile_YAML(t *testing.T) {
	t.Parallel()

	s, err := NewLoader().LoadFile(writeFile(t, "rooms.yaml", roomsYAML))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if s.Name != "rooms" {
		t.Errorf("Name = %s, want rooms", s.Name)
	}
	if s.Planner.MaxDepth != 8 {
		t.Errorf("Planner.MaxDepth = %d, want 8", s.Planner.MaxDepth)
	}
	if len(s.Tasks) != 3 {
		t.Errorf("len(Tasks) = %d, want 3", len(s.Tasks))
	}
	if s.Tasks[1].Cost == nil || *s.Tasks[1].Cost != 2 {
		t.Errorf("Tasks[1].Cost = %v, want 2", s.Tasks[1].Cost)
	}
	if s.Tasks[2].Behavior.Type != "wait" || s.Tasks[2].Behavior.Ticks != 2 {
		t.Errorf("Tasks[2].Behavior = %+v, want wait for 2 ticks", s.Tasks[2].Behavior)
	}
	if got := config.MacroName(s.Macros[0]); got != "open_door+walk_thru_door" {
		t.Errorf("MacroName() = %s, want open_door+walk_thru_door", got)
	}
	if s.Agents[0].Goals[0].Utility != 10 {
		t.Errorf("Goals[0].Utility = %v, want 10", s.Agents[0].Goals[0].Utility)
	}
}

func TestLoader_LoadFile_JSON(t *testing.T) {
	t.Parallel()

	s, err := NewLoader().LoadFile(writeFile(t, "rooms.json", roomsJSON))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if s.Name != "rooms" || len(s.Agents) != 1 {
		t.Errorf("LoadFile() = %+v, want rooms with one agent", s)
	}
}

func TestLoader_LoadFile_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path func(t *testing.T) string
		want error
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }, config.ErrConfigNotFound},
		{"directory", func(t *testing.T) string { return t.TempDir() }, config.ErrInvalidFormat},
		{"unsupported extension", func(t *testing.T) string { return writeFile(t, "rooms.toml", "name = 1") }, config.ErrUnsupportedFormat},
		{"invalid yaml", func(t *testing.T) string { return writeFile(t, "bad.yaml", "name: [unterminated") }, config.ErrInvalidFormat},
		{"invalid json", func(t *testing.T) string { return writeFile(t, "bad.json", "{") }, config.ErrInvalidFormat},
		{"validation", func(t *testing.T) string { return writeFile(t, "empty.yaml", "description: x") }, config.ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewLoader().LoadFile(tt.path(t))
			if !errors.Is(err, tt.want) {
				t.Errorf("LoadFile() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoader_ValidationErrorsUnwrap(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().LoadString("description: x", FormatYAML)
	var errs config.ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("LoadString() error = %v, want ValidationErrors", err)
	}
	if len(errs) != 2 {
		t.Errorf("len(errs) = %d, want 2", len(errs))
	}
}

func TestLoader_WithoutValidation(t *testing.T) {
	t.Parallel()

	l := NewLoaderWithOptions(WithValidation(false))
	s, err := l.LoadString("description: x", FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if s.Description != "x" {
		t.Errorf("Description = %s, want x", s.Description)
	}
}

func TestLoader_EnvExpansion(t *testing.T) {
	t.Setenv("HTN_TEST_SCENARIO", "expanded")

	content := "name: ${HTN_TEST_SCENARIO}\nversion: \"1\"\n"

	s, err := NewLoader().LoadString(content, FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if s.Name != "expanded" {
		t.Errorf("Name = %s, want expanded", s.Name)
	}

	raw, err := NewLoaderWithOptions(WithEnvExpansion(false), WithValidation(false)).LoadString(content, FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if raw.Name != "${HTN_TEST_SCENARIO}" {
		t.Errorf("Name = %s, want the unexpanded reference", raw.Name)
	}

	_, err = NewLoaderWithOptions(WithStrictEnv(true)).LoadString("name: ${HTN_TEST_UNSET}\nversion: \"1\"\n", FormatYAML)
	if !errors.Is(err, config.ErrMissingEnvVar) {
		t.Errorf("strict LoadString() error = %v, want ErrMissingEnvVar", err)
	}
}

func TestLoader_LoadBytes(t *testing.T) {
	t.Parallel()

	s, err := NewLoader().LoadBytes([]byte(roomsJSON), FormatJSON)
	if err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}
	if s.Version != "1" {
		t.Errorf("Version = %s, want 1", s.Version)
	}

	if _, err := NewLoader().LoadBytes([]byte(roomsJSON), Format("toml")); !errors.Is(err, config.ErrUnsupportedFormat) {
		t.Errorf("LoadBytes() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestFormatFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"a.yaml", FormatYAML, false},
		{"a.YML", FormatYAML, false},
		{"a.json", FormatJSON, false},
		{"a", "", true},
		{"a.toml", "", true},
	}

	for _, tt := range tests {
		got, err := FormatFor(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("FormatFor(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("FormatFor(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
