package logging

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// testLogger creates a logger that writes to a buffer for testing
func testLogger() (*bolt.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := bolt.NewJSONHandler(buf)
	logger := bolt.New(handler).SetLevel(bolt.TRACE)
	return logger, buf
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()

	if config.Level != "info" {
		t.Errorf("Level = %s, want info", config.Level)
	}
	if config.Format != "console" {
		t.Errorf("Format = %s, want console", config.Format)
	}
	if config.Output != os.Stderr {
		t.Errorf("Output = %v, want os.Stderr", config.Output)
	}
}

func TestProductionConfig(t *testing.T) {
	t.Parallel()

	config := ProductionConfig()

	if config.Format != "json" {
		t.Errorf("Format = %s, want json", config.Format)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bolt.Level
	}{
		{"trace", bolt.TRACE},
		{"debug", bolt.DEBUG},
		{"info", bolt.INFO},
		{"warn", bolt.WARN},
		{"warning", bolt.WARN},
		{"error", bolt.ERROR},
		{"ERROR", bolt.ERROR},
		{"", bolt.INFO},
		{"verbose", bolt.INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewWritesJSON(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := New(Config{Level: "debug", Format: "json", Output: buf})
	NewEvent(logger.Info()).Add(Task("open_door")).Msg("activated")

	if !bytes.Contains(buf.Bytes(), []byte(`"task":"open_door"`)) {
		t.Errorf("expected task field in output: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("activated")) {
		t.Errorf("expected message in output: %s", buf.String())
	}
}

func TestNewRespectsLevel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := New(Config{Level: "warn", Format: "json", Output: buf})
	logger.Info().Msg("hidden")

	if buf.Len() != 0 {
		t.Errorf("info event written at warn level: %s", buf.String())
	}
}

func TestFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field Field
		want  string
	}{
		{"agent id", AgentID("a-1"), `"agent_id":"a-1"`},
		{"agent", Agent("hero"), `"agent":"hero"`},
		{"task", Task("goto_door"), `"task":"goto_door"`},
		{"goal", Goal("leave_room"), `"goal":"leave_room"`},
		{"phase", Phase("running"), `"phase":"running"`},
		{"from phase", FromPhase("planned"), `"from_phase":"planned"`},
		{"to phase", ToPhase("running"), `"to_phase":"running"`},
		{"status", Status("success"), `"status":"success"`},
		{"cost", Cost(2.5), `"cost":"2.5"`},
		{"depth", Depth(3), `"depth":3`},
		{"iterations", Iterations(10000), `"iterations":10000`},
		{"nodes", Nodes(42), `"nodes":42`},
		{"leaves", Leaves(2), `"leaves":2`},
		{"steps", Steps([]string{"a", "b"}), `"steps":"a,b"`},
		{"tick", Tick(7), `"tick":7`},
		{"key", Key("hungry"), `"key":"hungry"`},
		{"duration", Duration(100 * time.Millisecond), `"duration_ms":100`},
		{"cached", Cached(true), `"cached":true`},
		{"component", Component("planner"), `"component":"planner"`},
		{"operation", Operation("search"), `"operation":"search"`},
		{"path", Path("rooms.yaml"), `"path":"rooms.yaml"`},
		{"str", Str("custom", "value"), `"custom":"value"`},
		{"int", Int("count", 42), `"count":42`},
		{"bool", Bool("enabled", true), `"enabled":true`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, buf := testLogger()
			if tt.field == nil {
				t.Fatal("field constructor returned nil")
			}
			tt.field(logger.Info()).Msg("test")

			if !bytes.Contains(buf.Bytes(), []byte(tt.want)) {
				t.Errorf("expected %s in output: %s", tt.want, buf.String())
			}
		})
	}
}

func TestErrorField(t *testing.T) {
	t.Parallel()

	t.Run("with error", func(t *testing.T) {
		t.Parallel()

		logger, buf := testLogger()
		ErrorField(errors.New("test error"))(logger.Info()).Msg("test")

		if !bytes.Contains(buf.Bytes(), []byte(`"error":"test error"`)) {
			t.Errorf("expected error field in output: %s", buf.String())
		}
	})

	t.Run("with nil error", func(t *testing.T) {
		t.Parallel()

		logger, buf := testLogger()
		ErrorField(nil)(logger.Info()).Msg("test")

		if bytes.Contains(buf.Bytes(), []byte(`"error"`)) {
			t.Errorf("unexpected error field in output: %s", buf.String())
		}
	})
}

func TestLogEventChaining(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	NewEvent(logger.Warn()).
		Add(Agent("hero")).
		Add(Iterations(10000)).
		Msg("search budget exceeded")

	for _, want := range []string{`"agent":"hero"`, `"iterations":10000`, "search budget exceeded"} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("expected %s in output: %s", want, buf.String())
		}
	}
}

func TestSetAndGet(t *testing.T) {
	// Not parallel: swaps the package default logger.
	previous := Get()
	t.Cleanup(func() { Set(previous) })

	logger, buf := testLogger()
	Set(logger)

	if Get() != logger {
		t.Fatal("Get() did not return the logger installed by Set()")
	}

	Info().Add(Goal("eat")).Msg("goal selected")
	if !bytes.Contains(buf.Bytes(), []byte(`"goal":"eat"`)) {
		t.Errorf("expected goal field in output: %s", buf.String())
	}
}
