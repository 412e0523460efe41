package memory

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/felixgeelhaar/htn-go/domain/task"
	"github.com/felixgeelhaar/htn-go/domain/world"
)

func definition(cost float64) task.Definition {
	return task.NewDefinition(world.Requirements{}, world.New(), task.WithCost(cost))
}

func TestTaskRegistryRegisterAndGet(t *testing.T) {
	t.Parallel()

	r := NewTaskRegistry()
	if err := r.Register("goto_door", definition(1)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	def, ok := r.Get("goto_door")
	if !ok {
		t.Fatal("Get() did not find registered task")
	}
	if def.Cost(world.New()) != 1 {
		t.Errorf("Cost() = %v, want 1", def.Cost(world.New()))
	}
	if !r.Has("goto_door") || r.Has("open_door") {
		t.Error("Has() reported the wrong membership")
	}
}

func TestTaskRegistryLastWriteWins(t *testing.T) {
	t.Parallel()

	r := NewTaskRegistry()
	_ = r.Register("walk", definition(1))
	_ = r.Register("walk", definition(5))

	def, _ := r.Get("walk")
	if def.Cost(world.New()) != 5 {
		t.Errorf("Cost() = %v, want 5 from the second registration", def.Cost(world.New()))
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestTaskRegistryRejectsInvalid(t *testing.T) {
	t.Parallel()

	r := NewTaskRegistry()
	if err := r.Register("  ", definition(0)); !errors.Is(err, task.ErrInvalidTaskName) {
		t.Errorf("Register(blank) error = %v, want ErrInvalidTaskName", err)
	}
	if err := r.Register("nil", nil); !errors.Is(err, task.ErrNilDefinition) {
		t.Errorf("Register(nil) error = %v, want ErrNilDefinition", err)
	}
}

func TestTaskRegistryNamesSorted(t *testing.T) {
	t.Parallel()

	r := NewTaskRegistry()
	for _, n := range []string{"open_door", "close_door", "goto_a"} {
		_ = r.Register(n, definition(0))
	}

	want := []string{"close_door", "goto_a", "open_door"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestTaskRegistryUnregister(t *testing.T) {
	t.Parallel()

	r := NewTaskRegistry()
	_ = r.Register("pickup", definition(0))

	if err := r.Unregister("pickup"); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if err := r.Unregister("pickup"); !errors.Is(err, task.ErrUnknownTask) {
		t.Errorf("Unregister(missing) error = %v, want ErrUnknownTask", err)
	}
}

func TestTaskRegistryConcurrentReads(t *testing.T) {
	t.Parallel()

	r := NewTaskRegistry()
	_ = r.Register("a", definition(1))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.Get("a"); !ok {
				t.Error("concurrent Get() missed a registered task")
			}
			_ = r.Names()
		}()
	}
	wg.Wait()
}
