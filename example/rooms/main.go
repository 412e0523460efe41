// Package main plans and runs a single agent that has to leave a room.
// The task library includes tasks the planner must ignore (goto_a and
// close_door), and open_door+walk_thru_door is a macro.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/felixgeelhaar/htn-go/application"
	"github.com/felixgeelhaar/htn-go/domain/agent"
	"github.com/felixgeelhaar/htn-go/domain/event"
	"github.com/felixgeelhaar/htn-go/domain/goal"
	"github.com/felixgeelhaar/htn-go/domain/task"
	"github.com/felixgeelhaar/htn-go/domain/world"
	"github.com/felixgeelhaar/htn-go/infrastructure/behavior"
	infraevent "github.com/felixgeelhaar/htn-go/infrastructure/event"
	"github.com/felixgeelhaar/htn-go/infrastructure/logging"
	"github.com/felixgeelhaar/htn-go/infrastructure/planner"
	"github.com/felixgeelhaar/htn-go/infrastructure/storage/memory"
)

func when(pairs ...world.Pair) world.Requirements {
	return world.RequirementsOf(world.Of(pairs...))
}

// planned returns every step of the agent's plan, including the task the
// tick may already have started.
func planned(a *agent.Agent) []string {
	steps := a.Plan()
	if current := a.CurrentTask(); current != "" {
		steps = append([]string{current}, steps...)
	}
	return steps
}

func main() {
	ctx := context.Background()
	logging.Init(logging.DefaultConfig())

	// 1. Register the task library. Every task attaches the "moving" marker
	// so the debug behavior completes it on the tick it starts.
	moving := behavior.NewDebug("moving", "")
	registry := memory.NewTaskRegistry()
	defs := map[string]*task.StaticDefinition{
		"goto_a": behavior.Define(moving,
			when(world.P("room", world.String("b"))),
			world.Of(world.P("room", world.String("a")))),
		"goto_door": behavior.Define(moving,
			when(world.P("near_door", world.Bool(false))),
			world.Of(world.P("near_door", world.Bool(true)))),
		"open_door": behavior.Define(moving,
			when(world.P("near_door", world.Bool(true)), world.P("door_open", world.Bool(false))),
			world.Of(world.P("door_open", world.Bool(true))),
			task.WithCost(2)),
		"close_door": behavior.Define(moving,
			when(world.P("door_open", world.Bool(true))),
			world.Of(world.P("door_open", world.Bool(false)))),
		"walk_thru_door": behavior.Define(moving,
			when(world.P("door_open", world.Bool(true))),
			world.Of(world.P("room", world.String("b")))),
	}
	for name, def := range defs {
		if err := registry.Register(name, def); err != nil {
			log.Fatal(err)
		}
	}

	// 2. Create the agent with its tasks and goal.
	hero := agent.New("hero",
		agent.WithTasks(
			task.Named("goto_a"),
			task.Named("goto_door"),
			task.Named("close_door"),
			task.NewMacro("", task.Named("open_door"), task.Named("walk_thru_door")),
		),
		agent.WithGoals(goal.New("leave", when(world.P("room", world.String("b"))), 10)),
		agent.WithWorld(world.Of(world.P("near_door", world.Bool(false)))),
	)

	// 3. Build the runtime around a depth-first planner and an in-memory event log.
	events := memory.NewEventStore()
	publisher := infraevent.NewPublisher(events)
	rt, err := application.NewRuntimeWithOptions(
		application.WithRegistry(registry),
		application.WithPlanner(planner.NewSearch(registry, planner.WithDepthFromTasks())),
		application.WithWorld(world.Of(
			world.P("room", world.String("a")),
			world.P("door_open", world.Bool(false)),
		)),
		application.WithPublisher(publisher),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer rt.Close()

	if err := rt.AddAgent(ctx, hero); err != nil {
		log.Fatal(err)
	}

	// 4. Tick until the plan completes.
	fmt.Println("=== Rooms Example ===")
	for i := 0; i < 20; i++ {
		report, err := rt.Tick(ctx)
		if err != nil {
			log.Fatal(err)
		}
		if len(report.Planned) > 0 {
			fmt.Printf("tick %d: planned %v\n", report.Tick, planned(hero))
		}
		if _, err := (behavior.Set{moving}).Run(ctx, rt); err != nil {
			log.Fatal(err)
		}
		if err := publisher.Flush(ctx); err != nil {
			log.Fatal(err)
		}

		done, err := events.Query(ctx, hero.ID(), event.QueryOptions{Types: []event.Type{event.TypePlanCompleted}})
		if err != nil {
			log.Fatal(err)
		}
		if len(done) > 0 {
			fmt.Printf("tick %d: %s reached goal %q\n", report.Tick, hero.Name(), "leave")
			break
		}
	}

	// 5. Print the event log.
	all, err := events.LoadEvents(ctx, hero.ID())
	if err != nil {
		log.Fatal(err)
	}
	for _, e := range all {
		fmt.Printf("%3d %-18s %s\n", e.Sequence, e.Type, e.Payload)
	}
}
