package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/htn-go/domain/agent"
	"github.com/felixgeelhaar/htn-go/infrastructure/config"
	"github.com/felixgeelhaar/htn-go/infrastructure/logging"
)

// runOptions holds options for the run command.
type runOptions struct {
	ticks      int
	interval   time.Duration
	db         string
	watch      bool
	strict     bool
	untilIdle  bool
	jsonOutput bool
}

// agentState is an agent's position after a run.
type agentState struct {
	Agent     string   `json:"agent"`
	Phase     string   `json:"phase"`
	Goal      string   `json:"goal,omitempty"`
	Task      string   `json:"task,omitempty"`
	Remaining []string `json:"remaining,omitempty"`
}

// runSummary is the run command output.
type runSummary struct {
	Ticks    uint64       `json:"ticks"`
	Reported int          `json:"reported"`
	Agents   []agentState `json:"agents"`
	Duration string       `json:"duration"`
}

// newRunCmd creates the run command.
func (a *App) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run the agents of a scenario for a number of ticks",
		Long: `Run the tick loop for a scenario. Each tick plans for agents without a plan,
steps every other agent once, then lets task behaviors report outcomes.

With --db the event log and agent snapshots go to a sqlite file, so a later
run resumes where this one stopped and "htn history" can read the events.
With --watch the scenario's world facts are reloaded whenever the file changes.

Examples:
  htn run rooms.yaml --ticks 10
  htn run rooms.yaml --ticks 100 --interval 500ms --watch
  htn run rooms.yaml --db rooms.db --until-idle`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.ticks, "ticks", 10, "Number of ticks to run")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Pause between ticks")
	cmd.Flags().StringVar(&opts.db, "db", "", "Persist events and snapshots to this sqlite file")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload world facts when the scenario changes")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail on missing environment variables")
	cmd.Flags().BoolVar(&opts.untilIdle, "until-idle", false, "Stop early once no agent is running")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the summary as JSON")

	return cmd
}

func (a *App) run(ctx context.Context, path string, opts *runOptions) error {
	if opts.ticks <= 0 {
		return fmt.Errorf("--ticks must be positive, got %d", opts.ticks)
	}

	env, err := a.openEnvironment(ctx, path, envOptions{
		strictEnv: opts.strict,
		db:        opts.db,
		runtime:   true,
	})
	if err != nil {
		return err
	}
	defer env.close(ctx)

	if opts.watch {
		w, err := config.NewWatcher(path, env.runtime.SetWorld,
			config.WithWatchLoader(config.NewLoaderWithOptions(config.WithStrictEnv(opts.strict))))
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	start := time.Now()
	reported := 0
	for i := 0; i < opts.ticks; i++ {
		report, n, err := env.step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logging.Warn().
				Add(logging.Tick(report.Tick)).
				Add(logging.ErrorField(err)).
				Msg("tick reported errors")
		}
		reported += n

		if !opts.jsonOutput {
			a.printTick(report.Tick, report.Planned, failures(report.PlanFailures), report.Transitions, n)
		}
		if opts.untilIdle && idle(env.runtime.Agents()) {
			break
		}
		if opts.interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(opts.interval):
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	summary := runSummary{
		Ticks:    env.runtime.Ticks(),
		Reported: reported,
		Agents:   states(env.runtime.Agents()),
		Duration: time.Since(start).String(),
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Fprintf(a.stdout, "\nRun stopped after %d ticks (%s)\n", summary.Ticks, summary.Duration)
	for _, s := range summary.Agents {
		fmt.Fprintf(a.stdout, "  %s: %s", s.Agent, s.Phase)
		if s.Task != "" {
			fmt.Fprintf(a.stdout, " on %s", s.Task)
		}
		if len(s.Remaining) > 0 {
			fmt.Fprintf(a.stdout, ", then %s", strings.Join(s.Remaining, " -> "))
		}
		fmt.Fprintln(a.stdout)
	}
	return nil
}

func (a *App) printTick(tick uint64, planned, failed []string, transitions, reported int) {
	fmt.Fprintf(a.stdout, "tick %d: %d transitions", tick, transitions)
	if len(planned) > 0 {
		fmt.Fprintf(a.stdout, ", planned %s", strings.Join(planned, ", "))
	}
	if len(failed) > 0 {
		fmt.Fprintf(a.stdout, ", no plan for %s", strings.Join(failed, ", "))
	}
	if reported > 0 {
		fmt.Fprintf(a.stdout, ", %d reported", reported)
	}
	fmt.Fprintln(a.stdout)
}

func failures(m map[string]error) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// idle reports whether no agent has work in flight.
func idle(agents []*agent.Agent) bool {
	for _, ag := range agents {
		if ag.HasPlan() || ag.Phase() == agent.PhaseRunning {
			return false
		}
	}
	return true
}

func states(agents []*agent.Agent) []agentState {
	out := make([]agentState, 0, len(agents))
	for _, ag := range agents {
		out = append(out, agentState{
			Agent:     ag.Name(),
			Phase:     string(ag.Phase()),
			Goal:      ag.Goal(),
			Task:      ag.CurrentTask(),
			Remaining: ag.Plan(),
		})
	}
	return out
}
