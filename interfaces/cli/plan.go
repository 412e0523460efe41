package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// planOptions holds options for the plan command.
type planOptions struct {
	agent      string
	jsonOutput bool
	strict     bool
}

// agentPlan is one agent's planning result.
type agentPlan struct {
	Agent      string   `json:"agent"`
	Goal       string   `json:"goal,omitempty"`
	Steps      []string `json:"steps,omitempty"`
	Cost       float64  `json:"cost,omitempty"`
	Iterations int      `json:"iterations,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// newPlanCmd creates the plan command.
func (a *App) newPlanCmd() *cobra.Command {
	opts := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan <scenario>",
		Short: "Print the plan each agent would follow",
		Long: `Run the planner once for every agent in a scenario against its world and
print the chosen goal, steps and cost. Nothing is executed or stored.

Examples:
  htn plan rooms.yaml
  htn plan rooms.yaml --agent hero --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.plan(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.agent, "agent", "", "Only plan for this agent")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail on missing environment variables")

	return cmd
}

func (a *App) plan(ctx context.Context, path string, opts *planOptions) error {
	env, err := a.openEnvironment(ctx, path, envOptions{strictEnv: opts.strict})
	if err != nil {
		return err
	}
	defer env.close(ctx)

	var results []agentPlan
	failed := 0
	for _, ag := range env.build.Agents {
		if opts.agent != "" && ag.Name() != opts.agent {
			continue
		}
		r := agentPlan{Agent: ag.Name()}
		p, err := env.planner.Plan(ctx, ag.Request(env.build.World))
		if err != nil {
			r.Error = err.Error()
			failed++
		} else {
			r.Goal = p.Goal
			r.Steps = p.Steps
			r.Cost = p.Cost
			r.Iterations = p.Stats.Iterations
		}
		results = append(results, r)
	}
	if opts.agent != "" && len(results) == 0 {
		return fmt.Errorf("unknown agent: %s", opts.agent)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Error != "" {
				fmt.Fprintf(a.stdout, "%s: no plan (%s)\n", r.Agent, r.Error)
				continue
			}
			fmt.Fprintf(a.stdout, "%s: %s\n", r.Agent, r.Goal)
			fmt.Fprintf(a.stdout, "  Steps: %s\n", strings.Join(r.Steps, " -> "))
			fmt.Fprintf(a.stdout, "  Cost: %g\n", r.Cost)
			fmt.Fprintf(a.stdout, "  Iterations: %d\n", r.Iterations)
		}
	}

	if failed == len(results) && failed > 0 {
		return errors.New("no agent could be planned for")
	}
	return nil
}
