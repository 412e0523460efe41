package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	domainconfig "github.com/felixgeelhaar/htn-go/domain/config"
	"github.com/felixgeelhaar/htn-go/infrastructure/config"
)

// inspectOptions holds options for the inspect command.
type inspectOptions struct {
	outputJSON bool
	section    string
}

// newInspectCmd creates the inspect command.
func (a *App) newInspectCmd() *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <scenario>",
		Short: "Inspect scenario details",
		Long: `Inspect and display the contents of a scenario.

Sections:
  all             Show everything (default)
  world           Show global facts
  tasks           Show task definitions
  macros          Show macros and their steps
  agents          Show agents, their tasks and goals
  infrastructure  Show planner, cache, storage, logging and telemetry settings

Examples:
  htn inspect rooms.yaml
  htn inspect rooms.yaml --section tasks
  htn inspect rooms.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.inspectScenario(args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.outputJSON, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&opts.section, "section", "all", "Section to inspect (all, world, tasks, macros, agents, infrastructure)")

	return cmd
}

// inspectScenario inspects the scenario.
func (a *App) inspectScenario(path string, opts *inspectOptions) error {
	s, err := config.NewLoader().LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load scenario: %w", err)
	}

	if opts.outputJSON {
		return a.inspectJSON(s, opts.section)
	}
	return a.inspectText(s, opts.section)
}

type infrastructure struct {
	Planner   domainconfig.PlannerConfig   `json:"planner"`
	Cache     domainconfig.CacheConfig     `json:"cache"`
	Storage   domainconfig.StorageConfig   `json:"storage"`
	Logging   domainconfig.LoggingConfig   `json:"logging"`
	Telemetry domainconfig.TelemetryConfig `json:"telemetry"`
}

// inspectJSON outputs the scenario as JSON.
func (a *App) inspectJSON(s *domainconfig.Scenario, section string) error {
	var output any

	switch section {
	case "all":
		output = s
	case "world":
		output = s.World
	case "tasks":
		output = s.Tasks
	case "macros":
		output = s.Macros
	case "agents":
		output = s.Agents
	case "infrastructure":
		output = infrastructure{s.Planner, s.Cache, s.Storage, s.Logging, s.Telemetry}
	default:
		return fmt.Errorf("unknown section: %s", section)
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// inspectText outputs the scenario as formatted text.
func (a *App) inspectText(s *domainconfig.Scenario, section string) error {
	switch section {
	case "all":
		a.printHeader(s)
		a.printWorldSection(s)
		a.printTasksSection(s)
		a.printMacrosSection(s)
		a.printAgentsSection(s)
		a.printInfrastructureSection(s)
	case "world":
		a.printWorldSection(s)
	case "tasks":
		a.printTasksSection(s)
	case "macros":
		a.printMacrosSection(s)
	case "agents":
		a.printAgentsSection(s)
	case "infrastructure":
		a.printInfrastructureSection(s)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}

	return nil
}

func (a *App) printHeader(s *domainconfig.Scenario) {
	_, _ = fmt.Fprintf(a.stdout, "Scenario: %s\n", s.Name)
	_, _ = fmt.Fprintf(a.stdout, "═══════════════════════════════════════\n")
	_, _ = fmt.Fprintf(a.stdout, "Version: %s\n", s.Version)
	if s.Description != "" {
		_, _ = fmt.Fprintf(a.stdout, "Description: %s\n", s.Description)
	}
	_, _ = fmt.Fprintln(a.stdout)
}

func (a *App) printSectionTitle(title string) {
	_, _ = fmt.Fprintf(a.stdout, "%s\n", title)
	_, _ = fmt.Fprintf(a.stdout, "───────────────────────────────────────\n")
}

func (a *App) printFacts(indent string, facts map[string]any) {
	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(a.stdout, "%s%s: %v\n", indent, k, facts[k])
	}
}

func (a *App) printWorldSection(s *domainconfig.Scenario) {
	a.printSectionTitle("World")
	if len(s.World) == 0 {
		_, _ = fmt.Fprintf(a.stdout, "  No global facts\n")
	} else {
		a.printFacts("  ", s.World)
	}
	_, _ = fmt.Fprintln(a.stdout)
}

func (a *App) printTasksSection(s *domainconfig.Scenario) {
	a.printSectionTitle(fmt.Sprintf("Tasks (%d)", len(s.Tasks)))
	for _, t := range s.Tasks {
		_, _ = fmt.Fprintf(a.stdout, "  • %s", t.Name)
		switch {
		case t.CostExpr != "":
			_, _ = fmt.Fprintf(a.stdout, " cost=%q", t.CostExpr)
		case t.Cost != nil:
			_, _ = fmt.Fprintf(a.stdout, " cost=%g", *t.Cost)
		}
		if t.Behavior.Type != "" && t.Behavior.Type != "none" {
			_, _ = fmt.Fprintf(a.stdout, " behavior=%s", t.Behavior.Type)
		}
		_, _ = fmt.Fprintln(a.stdout)
		if len(t.Pre) > 0 {
			_, _ = fmt.Fprintf(a.stdout, "    pre:\n")
			a.printFacts("      ", t.Pre)
		}
		for _, c := range t.Require {
			_, _ = fmt.Fprintf(a.stdout, "      %s %s %v\n", c.Key, c.Op, c.Value)
		}
		if len(t.Post) > 0 {
			_, _ = fmt.Fprintf(a.stdout, "    post:\n")
			a.printFacts("      ", t.Post)
		}
	}
	_, _ = fmt.Fprintln(a.stdout)
}

func (a *App) printMacrosSection(s *domainconfig.Scenario) {
	a.printSectionTitle(fmt.Sprintf("Macros (%d)", len(s.Macros)))
	for _, m := range s.Macros {
		_, _ = fmt.Fprintf(a.stdout, "  • %s: %s\n", domainconfig.MacroName(m), strings.Join(m.Steps, " -> "))
	}
	_, _ = fmt.Fprintln(a.stdout)
}

func (a *App) printAgentsSection(s *domainconfig.Scenario) {
	a.printSectionTitle(fmt.Sprintf("Agents (%d)", len(s.Agents)))
	for _, ag := range s.Agents {
		evaluation := ag.Evaluation
		if evaluation == "" {
			evaluation = "top"
		}
		_, _ = fmt.Fprintf(a.stdout, "  • %s (%s)\n", ag.Name, evaluation)
		_, _ = fmt.Fprintf(a.stdout, "    tasks: %s\n", strings.Join(ag.Tasks, ", "))
		for _, g := range ag.Goals {
			_, _ = fmt.Fprintf(a.stdout, "    goal %s utility=%g", g.Name, g.Utility)
			if g.When != "" {
				_, _ = fmt.Fprintf(a.stdout, " when=%q", g.When)
			}
			_, _ = fmt.Fprintln(a.stdout)
		}
		if len(ag.World) > 0 {
			_, _ = fmt.Fprintf(a.stdout, "    world:\n")
			a.printFacts("      ", ag.World)
		}
	}
	_, _ = fmt.Fprintln(a.stdout)
}

func (a *App) printInfrastructureSection(s *domainconfig.Scenario) {
	a.printSectionTitle("Infrastructure")
	_, _ = fmt.Fprintf(a.stdout, "  Planner: max_iterations=%d max_depth=%d depth_from_tasks=%v\n",
		s.Planner.MaxIterations, s.Planner.MaxDepth, s.Planner.DepthFromTasks)

	cache := s.Cache.Backend
	if cache == "" {
		cache = "none"
	}
	_, _ = fmt.Fprintf(a.stdout, "  Cache: %s", cache)
	if s.Cache.TTL > 0 {
		_, _ = fmt.Fprintf(a.stdout, " ttl=%s", s.Cache.TTL.Duration())
	}
	_, _ = fmt.Fprintln(a.stdout)
	if r := s.Cache.Resilience; r.Retry.MaxAttempts > 0 || r.CircuitBreaker.Threshold > 0 {
		_, _ = fmt.Fprintf(a.stdout, "    retry=%d breaker=%d bulkhead=%d\n",
			r.Retry.MaxAttempts, r.CircuitBreaker.Threshold, r.Bulkhead.MaxConcurrent)
	}

	storage := s.Storage.Backend
	if storage == "" {
		storage = "memory"
	}
	_, _ = fmt.Fprintf(a.stdout, "  Storage: %s\n", storage)

	_, _ = fmt.Fprintf(a.stdout, "  Logging: level=%s format=%s\n", orDefault(s.Logging.Level, "info"), orDefault(s.Logging.Format, "console"))
	_, _ = fmt.Fprintf(a.stdout, "  Tracing: %s", orDefault(s.Telemetry.Exporter, "noop"))
	if s.Telemetry.Endpoint != "" {
		_, _ = fmt.Fprintf(a.stdout, " endpoint=%s", s.Telemetry.Endpoint)
	}
	_, _ = fmt.Fprintln(a.stdout)
	_, _ = fmt.Fprintf(a.stdout, "  Metrics: %v\n", s.Telemetry.Metrics)
	_, _ = fmt.Fprintln(a.stdout)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
