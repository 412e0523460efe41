package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	domainconfig "github.com/felixgeelhaar/htn-go/domain/config"
	"github.com/felixgeelhaar/htn-go/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	strict     bool
	showSchema bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <scenario>",
		Short: "Validate a scenario file",
		Long: `Validate a scenario file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Required fields (name, version)
  - Fact values and constraint operators
  - Task, macro and agent references, including macro cycles
  - Backend settings for cache, storage, logging and telemetry
  - Environment variable references (in strict mode)

Examples:
  htn validate rooms.yaml
  htn validate rooms.yaml --strict
  htn validate --schema`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showSchema {
				return a.showScenarioSchema()
			}
			if len(args) == 0 {
				return fmt.Errorf("scenario file path is required")
			}
			return a.validateScenario(args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")
	cmd.Flags().BoolVar(&opts.showSchema, "schema", false, "Show JSON schema for scenarios")

	return cmd
}

// validateScenario loads, validates and builds the scenario.
func (a *App) validateScenario(path string, opts *validateOptions) error {
	loader := config.NewLoaderWithOptions(
		config.WithValidation(true),
		config.WithStrictEnv(opts.strict),
	)
	s, err := loader.LoadFile(path)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result, err := config.Build(s)
	if err != nil {
		return fmt.Errorf("scenario build failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "✓ Scenario is valid\n")
	fmt.Fprintf(a.stdout, "  Name: %s\n", s.Name)
	fmt.Fprintf(a.stdout, "  Version: %s\n", s.Version)
	if s.Description != "" {
		fmt.Fprintf(a.stdout, "  Description: %s\n", s.Description)
	}

	fmt.Fprintf(a.stdout, "\nScenario summary:\n")
	fmt.Fprintf(a.stdout, "  World facts: %d\n", result.World.Len())
	fmt.Fprintf(a.stdout, "  Tasks: %d\n", result.Registry.Len())
	if len(s.Macros) > 0 {
		fmt.Fprintf(a.stdout, "  Macros: %d\n", len(s.Macros))
		for _, m := range s.Macros {
			fmt.Fprintf(a.stdout, "    - %s\n", domainconfig.MacroName(m))
		}
	}
	if len(result.Behaviors) > 0 {
		fmt.Fprintf(a.stdout, "  Behaviors: %d\n", len(result.Behaviors))
	}
	fmt.Fprintf(a.stdout, "  Agents: %d\n", len(result.Agents))
	for _, ag := range result.Agents {
		fmt.Fprintf(a.stdout, "    - %s (%d tasks, %d goals)\n", ag.Name(), len(ag.Tasks()), len(ag.Goals()))
	}

	if s.Cache.Backend != "" && s.Cache.Backend != "none" {
		fmt.Fprintf(a.stdout, "  Plan cache: %s\n", s.Cache.Backend)
	}
	if s.Storage.Backend != "" {
		fmt.Fprintf(a.stdout, "  Storage: %s\n", s.Storage.Backend)
	}
	if s.Telemetry.Exporter != "" {
		fmt.Fprintf(a.stdout, "  Tracing: %s\n", s.Telemetry.Exporter)
	}

	return nil
}

// showScenarioSchema displays the JSON schema for scenarios.
func (a *App) showScenarioSchema() error {
	schemaJSON, err := config.SchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	fmt.Fprintln(a.stdout, schemaJSON)
	return nil
}
