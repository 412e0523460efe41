package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/htn-go/infrastructure/config"
)

// exportSchemaOptions holds options for the export-schema command.
type exportSchemaOptions struct {
	outputPath string
}

// newExportSchemaCmd creates the export-schema command.
func (a *App) newExportSchemaCmd() *cobra.Command {
	opts := &exportSchemaOptions{}

	cmd := &cobra.Command{
		Use:   "export-schema",
		Short: "Export the scenario JSON schema",
		Long: `Export the JSON Schema for scenario files.

The exported schema can be used for IDE validation and autocompletion.
It follows JSON Schema draft 2020-12.

Examples:
  # Export schema to stdout
  htn export-schema

  # Export schema to a file
  htn export-schema -o scenario.schema.json

  # Use with VS Code
  # Add to .vscode/settings.json:
  # "yaml.schemas": {
  #   "./scenario.schema.json": ["scenarios/*.yaml"]
  # }`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exportSchema(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Output file path (default: stdout)")

	return cmd
}

// exportSchema exports the scenario JSON schema.
func (a *App) exportSchema(opts *exportSchemaOptions) error {
	schemaJSON, err := config.SchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if opts.outputPath == "" {
		_, _ = fmt.Fprintln(a.stdout, schemaJSON)
		return nil
	}

	if err := os.WriteFile(opts.outputPath, []byte(schemaJSON), 0600); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}

	_, _ = fmt.Fprintf(a.stdout, "Schema exported to %s\n", opts.outputPath)
	return nil
}
