// Package cli provides the htn command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	htn "github.com/felixgeelhaar/htn-go"
)

// Version information set at build time.
var (
	Version   = htn.Version
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	logLevel  string
	logFormat string
	noColor   bool
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "htn",
		Short: "HTN planner and agent runtime",
		Long: `htn plans task sequences for agents with a hierarchical task network and
steps each agent through its plan one tick at a time.

A scenario file declares the world facts, the task library, macros and the
agents with their goals. Logging, storage, caching and tracing are configured
in the same file and can be overridden with flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := app.root.PersistentFlags()
	flags.StringVar(&app.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error); overrides the scenario")
	flags.StringVar(&app.logFormat, "log-format", "", "Log format (json, console); overrides the scenario")
	flags.BoolVar(&app.noColor, "no-color", false, "Disable colored console logs")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newValidateCmd(),
		app.newPlanCmd(),
		app.newRunCmd(),
		app.newHistoryCmd(),
		app.newInspectCmd(),
		app.newExportSchemaCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "htn version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
