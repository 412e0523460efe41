package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/htn-go/domain/agent"
	"github.com/felixgeelhaar/htn-go/domain/event"
	"github.com/felixgeelhaar/htn-go/infrastructure/storage/sqlite"
)

// historyOptions holds options for the history command.
type historyOptions struct {
	db         string
	agent      string
	types      []string
	limit      int
	jsonOutput bool
}

// newHistoryCmd creates the history command.
func (a *App) newHistoryCmd() *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the event log of a persisted run",
		Long: `Read the events a "htn run --db" wrote for an agent. Without --agent the
IDs of every agent with events are listed.

Examples:
  htn history --db rooms.db
  htn history --db rooms.db --agent hero
  htn history --db rooms.db --agent hero --type task.succeeded --type task.failed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.history(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.db, "db", "", "Sqlite file written by run --db (required)")
	cmd.Flags().StringVar(&opts.agent, "agent", "", "Agent name")
	cmd.Flags().StringSliceVar(&opts.types, "type", nil, "Only show these event types")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Maximum number of events")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output events as JSON")

	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func (a *App) history(ctx context.Context, opts *historyOptions) error {
	if _, err := os.Stat(opts.db); err != nil {
		return fmt.Errorf("open history: %w", err)
	}

	db, err := sqlite.Open(sqlite.DefaultConfig(), sqlite.WithDSN(sqliteDSN(opts.db)))
	if err != nil {
		return err
	}
	defer db.Close()

	store := sqlite.NewEventStore(db)
	defer store.Close()

	if opts.agent == "" {
		ids, err := store.ListAgents(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(a.stdout, id)
		}
		return nil
	}

	q := event.QueryOptions{Limit: opts.limit}
	for _, t := range opts.types {
		q.Types = append(q.Types, event.Type(t))
	}

	events, err := store.Query(ctx, agent.IDFor(opts.agent), q)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return errors.New("no events for agent " + opts.agent)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}

	for _, e := range events {
		fmt.Fprintf(a.stdout, "%4d  %s  %-22s %s\n",
			e.Sequence, e.Timestamp.Format(time.RFC3339), e.Type, e.Payload)
	}
	return nil
}
