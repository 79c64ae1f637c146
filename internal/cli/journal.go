package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Service  string
	Forget   string
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List idempotency journal entries",
		Long: `List the entries of an idempotency journal in recording order.

The database defaults to journal.path from the configuration.

Examples:
  servactory journal --db ./journal.db
  servactory journal --db ./journal.db --service PlaceOrder --format json
  servactory journal --db ./journal.db --service PlaceOrder --forget <key>`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite journal")
	cmd.Flags().StringVar(&opts.Service, "service", "", "only list entries of this service")
	cmd.Flags().StringVar(&opts.Forget, "forget", "", "remove the entry with this key (requires --service)")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	if opts.Forget != "" && opts.Service == "" {
		return NewExitError(ExitCommandError, "--forget requires --service")
	}

	path := opts.Database
	if path == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Journal.Path
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no journal database: pass --db or set journal.path")
	}
	// Open would create a missing database.
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "journal database not found", err)
	}

	j, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	ctx := context.Background()
	if opts.Forget != "" {
		if err := j.Forget(ctx, opts.Service, opts.Forget); err != nil {
			return WrapExitError(ExitCommandError, "failed to forget entry", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(map[string]string{"service": opts.Service, "forgotten": opts.Forget})
		}
		fmt.Fprintf(formatter.Writer, "Forgot %s/%s\n", opts.Service, opts.Forget)
		return nil
	}

	entries, err := j.Entries(ctx, opts.Service)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	formatter.VerboseLog("Read %d entries from %s", len(entries), path)

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "No journal entries")
		return nil
	}
	for _, e := range entries {
		outputs, err := ir.MarshalCanonical(e.Outputs)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to encode outputs", err)
		}
		fmt.Fprintf(formatter.Writer, "%d  %s  %s  %s  %s\n", e.Seq, e.Service, e.Key, e.InvocationID, outputs)
	}
	return nil
}
