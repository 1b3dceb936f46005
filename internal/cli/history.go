package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sealed/internal/harness"
	"github.com/roach88/sealed/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	Limit   int
	RunID   string
}

// HistoryResult holds the history output.
type HistoryResult struct {
	Runs  []store.RunRecord    `json:"runs,omitempty"`
	Trace []harness.TraceEvent `json:"trace,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled runs",
		Long: `List journaled runs, newest first.

With --run, shows the step trace of a single run instead: every executed
step in order, with its phase and any error.

Examples:
  sealed history --journal runs.db
  sealed history --journal runs.db --limit 10
  sealed history --journal runs.db --run 0198c7e2-5f2a-7c3b-9e4d-1a2b3c4d5e6f`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite run journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 = all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the step trace of one run")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	if opts.RunID != "" {
		return outputTrace(ctx, formatter, st, opts.RunID)
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(HistoryResult{Runs: runs})
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs journaled.")
		return nil
	}

	w := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tTEST\tCLASS\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Test, r.Class, r.StartedAt.Local().Format(time.RFC3339))
	}
	return w.Flush()
}

func outputTrace(ctx context.Context, formatter *OutputFormatter, st *store.Store, runID string) error {
	trace, err := st.ReadTrace(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}
	if len(trace) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no trace found for run %s", runID))
	}

	if formatter.Format == "json" {
		return formatter.Success(HistoryResult{Trace: trace})
	}

	fmt.Fprintf(formatter.Writer, "Trace for run %s:\n", runID)
	for _, ev := range trace {
		line := fmt.Sprintf("  %d. %s", ev.Seq, ev.Step)
		if ev.Phase != "" {
			line += fmt.Sprintf(" (%s)", ev.Phase)
		}
		if ev.Detail != "" {
			line += " " + ev.Detail
		}
		fmt.Fprintln(formatter.Writer, line)
		if ev.Error != "" {
			fmt.Fprintf(formatter.Writer, "     error: %s\n", ev.Error)
		}
	}
	return nil
}
