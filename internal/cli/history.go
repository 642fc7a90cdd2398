package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cmdtest/internal/store"
	"github.com/roach88/cmdtest/internal/suite"
	"github.com/roach88/cmdtest/internal/tap"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs or replay one",
		Long: `Show runs recorded with "cmdtest run --db".

Without a run ID, lists runs newest first. With a run ID, replays the
TAP stream the run produced.

Exit codes:
  0 - Success
  2 - Command error (missing database, unknown run)

Examples:
  cmdtest history --db results.db
  cmdtest history --db results.db --limit 5 --format json
  cmdtest history --db results.db 0b9c5f3e-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the results database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 for all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// runView is the JSON shape of a listed run.
type runView struct {
	store.Run
	Counts map[string]int `json:"counts"`
	OK     bool           `json:"ok"`
}

// resultView is the JSON shape of a replayed result.
type resultView struct {
	Ordinal    int    `json:"ordinal"`
	Case       string `json:"case"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Line       string `json:"line"`
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	if len(args) == 1 {
		run, err := st.GetRun(ctx, args[0])
		if errors.Is(err, store.ErrRunNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run %q not found", args[0]))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		results, err := st.Results(ctx, run.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read results", err)
		}
		views := make([]resultView, len(results))
		for i, r := range results {
			views[i] = resultView{
				Ordinal:    r.Ordinal,
				Case:       r.CaseID,
				Outcome:    r.Outcome.String(),
				Reason:     r.Reason,
				DurationMS: r.Duration.Milliseconds(),
				Line:       r.Line,
			}
		}
		data := map[string]any{"run": newRunView(run), "results": views}
		return formatter.Success(data, func(w io.Writer) error {
			return replay(w, run, results)
		})
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	opts.Logger.Debug("listed runs", "db", opts.Database, "count", len(runs))

	views := make([]runView, len(runs))
	for i, r := range runs {
		views[i] = newRunView(r)
	}
	return formatter.Success(views, func(w io.Writer) error {
		return listRuns(w, runs)
	})
}

func newRunView(r store.Run) runView {
	counts := make(map[string]int, len(r.Counts))
	for o, n := range r.Counts {
		counts[o.String()] = n
	}
	return runView{Run: r, Counts: counts, OK: r.OK()}
}

// replay writes the stored TAP stream. Lines missing from an interrupted
// run are not invented, so the plan may exceed the lines shown.
func replay(w io.Writer, run store.Run, results []store.Result) error {
	if _, err := fmt.Fprintf(w, "%s\n1..%d\n", tap.Version, run.Total); err != nil {
		return err
	}
	for _, r := range results {
		if _, err := fmt.Fprintln(w, r.Line); err != nil {
			return err
		}
	}
	return nil
}

func listRuns(w io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tRESULTS\tLABEL")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.StartedAt.UTC().Format(time.DateTime), status(r), tally(r), r.Label)
	}
	return tw.Flush()
}

func status(r store.Run) string {
	switch {
	case r.FinishedAt == nil:
		return "unfinished"
	case r.OK():
		return "ok"
	default:
		return "not ok"
	}
}

// tally renders "recorded/total" followed by the non-zero outcome counts
// in a fixed order.
func tally(r store.Run) string {
	s := fmt.Sprintf("%d/%d", r.Recorded(), r.Total)
	for _, o := range suite.Outcomes {
		if n := r.Counts[o]; n > 0 {
			s += fmt.Sprintf(" %s=%d", o, n)
		}
	}
	return s
}
