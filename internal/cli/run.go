package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/cmdtest/internal/match"
	"github.com/roach88/cmdtest/internal/scenario"
	"github.com/roach88/cmdtest/internal/store"
	"github.com/roach88/cmdtest/internal/suite"
	"github.com/roach88/cmdtest/internal/tap"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database   string // record the run here when set
	Label      string
	Filter     string // glob over Class.Method
	Diff       string // "detailed" | "unified"
	ShowOutput bool   // copy harness diagnostics to stderr
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml|glob>...",
		Short: "Run scenarios and report TAP",
		Long: `Run scenario files in order and write a TAP version 13 stream to stdout.

Patterns may use ** to cross directories. Output is always TAP; --format
does not apply to this command.

Exit codes:
  0 - Every case passed, was skipped or failed as expected
  1 - A case failed, errored or unexpectedly passed
  2 - Command error (bad pattern, invalid scenario, database error)

Examples:
  cmdtest run tests/*.yaml
  cmdtest run 'tests/**/*.yaml' --filter 'Build.*'
  cmdtest run tests/*.yaml --db results.db --label nightly`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record results in this SQLite database")
	cmd.Flags().StringVar(&opts.Label, "label", "", "label stored with the run")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "run only cases whose Class.Method matches this glob")
	cmd.Flags().StringVar(&opts.Diff, "diff", "detailed", "mismatch rendering (detailed|unified)")
	cmd.Flags().BoolVar(&opts.ShowOutput, "show-output", false, "copy assertion diagnostics to stderr")

	return cmd
}

func runScenarios(opts *RunOptions, patterns []string, cmd *cobra.Command) error {
	log := opts.Logger

	var differ match.Differ
	switch opts.Diff {
	case "detailed":
		differ = match.DetailedDiff
	case "unified":
		differ = match.UnifiedDiff
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid diff %q: must be detailed or unified", opts.Diff))
	}

	s, err := loadSuite(opts, patterns, differ, cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tapOpts []tap.Option
	tapOpts = append(tapOpts, tap.WithLogger(log))

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		runID, err := st.BeginRun(ctx, len(s), opts.Label)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		log.Debug("recording run", "db", opts.Database, "run", runID)

		tapOpts = append(tapOpts, tap.WithObserver(func(n int, line string, c suite.Case, r suite.Result) error {
			return st.RecordResult(ctx, store.Result{
				RunID:    runID,
				Ordinal:  n,
				CaseID:   c.ID(),
				Outcome:  r.Outcome,
				Line:     line,
				Reason:   r.Reason,
				Duration: r.Duration,
			})
		}))
		defer func() {
			if err := st.FinishRun(context.WithoutCancel(ctx), runID); err != nil {
				log.Error("error finishing run", "run", runID, "error", err)
			}
		}()
	}

	sum, err := tap.NewRunner(cmd.OutOrStdout(), tapOpts...).Run(ctx, s)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return WrapExitError(ExitCommandError, "interrupted", err)
		}
		return WrapExitError(ExitCommandError, "run failed", err)
	}

	log.Info("run complete", "total", sum.Total, "failed", failedCount(sum))
	if !sum.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d case(s) failed", failedCount(sum), sum.Total))
	}
	return nil
}

func loadSuite(opts *RunOptions, patterns []string, differ match.Differ, cmd *cobra.Command) (suite.Suite, error) {
	paths, err := scenario.Glob(patterns...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	caseOpts := []scenario.CaseOption{
		scenario.WithLogger(opts.Logger),
		scenario.WithDiff(differ),
	}
	if opts.ShowOutput {
		caseOpts = append(caseOpts, scenario.WithOutput(cmd.ErrOrStderr()))
	}

	s := make(suite.Suite, 0, len(paths))
	for _, p := range paths {
		sc, err := scenario.Load(p)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load scenario", err)
		}
		opts.Logger.Debug("loaded scenario", "path", p, "name", sc.Name, "steps", len(sc.Steps))
		s = append(s, scenario.Case(sc, caseOpts...))
	}

	if opts.Filter != "" {
		s, err = s.Filter(opts.Filter)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid filter", err)
		}
	}
	return s, nil
}

func failedCount(sum tap.Summary) int {
	n := 0
	for o, c := range sum.Counts {
		if o.Failed() {
			n += c
		}
	}
	return n
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
