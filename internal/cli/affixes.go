package cli

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/cmdtest/internal/platform"
)

// AffixesOptions holds flags for the affixes command.
type AffixesOptions struct {
	*RootOptions
	Target string
	All    bool
}

// NewAffixesCommand creates the affixes command.
func NewAffixesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AffixesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "affixes",
		Short: "Show platform file-name affixes",
		Long: `Show the prefixes and suffixes a target uses for executables, objects
and libraries. Scenario files can refer to them as ${EXE_SUFFIX},
${DLL_PREFIX} and so on.

Unknown targets fall back to the generic Unix entry.

Exit codes:
  0 - Success
  2 - Command error

Examples:
  cmdtest affixes
  cmdtest affixes --target windows
  cmdtest affixes --all --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAffixes(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Target, "target", platform.Target(), "target platform")
	cmd.Flags().BoolVar(&opts.All, "all", false, "show every known target")

	return cmd
}

type affixRow struct {
	Target string `json:"target"`
	platform.Affixes
}

func runAffixes(opts *AffixesOptions, cmd *cobra.Command) error {
	targets := []string{opts.Target}
	if opts.All {
		targets = platform.Targets()
		slices.Sort(targets)
	}

	rows := make([]affixRow, len(targets))
	for i, t := range targets {
		rows[i] = affixRow{Target: t, Affixes: platform.Lookup(t)}
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(rows, func(w io.Writer) error {
		return writeAffixes(w, rows)
	})
}

func writeAffixes(w io.Writer, rows []affixRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tEXE\tOBJ\tSHOBJ\tLIB\tDLL")
	for _, r := range rows {
		a := r.Affixes
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Target,
			quote(a.ExeSuffix), quote(a.ObjSuffix),
			quote(a.ShObjPrefix+"*"+a.ShObjSuffix),
			quote(a.LibPrefix+"*"+a.LibSuffix),
			quote(a.DLLPrefix+"*"+a.DLLSuffix))
	}
	return tw.Flush()
}

func quote(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
