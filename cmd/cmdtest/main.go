// Command cmdtest runs YAML scenarios against command-line programs and
// reports the results as TAP.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/cmdtest/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
