// Command gbt is the CLI for the training orchestrator and production
// inference runtime: `gbt train` runs the grid orchestrator end to end and
// writes a model file; `gbt predict` loads that file and scores a CSV.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wlattner/gbt/tangerr"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gbt",
		Short: "train and serve gradient-boosted-tree and linear models over tabular CSV data",
	}
	root.AddCommand(newTrainCmd())
	root.AddCommand(newPredictCmd())
	return root
}

// exitCodeFor maps the tangerr taxonomy to the CLI's documented exit codes:
// 1 for user-facing errors, 2 for anything else (internal failures).
func exitCodeFor(err error) int {
	switch err.(type) {
	case *tangerr.ConfigError, *tangerr.InputError, *tangerr.TaskError, *tangerr.CapacityError:
		fmt.Fprintln(os.Stderr, err)
		return 1
	default:
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
}
