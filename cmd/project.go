package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/whatif"
	"github.com/etnz/whatif/renderer"
	"github.com/google/subcommands"
)

type projectCmd struct {
	months  int
	offline bool
}

func (*projectCmd) Name() string     { return "project" }
func (*projectCmd) Synopsis() string { return "projects bull/bear/base scenarios for a reality" }
func (*projectCmd) Usage() string {
	return `arc project [-months <n>] [-offline] <reality-id>

  Asks the language model for bull, base and bear value trajectories over the
  horizon. Cases the model cannot serve fall back to a deterministic
  extrapolation of the trailing growth rate; -offline skips the model
  entirely.

`
}

func (c *projectCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.months, "months", 12, "Number of monthly horizon points.")
	f.BoolVar(&c.offline, "offline", false, "Use only the deterministic fallback.")
}

func (c *projectCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: want exactly one reality id\n")
		return subcommands.ExitUsageError
	}
	store, err := OpenStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	r, err := store.GetReality(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	pc := whatif.GetPortfolioContext(r)
	horizon := whatif.HorizonDates(pc.AsOf, c.months)

	var model whatif.TextModel
	if !c.offline {
		model = Model(ctx)
	}
	scenarios := whatif.ProjectionsSync(ctx, model, pc, horizon)
	printMarkdown(renderer.ProjectionsMarkdown(pc, scenarios))
	return subcommands.ExitSuccess
}
