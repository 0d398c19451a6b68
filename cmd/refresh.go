package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/whatif/renderer"
	"github.com/google/subcommands"
)

type refreshCmd struct{}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "recomputes a reality's timeline from current prices" }
func (*refreshCmd) Usage() string {
	return `arc refresh <id> [<id> ...]

  Recomputes the snapshots of the given realities using current market data.
  Identity and purchases are unchanged; only the timeline and the refresh
  timestamp move.

`
}

func (c *refreshCmd) SetFlags(f *flag.FlagSet) {}

func (c *refreshCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: want at least one id\n")
		return subcommands.ExitUsageError
	}
	store, err := OpenStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	src := PriceSource()

	status := subcommands.ExitSuccess
	for _, id := range f.Args() {
		r, err := store.RefreshReality(ctx, src, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error refreshing %q: %v\n", id, err)
			status = subcommands.ExitFailure
			continue
		}
		printMarkdown(renderer.RealityMarkdown(r))
	}
	return status
}
