package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/whatif"
	"github.com/etnz/whatif/renderer"
	"github.com/google/subcommands"
)

type showCmd struct {
	timeline bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "shows one reality or history by id" }
func (*showCmd) Usage() string {
	return `arc show [-timeline] <id>

  Shows the stored reality or alternate history with that id.

`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.timeline, "timeline", false, "Also print the full day-by-day timeline.")
}

func (c *showCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: want exactly one id\n")
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)

	store, err := OpenStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if r, err := store.GetReality(id); err == nil {
		printMarkdown(renderer.RealityMarkdown(r))
		if c.timeline {
			printMarkdown(renderer.TimelineMarkdown("Timeline", r.Snapshots))
		}
		return subcommands.ExitSuccess
	} else if !errors.Is(err, whatif.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	h, err := store.GetHistory(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.HistoryMarkdown(h))
	if c.timeline {
		printMarkdown(renderer.TimelineMarkdown("Timeline", h.Snapshots))
	}
	return subcommands.ExitSuccess
}
