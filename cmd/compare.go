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

type compareCmd struct {
	threshold float64
}

func (*compareCmd) Name() string     { return "compare" }
func (*compareCmd) Synopsis() string { return "compares two timelines" }
func (*compareCmd) Usage() string {
	return `arc compare [-threshold <fraction>] <id-a> <id-b>

  Aligns two stored timelines (realities or histories) by date and reports
  per-date deltas, the cumulative divergence and the divergence points.

`
}

func (c *compareCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.threshold, "threshold", whatif.DefaultDivergenceThreshold,
		"Relative divergence threshold.")
}

// loadSnapshots resolves an id as either a reality or a history.
func loadSnapshots(store *whatif.Store, id string) ([]whatif.Snapshot, error) {
	if r, err := store.GetReality(id); err == nil {
		return r.Snapshots, nil
	} else if !errors.Is(err, whatif.ErrNotFound) {
		return nil, err
	}
	h, err := store.GetHistory(id)
	if err != nil {
		return nil, err
	}
	return h.Snapshots, nil
}

func (c *compareCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "Error: want exactly two ids\n")
		return subcommands.ExitUsageError
	}
	store, err := OpenStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	a, err := loadSnapshots(store, f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	b, err := loadSnapshots(store, f.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	comparison := whatif.Compare(a, b, whatif.CompareOptions{Relative: c.threshold})
	printMarkdown(renderer.ComparisonMarkdown(f.Arg(0), f.Arg(1), comparison))
	return subcommands.ExitSuccess
}
