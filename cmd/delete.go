package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/whatif"
	"github.com/google/subcommands"
)

type deleteCmd struct{}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "deletes a reality or history by id" }
func (*deleteCmd) Usage() string {
	return `arc delete <id> [<id> ...]

  Deletes the realities or histories with the given ids. Reads for a deleted
  id fail immediately, even if file remnants exist.

`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {}

func (c *deleteCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: want at least one id\n")
		return subcommands.ExitUsageError
	}
	store, err := OpenStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	status := subcommands.ExitSuccess
	for _, id := range f.Args() {
		err := store.DeleteReality(id)
		if errors.Is(err, whatif.ErrNotFound) {
			err = store.DeleteHistory(id)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error deleting %q: %v\n", id, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Fprintf(os.Stderr, "Deleted %s\n", id)
	}
	return status
}
