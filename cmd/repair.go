package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type repairCmd struct{}

func (*repairCmd) Name() string     { return "repair" }
func (*repairCmd) Synopsis() string { return "rebuilds the store index from the record files" }
func (*repairCmd) Usage() string {
	return `arc repair

  Reconstructs the store index by scanning the record files. Use it when the
  index is lost or inconsistent; the record files are the durable source.

`
}

func (c *repairCmd) SetFlags(f *flag.FlagSet) {}

func (c *repairCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, err := OpenStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := store.RebuildIndex(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not rebuild index: %v\n", err)
		return subcommands.ExitFailure
	}
	realities, histories := len(store.ListRealities()), len(store.ListHistories())
	fmt.Fprintf(os.Stderr, "Rebuilt index: %d realities, %d histories.\n", realities, histories)
	return subcommands.ExitSuccess
}
