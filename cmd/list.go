package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/whatif/renderer"
	"github.com/google/subcommands"
)

type listCmd struct {
	histories bool
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "lists stored realities and histories" }
func (*listCmd) Usage() string {
	return `arc list [-histories]

  Lists all alternate realities, most recent first. With -histories it lists
  the alternate histories instead.

`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.histories, "histories", false, "List alternate histories instead of realities.")
}

func (c *listCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, err := OpenStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.histories {
		printMarkdown(renderer.ListMarkdown("Alternate Histories", store.ListHistories()))
	} else {
		printMarkdown(renderer.ListMarkdown("Alternate Realities", store.ListRealities()))
	}
	return subcommands.ExitSuccess
}
