package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/whatif"
	"github.com/etnz/whatif/renderer"
	"github.com/google/subcommands"
)

type whatifCmd struct {
	base     string
	scenario string
	ticker   string
	shares   float64
}

func (*whatifCmd) Name() string     { return "whatif" }
func (*whatifCmd) Synopsis() string { return "derives an alternate history from a baseline reality" }
func (*whatifCmd) Usage() string {
	return `arc whatif -id <reality-id> [-scenario <name> [-ticker T] [-shares N]] [free text...]

  Derives trade modifications for the baseline reality and applies them,
  producing a persisted alternate history.

  With -scenario, modifications come from the deterministic generator
  (rotate-into-tech, dollar-cost-average, take-profits, double-down).
  With free text, a language model plans the modifications; its output is
  validated and bad items are dropped with a warning.

Usage Examples:
# What if I had sold NVDA in March and bought BTC?
$ arc whatif -id 1a2b "sell my NVDA in March and buy BTC-USD with half the proceeds"

# Monthly dollar cost averaging into VOO.
$ arc whatif -id 1a2b -scenario dollar-cost-average -ticker VOO -shares 10

`
}

func (c *whatifCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.base, "id", "", "Id of the baseline reality.")
	f.StringVar(&c.scenario, "scenario", "", "Algorithmic scenario name.")
	f.StringVar(&c.ticker, "ticker", "", "Target ticker for the algorithmic scenario.")
	f.Float64Var(&c.shares, "shares", 0, "Share count per trade for the algorithmic scenario.")
}

func (c *whatifCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, err := OpenStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	base, err := store.GetReality(c.base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(base.Snapshots) == 0 {
		fmt.Fprintf(os.Stderr, "Error: reality %q has no timeline, run 'arc refresh %s' first\n", c.base, c.base)
		return subcommands.ExitFailure
	}
	from := base.Snapshots[0].Date
	to := base.Snapshots[len(base.Snapshots)-1].Date

	var mods []whatif.Modification
	switch {
	case c.scenario != "":
		mods, err = whatif.AlgorithmicTrades(whatif.ScenarioConfig{
			Scenario: c.scenario,
			From:     from,
			To:       to,
			Ticker:   strings.ToUpper(c.ticker),
			Shares:   whatif.Q(c.shares),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	case f.NArg() > 0:
		text := strings.Join(f.Args(), " ")
		var warnings []string
		mods, warnings, err = whatif.PlanModifications(ctx, Model(ctx), base, text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: want either -scenario or a free-text description\n")
		return subcommands.ExitUsageError
	}

	h, err := whatif.ApplyModifications(ctx, PriceSource(), base, mods)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not apply modifications: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := store.CreateHistory(h); err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not save history: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(os.Stderr, "Created history %s\n", h.ID)
	printMarkdown(renderer.HistoryMarkdown(h))
	return subcommands.ExitSuccess
}
