package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/etnz/whatif"
	"github.com/etnz/whatif/renderer"
	"github.com/google/subcommands"
)

type createCmd struct {
	name        string
	description string
	start       string
	cash        float64
	currency    string
	scenario    string
}

func (*createCmd) Name() string     { return "create" }
func (*createCmd) Synopsis() string { return "creates a new alternate reality" }
func (*createCmd) Usage() string {
	return `arc create -name <name> -start <date> -cash <amount> [TICKER:SHARES[:PRICE] ...]

  Creates a hypothetical portfolio, replays market prices from the start date
  to today and persists the resulting timeline.

Usage Examples:
# What if I had put 100k into NVDA at the start of 2024?
$ arc create -name "all-in-nvda" -start 2024-01-02 -cash 100000 -scenario bull NVDA:100

`
}

func (c *createCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Name of the reality.")
	f.StringVar(&c.description, "d", "", "Optional description.")
	f.StringVar(&c.start, "start", "", "Start date (accepts relative dates like -1y).")
	f.Float64Var(&c.cash, "cash", 0, "Starting cash amount.")
	f.StringVar(&c.currency, "c", "USD", "Currency of the starting cash.")
	f.StringVar(&c.scenario, "scenario", "custom", "Scenario type: bull, bear or custom.")
}

// parsePurchase reads a TICKER:SHARES[:PRICE] argument.
func (c *createCmd) parsePurchase(arg string) (whatif.Purchase, error) {
	parts := strings.Split(arg, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return whatif.Purchase{}, fmt.Errorf("invalid purchase %q, want TICKER:SHARES[:PRICE]", arg)
	}
	p := whatif.Purchase{Ticker: strings.ToUpper(parts[0])}
	var shares float64
	if _, err := fmt.Sscanf(parts[1], "%g", &shares); err != nil {
		return whatif.Purchase{}, fmt.Errorf("invalid share count in %q: %w", arg, err)
	}
	p.Shares = whatif.Q(shares)
	if len(parts) == 3 {
		var price float64
		if _, err := fmt.Sscanf(parts[2], "%g", &price); err != nil {
			return whatif.Purchase{}, fmt.Errorf("invalid price in %q: %w", arg, err)
		}
		p.Price = whatif.M(price, c.currency)
	}
	return p, nil
}

func (c *createCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	start, err := whatif.ParseDate(c.start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -start: %v\n", err)
		return subcommands.ExitUsageError
	}

	var purchases []whatif.Purchase
	for _, arg := range f.Args() {
		p, err := c.parsePurchase(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		purchases = append(purchases, p)
	}

	r := &whatif.Reality{
		Name:         c.name,
		Description:  c.description,
		StartDate:    start,
		StartingCash: whatif.M(c.cash, c.currency),
		Purchases:    purchases,
		ScenarioType: whatif.ScenarioType(c.scenario),
	}
	if err := r.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	snapshots, err := whatif.BuildTimeline(ctx, PriceSource(), r.StartDate, r.StartingCash, r.Purchases, whatif.Today())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not build timeline: %v\n", err)
		return subcommands.ExitFailure
	}
	r.Snapshots = snapshots
	r.LastRefreshedAt = time.Now()

	store, err := OpenStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := store.CreateReality(r); err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not save reality: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(os.Stderr, "Created reality %s\n", r.ID)
	printMarkdown(renderer.RealityMarkdown(r))
	return subcommands.ExitSuccess
}
