// Package cmd implements the CLI application to explore alternate portfolio
// realities.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/whatif"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package calls Register() to allow subcommands, and Execute() on the
// user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&createCmd{}, "realities")
	c.Register(&listCmd{}, "realities")
	c.Register(&showCmd{}, "realities")
	c.Register(&deleteCmd{}, "realities")
	c.Register(&refreshCmd{}, "realities")

	c.Register(&whatifCmd{}, "histories")
	c.Register(&compareCmd{}, "histories")

	c.Register(&projectCmd{}, "projections")

	c.Register(&repairCmd{}, "store")
	c.Register(&topicCmd{}, "documentation")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to
// use global variables.

var storePath = flag.String("store", "", "Path to the store folder (default $WHATIF_STORE or .whatif)")

const storeEnv = "WHATIF_STORE"

// StorePath returns the store folder from the command-line flag or the
// environment variable.
func StorePath() string {
	if *storePath != "" {
		return *storePath
	}
	if p := os.Getenv(storeEnv); p != "" {
		return p
	}
	return ".whatif"
}

// OpenStore opens the application store.
func OpenStore() (*whatif.Store, error) {
	return whatif.OpenStore(StorePath())
}

// PriceSource returns the market data source used by the commands.
func PriceSource() whatif.PriceSource {
	return whatif.NewYahooSource()
}

// Model returns the language model, or nil when no client can be created.
// A nil model means every planning or projection call takes the
// deterministic path.
func Model(ctx context.Context) whatif.TextModel {
	model, err := whatif.NewGemini(ctx)
	if err != nil {
		log.Printf("no language model available: %v", err)
		return nil
	}
	return model
}

// printMarkdown renders markdown to the terminal.
func printMarkdown(markdown string) {
	out, err := glamour.Render(markdown, "auto")
	if err != nil {
		// raw markdown is still readable
		fmt.Println(markdown)
		return
	}
	fmt.Print(out)
}
