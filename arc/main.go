package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/whatif/cmd"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// completion describes the command tree for shell completion. It runs (and
// exits) only when invoked by the shell's completion hook.
func completion() {
	sub := func() *complete.Command { return &complete.Command{} }
	complete.Complete("arc", &complete.Command{
		Flags: map[string]complete.Predictor{
			"store": predict.Dirs("*"),
		},
		Sub: map[string]*complete.Command{
			"create":  sub(),
			"list":    sub(),
			"show":    sub(),
			"delete":  sub(),
			"refresh": sub(),
			"whatif":  sub(),
			"compare": sub(),
			"project": sub(),
			"repair":  sub(),
			"topic":   sub(),
		},
	})
}

func main() {
	completion()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
