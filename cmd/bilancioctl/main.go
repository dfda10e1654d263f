package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"bilancio/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	e := newEnv()
	flag.BoolVar(&e.raw, "raw", false, "print markdown without terminal styling")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range commands(e) {
		commander.Register(c, "ledger")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
