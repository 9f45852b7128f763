// elsie is the command-line entry point for bone, a small region-allocated Lisp dialect.
package main

import (
	"context"
	"os"

	"github.com/xyproto/bone/internal/cli"
	"github.com/xyproto/bone/internal/cli/cmd"
)

func main() {
	commands := []cli.Command{
		cmd.Repl(),
	}

	commander := cli.New(context.Background()).
		WithLogger(os.Stderr).
		WithCommands(commands).
		WithHelp(cmd.Help(commands))

	os.Exit(commander.Execute(os.Args[1:]))
}
