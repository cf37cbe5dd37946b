// segvm is the command-line interface: an assembler and a runner for a
// small 16-bit register virtual machine.
package main

import (
	"context"
	"os"

	"github.com/segvm/segvm/internal/cli"
	"github.com/segvm/segvm/internal/cli/cmd"
)

var commands = []cli.Command{
	cmd.Assembler(),
	cmd.Executor(),
}

// Entry point.
func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(os.Args[1:])

	os.Exit(result)
}
