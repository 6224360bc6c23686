package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
)

// Context represents the global context for commands
type Context struct {
	Verbose bool
	Quiet   bool
}

// CLI represents the command-line interface
var CLI struct {
	Verbose bool       `help:"Enable verbose output" short:"v"`
	Quiet   bool       `help:"Suppress non-essential output" short:"q"`
	Parse   ParseCmd   `cmd:"" help:"Parse an expression and print it back"`
	Lint    LintCmd    `cmd:"" help:"Statically check an expression"`
	Eval    EvalCmd    `cmd:"" help:"Evaluate an expression against a JSON or YAML document"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	appCtx := &Context{
		Verbose: CLI.Verbose,
		Quiet:   CLI.Quiet,
	}

	err := ctx.Run(appCtx)
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
