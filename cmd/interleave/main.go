package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/interleave/cmd/interleave/commands"
	"git.home.luguber.info/inful/interleave/internal/foundation/errors"
)

var version = "dev"

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{}
	parser := kong.Parse(cli,
		kong.Name("interleave"),
		kong.Description("Resolve include directives in source files, then combine, package and postprocess the results."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Bind(global),
	)

	err := parser.Run(global, cli)
	errors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err)
}
