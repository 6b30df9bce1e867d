package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/bookbuilder/cmd/bookbuilder/commands"
	"git.home.luguber.info/inful/bookbuilder/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("bookbuilder"),
		kong.Description("Book build orchestrator: template provisioning, renderer pipeline and live preview"),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	if err := ctx.Run(&commands.Global{}, cli); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var bfe *commands.BuildFailedError
		if errors.As(err, &bfe) {
			os.Exit(bfe.ExitCode())
		}
		os.Exit(1)
	}
}
