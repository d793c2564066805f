package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/assetbuilder/cmd/assetbuilder/commands"
	"git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("assetbuilder"),
		kong.Description("Build a static image gallery: thumbnails, manifest, sitemap and detail pages."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)
	if err := ctx.Run(&commands.Global{}, &cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
