package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/assetbuilder/internal/build"
	"git.home.luguber.info/inful/assetbuilder/internal/config"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Full    bool `short:"f" help:"Ignore the build cache and rebuild everything"`
	Workers int  `short:"w" help:"Number of shard workers (overrides build.workers)"`
	DryRun  bool `name:"dry-run" help:"Scan and classify only; write nothing"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := newRuntime(cfg, g.logger())
	defer rt.Close()

	req := build.Request{Mode: cfg.Build.Mode, Workers: b.Workers, DryRun: b.DryRun}
	if b.Full {
		req.Mode = config.BuildModeFull
	}
	res, err := rt.orch.Run(ctx, req)
	printSummary(os.Stdout, res)
	if !b.DryRun {
		rt.exportMetrics()
	}
	return err
}

func (g *Global) logger() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}
