package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/assetbuilder/internal/build"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Workers int    `short:"w" help:"Number of shard workers (overrides build.workers)"`
	Listen  string `help:"Serve Prometheus metrics on this address (overrides monitoring.metrics.listen)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if w.Listen != "" {
		cfg.Monitoring.Metrics.Listen = w.Listen
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := newRuntime(cfg, g.logger())
	defer rt.Close()

	rebuild := func(ctx context.Context) error {
		res, err := rt.orch.Run(ctx, build.Request{Mode: cfg.Build.Mode, Workers: w.Workers})
		printSummary(os.Stdout, res)
		rt.exportMetrics()
		return err
	}

	watcher := watch.New(cfg, rebuild).WithMetrics(metrics.HTTPHandler(rt.registry))
	watcher.Logger = g.logger()
	return watcher.Run(ctx)
}
