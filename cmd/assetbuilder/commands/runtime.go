package commands

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/assetbuilder/internal/build"
	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/eventstore"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/retry"
)

// runtime bundles the orchestrator with its optional collaborators.
type runtime struct {
	cfg      *config.Config
	orch     *build.Orchestrator
	registry *prometheus.Registry
	journal  *eventstore.Journal
}

// newRuntime wires metrics, build history and event publishing. History and
// NATS are best effort: a failure to open either is logged and the build
// proceeds without it.
func newRuntime(cfg *config.Config, logger *slog.Logger) *runtime {
	reg := prometheus.NewRegistry()
	rt := &runtime{cfg: cfg, registry: reg}

	var store eventstore.Store
	if p := cfg.HistoryPath(); p != "" {
		s, err := eventstore.NewSQLiteStore(p)
		if err != nil {
			logger.Warn("Build history disabled", logfields.Path(p), logfields.Error(err))
		} else {
			store = s
		}
	}
	var pub eventstore.Publisher
	if url := cfg.Events.NATS.URL; url != "" {
		p, err := eventstore.NewNATSPublisher(url, cfg.Events.NATS.Subject, retry.FromConfig(cfg.Events.NATS.Retry))
		if err != nil {
			logger.Warn("Build event publishing disabled", logfields.Error(err))
		} else {
			pub = p
		}
	}
	if store != nil || pub != nil {
		rt.journal = eventstore.NewJournal(store, pub, logger)
	}

	rt.orch = build.New(cfg).
		WithLogger(logger).
		WithRecorder(metrics.NewPrometheusRecorder(reg))
	if rt.journal != nil {
		rt.orch.WithJournal(rt.journal)
	}
	return rt
}

// exportMetrics writes the textfile when configured.
func (rt *runtime) exportMetrics() {
	p := rt.cfg.MetricsTextfilePath()
	if p == "" {
		return
	}
	if err := metrics.WriteTextfile(p, rt.registry); err != nil {
		slog.Warn("Failed to write metrics textfile", logfields.Path(p), logfields.Error(err))
	}
}

func (rt *runtime) Close() {
	if err := rt.journal.Close(); err != nil {
		slog.Warn("Failed to close build history", logfields.Error(err))
	}
}
