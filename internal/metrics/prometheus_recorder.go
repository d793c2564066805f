package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "assetbuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	stateDuration *prom.HistogramVec
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	changes       *prom.CounterVec
	items         *prom.CounterVec
	thumbnails    *prom.CounterVec
	workers       prom.Gauge
	catalogSize   prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stateDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "state_duration_seconds",
			Help:      "Duration of individual build states",
			Buckets:   prom.DefBuckets,
		}, []string{"state"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.changes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "asset_changes_total",
			Help:      "Classified assets by change kind",
		}, []string{"change"})
		pr.items = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "asset_results_total",
			Help:      "Processed assets by result",
		}, []string{"result"})
		pr.thumbnails = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "thumbnails_total",
			Help:      "Thumbnails generated or reused",
		}, []string{"result"})
		pr.workers = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Worker count used by the last build",
		})
		pr.catalogSize = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_assets",
			Help:      "Assets in the published manifest after the last build",
		})
		reg.MustRegister(pr.stateDuration, pr.buildDuration, pr.buildOutcome, pr.changes, pr.items, pr.thumbnails, pr.workers, pr.catalogSize)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStateDuration(state string, d time.Duration) {
	if p == nil || p.stateDuration == nil {
		return
	}
	p.stateDuration.WithLabelValues(state).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddChanges(change string, n int) {
	if p == nil || p.changes == nil || n <= 0 {
		return
	}
	p.changes.WithLabelValues(change).Add(float64(n))
}

func (p *PrometheusRecorder) IncItemResult(result ItemResult) {
	if p == nil || p.items == nil {
		return
	}
	p.items.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncThumbnail(generated bool) {
	if p == nil || p.thumbnails == nil {
		return
	}
	res := "reused"
	if generated {
		res = "generated"
	}
	p.thumbnails.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) SetWorkers(n int) {
	if p == nil || p.workers == nil {
		return
	}
	p.workers.Set(float64(n))
}

func (p *PrometheusRecorder) SetCatalogSize(n int) {
	if p == nil || p.catalogSize == nil {
		return
	}
	p.catalogSize.Set(float64(n))
}
