// Package metrics records dev server activity in Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.trai.ch/spark/internal/core/ports"
)

const namespace = "spark"

var _ ports.Metrics = (*Prometheus)(nil)

// Prometheus owns its registry so several servers can run in one process.
type Prometheus struct {
	registry *prometheus.Registry

	builds          *prometheus.CounterVec
	buildDuration   *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	broadcasts      *prometheus.CounterVec
	inconsistencies prometheus.Counter
}

// New creates the collectors on a fresh registry.
func New() *Prometheus {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Prometheus{
		registry: registry,

		builds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Total number of file builds by output kind and result",
		}, []string{"kind", "result"}),

		buildDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "File build duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),

		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Build cache lookups by tier and outcome",
		}, []string{"tier", "result"}),

		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hmr_messages_total",
			Help:      "Hot update messages broadcast to clients by type",
		}, []string{"type"}),

		inconsistencies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_inconsistencies_total",
			Help:      "Persistent cache entries that diverged from a fresh build",
		}),
	}
}

// ObserveBuild records one finished build.
func (p *Prometheus) ObserveBuild(kind string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.builds.WithLabelValues(kind, result).Inc()
	p.buildDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveCacheLookup records a lookup against a cache tier.
func (p *Prometheus) ObserveCacheLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookups.WithLabelValues(tier, result).Inc()
}

// ObserveBroadcast records one outbound hot update message.
func (p *Prometheus) ObserveBroadcast(msgType string) {
	p.broadcasts.WithLabelValues(msgType).Inc()
}

// ObserveInconsistency records a verification mismatch.
func (p *Prometheus) ObserveInconsistency() {
	p.inconsistencies.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry returns the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
