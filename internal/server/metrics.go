package server

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects development-server build metrics on a private registry.
type Metrics struct {
	registry *prom.Registry

	buildsTotal       *prom.CounterVec
	buildDuration     prom.Histogram
	liveReloadClients prom.Gauge
}

// Build outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeCanceled = "canceled"
)

// NewMetrics creates and registers the server's collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prom.NewRegistry(),
		buildsTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "bookbuilder_builds_total",
			Help: "Build attempts by outcome.",
		}, []string{"outcome"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Name:    "bookbuilder_build_duration_seconds",
			Help:    "Wall-clock duration of completed builds.",
			Buckets: prom.ExponentialBuckets(0.1, 2, 12),
		}),
		liveReloadClients: prom.NewGauge(prom.GaugeOpts{
			Name: "bookbuilder_livereload_clients",
			Help: "Currently connected live-reload clients.",
		}),
	}
	m.registry.MustRegister(m.buildsTotal, m.buildDuration, m.liveReloadClients)
	return m
}

// ObserveBuild records one finished build attempt.
func (m *Metrics) ObserveBuild(outcome string, duration time.Duration) {
	m.buildsTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeCanceled {
		m.buildDuration.Observe(duration.Seconds())
	}
}

// SetLiveReloadClients updates the connected-clients gauge.
func (m *Metrics) SetLiveReloadClients(n int) {
	m.liveReloadClients.Set(float64(n))
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
