// File: internal/metrics/metrics.go

// Package metrics exposes session reconciliation metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements session.Recorder.
type Collector struct {
	reconciliations *prometheus.CounterVec
	fetchAttempts   *prometheus.CounterVec
	fetchLatency    prometheus.Histogram
	sessionsActive  prometheus.Gauge
}

// NewCollector creates the collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "desirius_session_reconciliations_total",
			Help: "Finished session reconciliations by path and outcome.",
		}, []string{"path", "outcome"}),
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "desirius_profile_fetch_attempts_total",
			Help: "Profile fetch attempts by outcome.",
		}, []string{"outcome"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "desirius_profile_fetch_latency_seconds",
			Help:    "Latency of profile fetch attempts.",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "desirius_sessions_active",
			Help: "Browser sessions currently held by the registry.",
		}),
	}

	reg.MustRegister(
		c.reconciliations,
		c.fetchAttempts,
		c.fetchLatency,
		c.sessionsActive,
	)
	return c
}

func (c *Collector) ReconcileFinished(path, outcome string) {
	c.reconciliations.WithLabelValues(path, outcome).Inc()
}

func (c *Collector) FetchAttempt(outcome string, elapsed time.Duration) {
	c.fetchAttempts.WithLabelValues(outcome).Inc()
	c.fetchLatency.Observe(elapsed.Seconds())
}

func (c *Collector) SessionsActive(n int) {
	c.sessionsActive.Set(float64(n))
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RegisterRoute mounts GET /metrics on the router.
func RegisterRoute(router gin.IRoutes, gatherer prometheus.Gatherer) {
	router.GET("/metrics", gin.WrapH(Handler(gatherer)))
}
