// Package metrics exposes the service's Prometheus collectors on a private
// registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tasklog"

// Metrics owns every collector. Its methods are safe for concurrent use and
// a nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	cacheRequests      *prometheus.CounterVec
	cacheInvalidations prometheus.Counter

	snapshotRuns     *prometheus.CounterVec
	snapshotAttempts prometheus.Counter
	snapshotAlerts   prometheus.Counter
	snapshotDuration prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers all collectors, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Snapshot read cache lookups by result.",
		}, []string{"result"}),
		cacheInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Read cache invalidations.",
		}),
		snapshotRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_runs_total",
			Help:      "Completed snapshot runs by outcome.",
		}, []string{"outcome"}),
		snapshotAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_attempts_total",
			Help:      "Snapshot materialization attempts, including retries.",
		}),
		snapshotAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_alerts_total",
			Help:      "Alerts raised for days left unmaterialized.",
		}),
		snapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_duration_seconds",
			Help:      "Wall time of a snapshot run across all attempts.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cacheRequests,
		m.cacheInvalidations,
		m.snapshotRuns,
		m.snapshotAttempts,
		m.snapshotAlerts,
		m.snapshotDuration,
		m.httpRequests,
		m.httpDuration,
	)

	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CacheRequest records one cache lookup.
func (m *Metrics) CacheRequest(result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

// CacheInvalidated records one invalidation.
func (m *Metrics) CacheInvalidated() {
	if m == nil {
		return
	}
	m.cacheInvalidations.Inc()
}

// SnapshotAttempt records one call to the snapshot engine.
func (m *Metrics) SnapshotAttempt() {
	if m == nil {
		return
	}
	m.snapshotAttempts.Inc()
}

// SnapshotRun records a finished run and its total duration.
func (m *Metrics) SnapshotRun(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.snapshotRuns.WithLabelValues(outcome).Inc()
	m.snapshotDuration.Observe(elapsed.Seconds())
}

// SnapshotAlert records one alert.
func (m *Metrics) SnapshotAlert() {
	if m == nil {
		return
	}
	m.snapshotAlerts.Inc()
}

// HTTPRequest records one served request. route is the matched route
// pattern, not the raw path.
func (m *Metrics) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
