// Package metrics defines the Prometheus metric collectors used by the frame
// index service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	LoadsTotal           *prometheus.CounterVec
	LoadDuration         prometheus.Histogram
	FramesLoaded         prometheus.Gauge
	FrameTuples          prometheus.Gauge
	SnapshotVersion      prometheus.Gauge
	DegenerateRatios     *prometheus.GaugeVec
	NearestLatency       *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		LoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frameindex_loads_total",
				Help: "Catalogue loads by trigger and status (success, failure).",
			},
			[]string{"trigger", "status"},
		),
		LoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "frameindex_load_duration_seconds",
				Help:    "Time to fetch the catalogue and build a snapshot.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		FramesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "frameindex_frames",
				Help: "Number of frames in the published snapshot.",
			},
		),
		FrameTuples: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "frameindex_tuples",
				Help: "Distinct brand/model/size/year paths in the published snapshot.",
			},
		),
		SnapshotVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "frameindex_snapshot_version",
				Help: "Version of the published snapshot.",
			},
		),
		DegenerateRatios: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "frameindex_degenerate_ratio",
				Help: "1 when every frame has the same value for the ratio, leaving its score undefined.",
			},
			[]string{"ratio"},
		),
		NearestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "frameindex_nearest_latency_seconds",
				Help:    "Nearest-frame ranking latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of nearest-frame cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of nearest-frame cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.LoadsTotal,
		m.LoadDuration,
		m.FramesLoaded,
		m.FrameTuples,
		m.SnapshotVersion,
		m.DegenerateRatios,
		m.NearestLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
	)

	return m
}

// CacheHit and CacheMiss let the collectors observe the nearest cache.
func (m *Metrics) CacheHit()  { m.CacheHitsTotal.Inc() }
func (m *Metrics) CacheMiss() { m.CacheMissesTotal.Inc() }

// Handler serves g in the Prometheus exposition format. A nil g serves the
// default registry.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
