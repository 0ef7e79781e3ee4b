package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Document builder metrics
	DocumentBuilds    *prometheus.CounterVec
	DocumentCacheHits prometheus.Counter
	DocumentCacheMiss prometheus.Counter
	TranspileTotal    *prometheus.CounterVec

	// Sandbox metrics
	Executions        *prometheus.CounterVec
	ExecutionDuration prometheus.Histogram
	SandboxesActive   prometheus.Gauge

	// Data fetch metrics
	FetchTotal    *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	CacheServed   prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	registry *prometheus.Registry

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests int64
	TotalErrors   int64
	TotalRenders  int64
	FailedRenders int64
	CacheHits     int64
	TotalDuration float64 // sum of all request durations
	RequestCount  int64   // count for averaging
}

// NewMetrics creates a new metrics collector with its own registry, so
// multiple collectors can coexist in one process.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		startTime: time.Now(),
		registry:  registry,

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vizlet_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vizlet_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vizlet_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vizlet_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Document builder metrics
		DocumentBuilds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vizlet_document_builds_total",
				Help: "Total number of sandbox documents built",
			},
			[]string{"theme"},
		),
		DocumentCacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vizlet_document_cache_hits_total",
				Help: "Document cache hits",
			},
		),
		DocumentCacheMiss: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vizlet_document_cache_misses_total",
				Help: "Document cache misses",
			},
		),
		TranspileTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vizlet_transpile_total",
				Help: "Total number of component transpilations",
			},
			[]string{"status"},
		),

		// Sandbox metrics
		Executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vizlet_executions_total",
				Help: "Total number of sandbox executions",
			},
			[]string{"outcome"},
		),
		ExecutionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vizlet_execution_duration_seconds",
				Help:    "Sandbox execution duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		SandboxesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vizlet_sandboxes_active",
				Help: "Number of sandboxes currently executing",
			},
		),

		// Data fetch metrics
		FetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vizlet_fetch_total",
				Help: "Total number of live data fetches",
			},
			[]string{"source", "status"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vizlet_fetch_duration_seconds",
				Help:    "Live data fetch duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"source"},
		),
		CacheServed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vizlet_data_cache_served_total",
				Help: "Renders served from cached widget data",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vizlet_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vizlet_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vizlet_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordDocumentBuild records a document build and whether the cache served it
func (m *Metrics) RecordDocumentBuild(theme string, cached bool) {
	m.DocumentBuilds.WithLabelValues(theme).Inc()
	if cached {
		m.DocumentCacheHits.Inc()
	} else {
		m.DocumentCacheMiss.Inc()
	}
}

// RecordTranspile records a transpilation attempt
func (m *Metrics) RecordTranspile(status string) {
	m.TranspileTotal.WithLabelValues(status).Inc()
}

// RecordExecution records a sandbox execution
func (m *Metrics) RecordExecution(outcome string, duration time.Duration) {
	m.Executions.WithLabelValues(outcome).Inc()
	m.ExecutionDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRenders++
	if outcome == "error" || outcome == "timeout" {
		m.snapshot.FailedRenders++
	}
	m.mu.Unlock()
}

// RecordFetch records a live data fetch
func (m *Metrics) RecordFetch(source, status string, duration time.Duration) {
	m.FetchTotal.WithLabelValues(source, status).Inc()
	m.FetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordCacheServed records a render served from cached widget data
func (m *Metrics) RecordCacheServed() {
	m.CacheServed.Inc()

	m.mu.Lock()
	m.snapshot.CacheHits++
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncSandboxesActive increments active sandbox executions
func (m *Metrics) IncSandboxesActive() {
	m.SandboxesActive.Inc()
}

// DecSandboxesActive decrements active sandbox executions
func (m *Metrics) DecSandboxesActive() {
	m.SandboxesActive.Dec()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// GetSnapshot returns current metric values for the JSON stats endpoint
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// UptimeSeconds reports seconds since the collector was created
func (m *Metrics) UptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}

// Registry exposes the collector's registry for the exposition endpoint
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
