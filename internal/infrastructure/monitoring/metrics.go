package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/report"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Window metrics
	WindowsOpen   prometheus.Gauge
	WindowsOpened prometheus.Counter

	// Session metrics
	SessionsActive   prometheus.Gauge
	SessionsSaved    prometheus.Counter
	SessionsLoaded   prometheus.Counter
	SessionsRestored prometheus.Counter

	// Capture and restore outcomes, by pass ("vfs", "processes", "settings")
	CaptureOutcomes *prometheus.CounterVec
	RestoreOutcomes *prometheus.CounterVec
	CaptureDuration prometheus.Histogram
	RestoreDuration prometheus.Histogram

	// Storage backend calls
	StorageCalls    *prometheus.CounterVec
	StorageDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot
	mu       sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	OpenWindows       int64   `json:"open_windows"`
	ActiveConnections int64   `json:"active_connections"`
	SessionsSaved     int64   `json:"sessions_saved"`
	SessionsRestored  int64   `json:"sessions_restored"`
	AvgDurationMs     float64 `json:"avg_duration_ms"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates a metrics collector with its own registry, so several
// collectors can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessiond_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sessiond_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sessiond_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sessiond_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Window metrics
		WindowsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sessiond_windows_open",
				Help: "Number of open windows",
			},
		),
		WindowsOpened: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sessiond_windows_opened_total",
				Help: "Total number of windows opened",
			},
		),

		// Session metrics
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sessiond_session_active",
				Help: "1 when a session is active, otherwise 0",
			},
		),
		SessionsSaved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sessiond_sessions_saved_total",
				Help: "Total number of sessions saved",
			},
		),
		SessionsLoaded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sessiond_sessions_loaded_total",
				Help: "Total number of sessions loaded",
			},
		),
		SessionsRestored: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sessiond_sessions_restored_total",
				Help: "Total number of sessions restored",
			},
		),

		// Capture / restore
		CaptureOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessiond_capture_outcomes_total",
				Help: "Capture results per item",
			},
			[]string{"pass", "status"},
		),
		RestoreOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessiond_restore_outcomes_total",
				Help: "Restore results per item",
			},
			[]string{"pass", "status"},
		),
		CaptureDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sessiond_capture_duration_seconds",
				Help:    "Session capture duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 10, 30},
			},
		),
		RestoreDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sessiond_restore_duration_seconds",
				Help:    "Session restore duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 10, 30},
			},
		),

		// Storage
		StorageCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessiond_storage_calls_total",
				Help: "Total number of storage backend calls",
			},
			[]string{"backend", "op", "status"},
		),
		StorageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sessiond_storage_duration_seconds",
				Help:    "Storage backend call duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"backend", "op"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sessiond_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessiond_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "sessiond_uptime_seconds",
			Help: "Service uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Handler serves this collector's registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordCapture counts each outcome of a capture and its duration.
func (m *Metrics) RecordCapture(rep *report.Report, duration time.Duration) {
	if rep != nil {
		recordOutcomes(m.CaptureOutcomes, "vfs", rep.VFS)
		recordOutcomes(m.CaptureOutcomes, "processes", rep.Processes)
	}
	m.CaptureDuration.Observe(duration.Seconds())
}

// RecordRestore counts each outcome of a restore and its duration.
func (m *Metrics) RecordRestore(rep *report.Report, duration time.Duration) {
	if rep != nil {
		recordOutcomes(m.RestoreOutcomes, "vfs", rep.VFS)
		recordOutcomes(m.RestoreOutcomes, "settings", rep.Settings)
		recordOutcomes(m.RestoreOutcomes, "processes", rep.Processes)
	}
	m.RestoreDuration.Observe(duration.Seconds())

	m.SessionsRestored.Inc()
	m.mu.Lock()
	m.snapshot.SessionsRestored++
	m.mu.Unlock()
}

func recordOutcomes(vec *prometheus.CounterVec, pass string, outcomes []report.Outcome) {
	for status, n := range report.Tally(outcomes) {
		vec.WithLabelValues(pass, string(status)).Add(float64(n))
	}
}

// RecordStorageCall records one backend operation
func (m *Metrics) RecordStorageCall(backend, op, status string, duration time.Duration) {
	m.StorageCalls.WithLabelValues(backend, op, status).Inc()
	m.StorageDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetWindowsOpen sets the number of open windows
func (m *Metrics) SetWindowsOpen(count int) {
	m.WindowsOpen.Set(float64(count))
	m.mu.Lock()
	m.snapshot.OpenWindows = int64(count)
	m.mu.Unlock()
}

// IncWindowsOpened increments the windows opened counter
func (m *Metrics) IncWindowsOpened() {
	m.WindowsOpened.Inc()
}

// SetSessionActive flags whether a session is active
func (m *Metrics) SetSessionActive(active bool) {
	if active {
		m.SessionsActive.Set(1)
	} else {
		m.SessionsActive.Set(0)
	}
}

// IncSessionsSaved increments the sessions saved counter
func (m *Metrics) IncSessionsSaved() {
	m.SessionsSaved.Inc()
	m.mu.Lock()
	m.snapshot.SessionsSaved++
	m.mu.Unlock()
}

// IncSessionsLoaded increments the sessions loaded counter
func (m *Metrics) IncSessionsLoaded() {
	m.SessionsLoaded.Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns current values for the JSON API.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	s := m.snapshot
	m.mu.RUnlock()

	if s.TotalRequests > 0 {
		s.AvgDurationMs = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
