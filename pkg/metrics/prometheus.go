// Package metrics provides Prometheus metrics for the formcoach service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Score and insight buckets. Scores live in [0,100], insights in [0,5].
var (
	scoreBuckets   = prometheus.LinearBuckets(10, 10, 10)
	insightBuckets = []float64{0, 1, 2, 3, 4, 5}
	latencyBuckets = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// Manager owns every collector of the service.
type Manager struct {
	namespace       string
	subsystem       string
	enabled         bool
	refreshInterval time.Duration
	constLabels     prometheus.Labels
	registry        prometheus.Registerer

	// Analysis
	analyses            *prometheus.CounterVec
	estimatorSource     *prometheus.CounterVec
	overallScore        prometheus.Histogram
	insightsPerAnalysis prometheus.Histogram
	analysisLatency     prometheus.Histogram

	// Persistence
	sessionWrites       prometheus.Counter
	profileUpserts      prometheus.Counter
	persistenceFailures *prometheus.CounterVec
	storageLatency      *prometheus.HistogramVec
	uploadsStored       prometheus.Counter
	uploadBytes         prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// installed pairs the process-wide manager with the registry it feeds.
type installed struct {
	manager  *Manager
	registry *prometheus.Registry
}

var current atomic.Pointer[installed] //nolint:gochecknoglobals // process-wide metrics manager

func init() { //nolint:gochecknoinits // recorders must work before Configure runs
	Configure()
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "formcoach",
		subsystem:       "engine",
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		registry:        prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// active returns the process-wide manager, or nil when recording is off.
func active() *Manager {
	if m := current.Load().manager; m.enabled {
		return m
	}
	return nil
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() {
	m.analyses = m.counterVec("analyses_total", "Analyses served, by resolved sport key", "sport")
	m.estimatorSource = m.counterVec("estimator_source_total", "Analyses by the source of their raw scores", "source")
	m.overallScore = m.histogram("overall_score", "Distribution of overall scores", scoreBuckets)
	m.insightsPerAnalysis = m.histogram("insights_per_analysis", "Number of insights returned per analysis", insightBuckets)
	m.analysisLatency = m.histogram("analysis_latency_milliseconds", "End-to-end analysis latency including persistence", latencyBuckets)

	m.sessionWrites = m.counter("session_writes_total", "Sessions persisted successfully")
	m.profileUpserts = m.counter("profile_upserts_total", "Athlete profiles created or updated")
	m.persistenceFailures = m.counterVec("persistence_failures_total", "Absorbed storage write failures", "operation")
	m.storageLatency = m.histogramVec("storage_latency_milliseconds", "Storage call latency", latencyBuckets, "operation")
	m.uploadsStored = m.counter("uploads_stored_total", "Uploaded media files written to disk")
	m.uploadBytes = m.counter("upload_bytes_total", "Bytes of uploaded media written to disk")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		latencyBuckets, "endpoint", "method", "status_code")
	m.rateLimited = m.counterVec("rate_limited_total", "Requests rejected by the rate limiter", "endpoint")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time", latencyBuckets)
}

// RecordAnalysis records one served analysis.
func RecordAnalysis(sport, source string, overall, insights int, latencyMs float64) {
	if m := active(); m != nil {
		m.analyses.WithLabelValues(sport).Inc()
		m.estimatorSource.WithLabelValues(source).Inc()
		m.overallScore.Observe(float64(overall))
		m.insightsPerAnalysis.Observe(float64(insights))
		m.analysisLatency.Observe(latencyMs)
	}
}

// RecordSessionWrite counts a persisted session.
func RecordSessionWrite() {
	if m := active(); m != nil {
		m.sessionWrites.Inc()
	}
}

// RecordProfileUpsert counts a profile write.
func RecordProfileUpsert() {
	if m := active(); m != nil {
		m.profileUpserts.Inc()
	}
}

// RecordPersistenceFailure counts a storage failure that was absorbed.
func RecordPersistenceFailure(operation string) {
	if m := active(); m != nil {
		m.persistenceFailures.WithLabelValues(operation).Inc()
	}
}

// RecordStorageLatency observes the duration of one storage call.
func RecordStorageLatency(operation string, latencyMs float64) {
	if m := active(); m != nil {
		m.storageLatency.WithLabelValues(operation).Observe(latencyMs)
	}
}

// RecordUpload counts one stored upload of n bytes.
func RecordUpload(n int64) {
	if m := active(); m != nil {
		m.uploadsStored.Inc()
		m.uploadBytes.Add(float64(n))
	}
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if m := active(); m != nil {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if m := active(); m != nil {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited(endpoint string) {
	if m := active(); m != nil {
		m.rateLimited.WithLabelValues(endpoint).Inc()
	}
}

// RecordErrorByType records errors by type and severity.
func RecordErrorByType(errorType, severity string) {
	if m := active(); m != nil {
		m.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint records errors by HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m := active(); m != nil {
		m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage updates system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	if m := active(); m != nil {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount updates goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if m := active(); m != nil {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) {
	if m := active(); m != nil {
		m.systemGCPauseTime.Observe(pauseMs)
	}
}

// RefreshInterval returns how often the system gauges should be sampled.
func RefreshInterval() time.Duration {
	return current.Load().manager.refreshInterval
}

// GetRegistry returns the registry served on /metrics.
func GetRegistry() *prometheus.Registry {
	return current.Load().registry
}

// Since returns the elapsed milliseconds since start, for latency recorders.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
