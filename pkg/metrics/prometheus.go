// Package metrics provides Prometheus metrics for the royale ingestion and
// leaderboard service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion
	matchesIngested  prometheus.Counter
	ingestOutcomes   *prometheus.CounterVec
	ingestLatency    prometheus.Histogram
	duplicates       prometheus.Counter
	rosterMismatches *prometheus.CounterVec
	statRowsWritten  *prometheus.CounterVec

	// Aggregation
	aggregationLatency *prometheus.HistogramVec

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram

	// Transports
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	natsMessages        *prometheus.CounterVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "royale",
		subsystem:        "core",
		histogramBuckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
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

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.matchesIngested = m.counter("matches_ingested_total", "Matches committed by ingestion")
	m.ingestOutcomes = m.counterVec("ingest_outcomes_total", "Ingestion attempts by resulting status", "status")
	m.ingestLatency = m.histogram("ingest_latency_milliseconds", "End to end ingestion latency in milliseconds", m.histogramBuckets)
	m.duplicates = m.counter("duplicate_ingestions_total", "Ingestion attempts rejected as duplicates")
	m.rosterMismatches = m.counterVec("roster_mismatches_total", "Players present on only one side of a roster check", "side")
	m.statRowsWritten = m.counterVec("stat_rows_written_total", "Derived stat rows upserted", "kind")

	m.aggregationLatency = m.histogramVec("aggregation_latency_milliseconds", "Leaderboard aggregation latency in milliseconds", "scope")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Store operation latency in milliseconds", "operation")
	m.storeErrors = m.counterVec("store_errors_total", "Store operations that failed", "operation", "kind")

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the ingestion queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the ingestion queue")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs accepted by the ingestion queue")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs taken from the ingestion queue")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Jobs rejected by a full or closed queue")

	m.workerCount = m.gauge("worker_count", "Running ingestion workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker job processing latency in milliseconds", m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.natsMessages = m.counterVec("nats_messages_total", "Telemetry messages received over NATS by outcome", "status")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// RecordIngestOutcome counts one ingestion attempt and its latency.
func RecordIngestOutcome(status string, latency time.Duration) {
	globalManager.ingestOutcomes.WithLabelValues(status).Inc()
	globalManager.ingestLatency.Observe(ms(latency))
	switch status {
	case "success":
		globalManager.matchesIngested.Inc()
	case "duplicate":
		globalManager.duplicates.Inc()
	}
}

// RecordRosterMismatch adds n unmatched players on side ("game" or "db").
func RecordRosterMismatch(side string, n int) {
	if n > 0 {
		globalManager.rosterMismatches.WithLabelValues(side).Add(float64(n))
	}
}

// RecordStatRowsWritten adds n upserted rows of kind ("player" or "team").
func RecordStatRowsWritten(kind string, n int) {
	if n > 0 {
		globalManager.statRowsWritten.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordAggregation records the latency of one leaderboard aggregation.
func RecordAggregation(scope string, latency time.Duration) {
	globalManager.aggregationLatency.WithLabelValues(scope).Observe(ms(latency))
}

// RecordStoreOperation records a store call. failure is empty for a
// successful call and otherwise names the kind of failure.
func RecordStoreOperation(op string, latency time.Duration, failure string) {
	globalManager.storeLatency.WithLabelValues(op).Observe(ms(latency))
	if failure != "" {
		globalManager.storeErrors.WithLabelValues(op, failure).Inc()
	}
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records how long a worker spent on one job.
func RecordWorkerProcessingLatency(latency time.Duration) {
	globalManager.workerProcessingLatency.Observe(ms(latency))
}

// RecordHTTPRequest records one HTTP request and its duration.
func RecordHTTPRequest(endpoint, method string, statusCode int, duration time.Duration) {
	code := strconv.Itoa(statusCode)
	globalManager.httpRequests.WithLabelValues(endpoint, method, code).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, code).Observe(ms(duration))
}

// RecordNATSMessage counts one telemetry message received over NATS.
func RecordNATSMessage(status string) {
	globalManager.natsMessages.WithLabelValues(status).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap memory in use in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
