// Package metrics provides Prometheus metrics for the castform service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Form behaviour
	fieldInputs        *prometheus.CounterVec
	fieldBlurs         *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	formSubmits        prometheus.Counter
	formEdits          prometheus.Counter
	formResets         prometheus.Counter
	sampleRecords      prometheus.Counter

	// Sessions
	sessionsActive  prometheus.Gauge
	sessionsCreated prometheus.Counter
	sessionsEvicted prometheus.Counter

	// Submission pipeline
	submissionsDuplicate prometheus.Counter
	submissionsRecorded  prometheus.Counter
	journalSize          prometheus.Gauge

	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "castform",
		subsystem:        "form",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
		Buckets:     m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.fieldInputs = m.counterVec("field_inputs_total", "User writes to a bound field", "field")
	m.fieldBlurs = m.counterVec("field_blurs_total", "Fields marked touched", "field")
	m.validationFailures = m.counterVec("validation_failures_total", "Validation failures shown to the user", "field")
	m.formSubmits = m.counter("submits_total", "Forms switched to the submitted view")
	m.formEdits = m.counter("edits_total", "Forms switched back to the edit view")
	m.formResets = m.counter("resets_total", "Records replaced by a blank actor")
	m.sampleRecords = m.counter("sample_records_total", "Sample actors constructed")

	m.sessionsActive = m.gauge("sessions_active", "Form sessions held in memory")
	m.sessionsCreated = m.counter("sessions_created_total", "Form sessions created")
	m.sessionsEvicted = m.counter("sessions_evicted_total", "Form sessions evicted by the LRU")

	m.submissionsDuplicate = m.counter("submissions_duplicate_total", "Submissions rejected as double submits")
	m.submissionsRecorded = m.counter("submissions_recorded_total", "Submissions written to the journal")
	m.journalSize = m.gauge("journal_size", "Submissions held by the journal")

	m.queueSize = m.gauge("queue_size", "Submissions waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Submissions enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Submissions dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Failed enqueue attempts")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Enqueue latency in milliseconds")

	m.workerCount = m.gauge("worker_count", "Submission workers running")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per submission worker latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Worker processing errors")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.customLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds")
}

// Enabled reports whether recording is on for the global manager.
func Enabled() bool { return globalManager.enabled }

// RecordFieldInput counts a user write to field.
func RecordFieldInput(field string) {
	if globalManager.enabled {
		globalManager.fieldInputs.WithLabelValues(field).Inc()
	}
}

// RecordFieldBlur counts a field becoming touched.
func RecordFieldBlur(field string) {
	if globalManager.enabled {
		globalManager.fieldBlurs.WithLabelValues(field).Inc()
	}
}

// RecordValidationFailure counts an error message shown for field.
func RecordValidationFailure(field string) {
	if globalManager.enabled {
		globalManager.validationFailures.WithLabelValues(field).Inc()
	}
}

// RecordSubmit counts a submit.
func RecordSubmit() {
	if globalManager.enabled {
		globalManager.formSubmits.Inc()
	}
}

// RecordEdit counts a return to the edit view.
func RecordEdit() {
	if globalManager.enabled {
		globalManager.formEdits.Inc()
	}
}

// RecordReset counts a record replaced by a blank actor.
func RecordReset() {
	if globalManager.enabled {
		globalManager.formResets.Inc()
	}
}

// RecordSampleRecord counts a constructed sample actor.
func RecordSampleRecord() {
	if globalManager.enabled {
		globalManager.sampleRecords.Inc()
	}
}

// UpdateSessionsActive sets the number of sessions in memory.
func UpdateSessionsActive(count int) {
	globalManager.sessionsActive.Set(float64(count))
}

// RecordSessionCreated counts a new session.
func RecordSessionCreated() {
	if globalManager.enabled {
		globalManager.sessionsCreated.Inc()
	}
}

// RecordSessionEvicted counts a session pushed out of the LRU.
func RecordSessionEvicted() {
	if globalManager.enabled {
		globalManager.sessionsEvicted.Inc()
	}
}

// RecordSubmissionDuplicate counts a double submit.
func RecordSubmissionDuplicate() {
	if globalManager.enabled {
		globalManager.submissionsDuplicate.Inc()
	}
}

// RecordSubmissionRecorded counts a submission written to the journal.
func RecordSubmissionRecorded() {
	if globalManager.enabled {
		globalManager.submissionsRecorded.Inc()
	}
}

// UpdateJournalSize sets the journal size.
func UpdateJournalSize(size int) {
	globalManager.journalSize.Set(float64(size))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if globalManager.enabled {
		globalManager.queueEnqueued.Inc()
	}
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if globalManager.enabled {
		globalManager.queueDequeued.Inc()
	}
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if globalManager.enabled {
		globalManager.queueEnqueueErrors.Inc()
	}
}

// RecordQueueProcessingLatency records enqueue latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.queueProcessingLatency.Observe(latencyMs)
	}
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.workerProcessingLatency.Observe(latencyMs)
	}
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if globalManager.enabled {
		globalManager.workerErrors.Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if globalManager.enabled {
		globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint records an error with endpoint, method and type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
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

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before any metric is recorded.
func Init(opts ...Option) *Manager {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
	globalManager = m
	return m
}

// RefreshInterval returns how often the global gauges should be refreshed.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
