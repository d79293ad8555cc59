// Package metrics provides Prometheus metrics for the billboards evaluation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Match pipeline
	matchesSubmitted  prometheus.Counter
	matchesDuplicate  prometheus.Counter
	matchesScored     prometheus.Counter
	matchesFailed     prometheus.Counter
	zonesScored       prometheus.Counter
	evaluationLatency prometheus.Histogram
	parseErrors       *prometheus.CounterVec
	scoringFaults     *prometheus.CounterVec

	// Standings and results
	standingsTeams     prometheus.Gauge
	resultStoreLatency *prometheus.HistogramVec

	// Queue and workers
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	workerCount   prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Kafka
	kafkaMessages     prometheus.Counter
	kafkaDecodeErrors prometheus.Counter

	// Runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by package-level recorders

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry served on /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "billboards",
		subsystem:        "evaluation",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogram(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.matchesSubmitted = auto.NewCounter(m.counter("matches_submitted_total", "Matches accepted for evaluation"))
	m.matchesDuplicate = auto.NewCounter(m.counter("matches_duplicate_total", "Submissions rejected as duplicates"))
	m.matchesScored = auto.NewCounter(m.counter("matches_scored_total", "Matches evaluated successfully"))
	m.matchesFailed = auto.NewCounter(m.counter("matches_failed_total", "Matches whose evaluation failed"))
	m.zonesScored = auto.NewCounter(m.counter("zones_scored_total", "Zones scored across all evaluations"))
	m.evaluationLatency = auto.NewHistogram(m.histogram("evaluation_latency_milliseconds",
		"Time spent scoring one board in milliseconds"))
	m.parseErrors = auto.NewCounterVec(m.counter("parse_errors_total", "Rejected zone log lines by reason"),
		[]string{"reason"})
	m.scoringFaults = auto.NewCounterVec(m.counter("scoring_faults_total", "Scoring faults by kind"),
		[]string{"kind"})

	m.standingsTeams = auto.NewGauge(m.gauge("standings_teams", "Teams present in the cumulative standings"))
	m.resultStoreLatency = auto.NewHistogramVec(m.histogram("result_store_latency_milliseconds",
		"Result store operation latency in milliseconds"), []string{"operation"})

	m.queueSize = auto.NewGauge(m.gauge("queue_size", "Matches waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity", "Capacity of the match queue"))
	m.workerCount = auto.NewGauge(m.gauge("worker_count", "Running evaluation workers"))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total", "HTTP requests by route, method and status"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})

	m.kafkaMessages = auto.NewCounter(m.counter("kafka_messages_total", "Kafka messages consumed"))
	m.kafkaDecodeErrors = auto.NewCounter(m.counter("kafka_decode_errors_total", "Kafka messages that could not be decoded"))

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count", "Number of goroutines"))
}

// RecordMatchSubmitted counts an accepted submission.
func RecordMatchSubmitted() { globalManager.matchesSubmitted.Inc() }

// RecordMatchDuplicate counts a duplicate submission.
func RecordMatchDuplicate() { globalManager.matchesDuplicate.Inc() }

// RecordMatchScored counts a successful evaluation of a match with the given number of zones.
func RecordMatchScored(zones int) {
	globalManager.matchesScored.Inc()
	globalManager.zonesScored.Add(float64(zones))
}

// RecordMatchFailed counts a failed evaluation.
func RecordMatchFailed() { globalManager.matchesFailed.Inc() }

// RecordEvaluationLatency records how long one board took to score.
func RecordEvaluationLatency(latencyMs float64) { globalManager.evaluationLatency.Observe(latencyMs) }

// RecordParseError counts a rejected log line.
func RecordParseError(reason string) { globalManager.parseErrors.WithLabelValues(reason).Inc() }

// RecordScoringFault counts an overflow or invariant violation.
func RecordScoringFault(kind string) { globalManager.scoringFaults.WithLabelValues(kind).Inc() }

// UpdateStandingsTeams sets the number of teams in the standings.
func UpdateStandingsTeams(count int) { globalManager.standingsTeams.Set(float64(count)) }

// RecordResultStoreLatency records a result store operation.
func RecordResultStoreLatency(operation string, latencyMs float64) {
	globalManager.resultStoreLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordKafkaMessage counts a consumed Kafka message.
func RecordKafkaMessage() { globalManager.kafkaMessages.Inc() }

// RecordKafkaDecodeError counts a Kafka message that failed to decode.
func RecordKafkaDecodeError() { globalManager.kafkaDecodeErrors.Inc() }

// UpdateSystemMemoryUsage sets the heap memory in use.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the registry the package-level recorders write to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
