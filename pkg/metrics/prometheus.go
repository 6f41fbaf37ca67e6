// Package metrics provides Prometheus metrics for the encore show coordinator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the encore service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Session lifecycle
	sessionsStarted   prometheus.Counter
	sessionsCompleted prometheus.Counter
	sessionsFailed    prometheus.Counter
	sessionsActive    prometheus.Gauge

	// Roster / pool health
	clientsConnected prometheus.Gauge
	poolSize         prometheus.Gauge

	// Broadcast fan-out
	broadcasts   prometheus.Counter
	sendFailures prometheus.Counter

	// Scoring outcomes
	scoresSubmitted   prometheus.Counter
	scoreTimeouts     prometheus.Counter
	persistenceErrors prometheus.Counter
	scoringLatency    prometheus.Histogram

	// Rendezvous registry
	pendingTags    prometheus.Gauge
	tagResolutions prometheus.Counter
	tagTimeouts    prometheus.Counter

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Process health
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "encore",
		subsystem:        "show",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.sessionsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_started_total",
		Help:      "Total number of session run loops started",
	})

	m.sessionsCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_completed_total",
		Help:      "Total number of session run loops that completed normally",
	})

	m.sessionsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_failed_total",
		Help:      "Total number of session run loops that ended with an error",
	})

	m.sessionsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_active",
		Help:      "Number of sessions currently registered in the directory",
	})

	m.clientsConnected = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "clients_connected",
		Help:      "Number of live client streams across all sessions",
	})

	m.poolSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pool_size",
		Help:      "Number of connected clients not claimed by any session",
	})

	m.broadcasts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcasts_total",
		Help:      "Total number of messages broadcast to session rosters",
	})

	m.sendFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "send_failures_total",
		Help:      "Total number of per-client send failures during broadcast or unicast",
	})

	m.scoresSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scores_submitted_total",
		Help:      "Total number of judge score submissions accepted",
	})

	m.scoreTimeouts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_timeouts_total",
		Help:      "Total number of judge score waits that expired without a submission",
	})

	m.persistenceErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persistence_errors_total",
		Help:      "Total number of score save failures (scores lost downstream)",
	})

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_latency_seconds",
		Help:      "Time from enable_scoring to each judge's submission",
		Buckets:   m.histogramBuckets,
	})

	m.pendingTags = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rendezvous_pending_tags",
		Help:      "Number of tags currently awaiting resolution",
	})

	m.tagResolutions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rendezvous_resolutions_total",
		Help:      "Total number of tags resolved to a waiter",
	})

	m.tagTimeouts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rendezvous_timeouts_total",
		Help:      "Total number of tag waits that timed out",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current heap allocation in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
}

// Package-level helpers against the global manager.

// RecordSessionStarted increments the started-session counter.
func RecordSessionStarted() {
	globalManager.sessionsStarted.Inc()
}

// RecordSessionCompleted increments the completed-session counter.
func RecordSessionCompleted() {
	globalManager.sessionsCompleted.Inc()
}

// RecordSessionFailed increments the failed-session counter.
func RecordSessionFailed() {
	globalManager.sessionsFailed.Inc()
}

// UpdateActiveSessions sets the registered-session gauge.
func UpdateActiveSessions(count int) {
	globalManager.sessionsActive.Set(float64(count))
}

// UpdateConnectedClients sets the live-stream gauge.
func UpdateConnectedClients(count int) {
	globalManager.clientsConnected.Set(float64(count))
}

// UpdatePoolSize sets the unassigned-client gauge.
func UpdatePoolSize(count int) {
	globalManager.poolSize.Set(float64(count))
}

// RecordBroadcast increments the broadcast counter.
func RecordBroadcast() {
	globalManager.broadcasts.Inc()
}

// RecordSendFailure increments the per-client send failure counter.
func RecordSendFailure() {
	globalManager.sendFailures.Inc()
}

// RecordScoreSubmitted increments the accepted-score counter.
func RecordScoreSubmitted() {
	globalManager.scoresSubmitted.Inc()
}

// RecordScoreTimeout increments the score-wait timeout counter.
func RecordScoreTimeout() {
	globalManager.scoreTimeouts.Inc()
}

// RecordPersistenceError increments the save-failure counter.
func RecordPersistenceError() {
	globalManager.persistenceErrors.Inc()
}

// RecordScoringLatency observes one judge's submission latency in seconds.
func RecordScoringLatency(seconds float64) {
	globalManager.scoringLatency.Observe(seconds)
}

// UpdatePendingTags sets the pending-tag gauge.
func UpdatePendingTags(count int) {
	globalManager.pendingTags.Set(float64(count))
}

// RecordTagResolution increments the resolved-tag counter.
func RecordTagResolution() {
	globalManager.tagResolutions.Inc()
}

// RecordTagTimeout increments the tag-timeout counter.
func RecordTagTimeout() {
	globalManager.tagTimeouts.Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
