// Package metrics provides Prometheus metrics for the recruitment dashboard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Sync metrics
	snapshotsReceived  *prometheus.CounterVec
	subscriptionErrors *prometheus.CounterVec
	writes             *prometheus.CounterVec
	writeLatency       *prometheus.HistogramVec
	writeQueueDepth    prometheus.Gauge
	replicatedMessages *prometheus.CounterVec

	// Domain metrics
	editsApplied   *prometheus.CounterVec
	compositeScore *prometheus.GaugeVec
	falloutRate    *prometheus.GaugeVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	liveClients         prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "recruitdash",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.snapshotsReceived = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshots_received_total",
		Help:      "Document snapshots delivered by topic subscriptions",
	}, []string{"topic"})

	m.subscriptionErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "subscription_errors_total",
		Help:      "Terminal subscription failures by topic",
	}, []string{"topic"})

	m.writes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "writes_total",
		Help:      "Document writes by topic and result",
	}, []string{"topic", "result"})

	m.writeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "write_latency_milliseconds",
		Help:      "Latency of document writes in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"topic"})

	m.writeQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "write_queue_depth",
		Help:      "Pending writes waiting for the writer",
	})

	m.replicatedMessages = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "replicated_messages_total",
		Help:      "Change messages exchanged with peer instances",
	}, []string{"direction"})

	m.editsApplied = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "edits_applied_total",
		Help:      "Local field edits applied to the team model",
	}, []string{"dataset"})

	m.compositeScore = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "composite_score",
		Help:      "Current composite KPI score per member",
	}, []string{"member"})

	m.falloutRate = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fallout_rate_percent",
		Help:      "Current new starter fallout rate per member",
	}, []string{"member"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.liveClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "live_clients",
		Help:      "Connected live-update websocket clients",
	})
}

// RecordSnapshot counts a snapshot delivered for topic.
func RecordSnapshot(topic string) {
	globalManager.snapshotsReceived.WithLabelValues(topic).Inc()
}

// RecordSubscriptionError counts a terminal subscription failure.
func RecordSubscriptionError(topic string) {
	globalManager.subscriptionErrors.WithLabelValues(topic).Inc()
}

// RecordWrite counts a write attempt and its latency.
func RecordWrite(topic string, ok bool, latencyMs float64) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	globalManager.writes.WithLabelValues(topic, result).Inc()
	globalManager.writeLatency.WithLabelValues(topic).Observe(latencyMs)
}

// UpdateWriteQueueDepth sets the pending write count.
func UpdateWriteQueueDepth(n int) {
	globalManager.writeQueueDepth.Set(float64(n))
}

// RecordReplicated counts a replication message; direction is "in" or "out".
func RecordReplicated(direction string) {
	globalManager.replicatedMessages.WithLabelValues(direction).Inc()
}

// RecordEdit counts an applied local edit.
func RecordEdit(dataset string) {
	globalManager.editsApplied.WithLabelValues(dataset).Inc()
}

// UpdateCompositeScore publishes a member's composite score.
func UpdateCompositeScore(member string, score float64) {
	globalManager.compositeScore.WithLabelValues(member).Set(score)
}

// UpdateFalloutRate publishes a member's fallout rate.
func UpdateFalloutRate(member string, rate float64) {
	globalManager.falloutRate.WithLabelValues(member).Set(rate)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateLiveClients sets the number of connected live-update clients.
func UpdateLiveClients(n int) {
	globalManager.liveClients.Set(float64(n))
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
