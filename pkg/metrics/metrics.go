package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP Request Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Call Metrics
	callsInitiatedTotal *prometheus.CounterVec
	callsEndedTotal     *prometheus.CounterVec
	callDurationSeconds prometheus.Histogram

	// Group Metrics
	groupsCreatedTotal   prometheus.Counter
	membersAddedTotal    prometheus.Counter
	membersRemovedTotal  prometheus.Counter
	adminPromotionsTotal prometheus.Counter

	// Notification Metrics
	eventsPublishedTotal *prometheus.CounterVec
	publishFailuresTotal *prometheus.CounterVec

	// WebSocket Metrics
	websocketConnections prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: labels,
			},
		),
		callsInitiatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calls_initiated_total",
				Help:        "Total number of calls initiated",
				ConstLabels: labels,
			},
			[]string{"call_type"},
		),
		callsEndedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calls_ended_total",
				Help:        "Total number of calls that reached a terminal state",
				ConstLabels: labels,
			},
			[]string{"status"},
		),
		callDurationSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "call_duration_seconds",
				Help:        "Duration of completed calls in seconds",
				ConstLabels: labels,
				Buckets:     []float64{10, 30, 60, 120, 300, 600, 1800, 3600},
			},
		),
		groupsCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "groups_created_total",
				Help:        "Total number of groups created",
				ConstLabels: labels,
			},
		),
		membersAddedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "group_members_added_total",
				Help:        "Total number of group members added",
				ConstLabels: labels,
			},
		),
		membersRemovedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "group_members_removed_total",
				Help:        "Total number of group members removed or departed",
				ConstLabels: labels,
			},
		),
		adminPromotionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "group_admin_promotions_total",
				Help:        "Total number of automatic admin promotions on departure",
				ConstLabels: labels,
			},
		),
		eventsPublishedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "notification_events_published_total",
				Help:        "Total number of realtime events published",
				ConstLabels: labels,
			},
			[]string{"event"},
		),
		publishFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "notification_publish_failures_total",
				Help:        "Total number of realtime publish failures (swallowed)",
				ConstLabels: labels,
			},
			[]string{"event"},
		),
		websocketConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "websocket_connections",
				Help:        "Number of active WebSocket connections",
				ConstLabels: labels,
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request with its duration
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight request gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight request gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// RecordCallInitiated records a newly initiated call
func (m *Metrics) RecordCallInitiated(callType string) {
	m.callsInitiatedTotal.WithLabelValues(callType).Inc()
}

// RecordCallEnded records a call reaching a terminal state
func (m *Metrics) RecordCallEnded(status string, duration int) {
	m.callsEndedTotal.WithLabelValues(status).Inc()
	if duration > 0 {
		m.callDurationSeconds.Observe(float64(duration))
	}
}

// RecordGroupCreated records a group creation
func (m *Metrics) RecordGroupCreated() {
	m.groupsCreatedTotal.Inc()
}

// RecordMemberAdded records a group member addition
func (m *Metrics) RecordMemberAdded() {
	m.membersAddedTotal.Inc()
}

// RecordMemberRemoved records a group member removal or departure
func (m *Metrics) RecordMemberRemoved() {
	m.membersRemovedTotal.Inc()
}

// RecordAdminPromotion records an automatic admin promotion
func (m *Metrics) RecordAdminPromotion() {
	m.adminPromotionsTotal.Inc()
}

// RecordEventPublished records a realtime event publish attempt
func (m *Metrics) RecordEventPublished(event string, failed bool) {
	m.eventsPublishedTotal.WithLabelValues(event).Inc()
	if failed {
		m.publishFailuresTotal.WithLabelValues(event).Inc()
	}
}

// SetWebSocketConnections sets the active WebSocket connection gauge
func (m *Metrics) SetWebSocketConnections(n int) {
	m.websocketConnections.Set(float64(n))
}

// Handler exposes the Prometheus scrape endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
