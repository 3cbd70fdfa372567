package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// WebSocket metrics
	wsConnections     *prometheus.GaugeVec
	wsFramesTotal     *prometheus.CounterVec
	wsAuthFailures    prometheus.Counter
	wsBroadcastsTotal *prometheus.CounterVec

	// Chat metrics
	messagesPersistedTotal prometheus.Counter
	attachmentsLinkedTotal prometheus.Counter

	// Call metrics
	signalingRelayedTotal  *prometheus.CounterVec
	callNotificationsTotal prometheus.Counter
}

// New creates and registers all Prometheus metrics on a private registry
func New(serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: labels,
			},
		),
		wsConnections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "ws_connections",
				Help:        "Open WebSocket connections by room kind",
				ConstLabels: labels,
			},
			[]string{"kind"},
		),
		wsFramesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "ws_frames_total",
				Help:        "Inbound WebSocket frames by action",
				ConstLabels: labels,
			},
			[]string{"action"},
		),
		wsAuthFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "ws_auth_failures_total",
				Help:        "Connections refused with the auth failure close code",
				ConstLabels: labels,
			},
		),
		wsBroadcastsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "ws_broadcasts_total",
				Help:        "Frames broadcast to rooms by frame type",
				ConstLabels: labels,
			},
			[]string{"type"},
		),
		messagesPersistedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "chat_messages_persisted_total",
				Help:        "Chat messages durably stored",
				ConstLabels: labels,
			},
		),
		attachmentsLinkedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "chat_attachments_linked_total",
				Help:        "Attachments linked to messages",
				ConstLabels: labels,
			},
		),
		signalingRelayedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "call_signaling_relayed_total",
				Help:        "WebRTC signaling frames relayed by kind",
				ConstLabels: labels,
			},
			[]string{"kind"},
		),
		callNotificationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "call_notifications_total",
				Help:        "call_notification frames pushed to conversation rooms",
				ConstLabels: labels,
			},
		),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.wsConnections,
		m.wsFramesTotal,
		m.wsAuthFailures,
		m.wsBroadcastsTotal,
		m.messagesPersistedTotal,
		m.attachmentsLinkedTotal,
		m.signalingRelayedTotal,
		m.callNotificationsTotal,
	)

	return m
}

// GetRegistry returns the private registry for the metrics endpoint
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// ConnectionOpened records a new WebSocket connection for a room kind
func (m *Metrics) ConnectionOpened(kind string) {
	m.wsConnections.WithLabelValues(kind).Inc()
}

// ConnectionClosed records a closed WebSocket connection for a room kind
func (m *Metrics) ConnectionClosed(kind string) {
	m.wsConnections.WithLabelValues(kind).Dec()
}

// FrameReceived counts an inbound frame by action
func (m *Metrics) FrameReceived(action string) {
	m.wsFramesTotal.WithLabelValues(action).Inc()
}

// AuthFailure counts a connection refused during handshake
func (m *Metrics) AuthFailure() {
	m.wsAuthFailures.Inc()
}

// Broadcast counts an outbound broadcast by frame type
func (m *Metrics) Broadcast(frameType string) {
	m.wsBroadcastsTotal.WithLabelValues(frameType).Inc()
}

// MessagePersisted counts a durably stored chat message
func (m *Metrics) MessagePersisted() {
	m.messagesPersistedTotal.Inc()
}

// AttachmentLinked counts an attachment claimed by a message
func (m *Metrics) AttachmentLinked() {
	m.attachmentsLinkedTotal.Inc()
}

// SignalingRelayed counts a relayed WebRTC signaling frame
func (m *Metrics) SignalingRelayed(kind string) {
	m.signalingRelayedTotal.WithLabelValues(kind).Inc()
}

// CallNotification counts a call_notification pushed to a conversation room
func (m *Metrics) CallNotification() {
	m.callNotificationsTotal.Inc()
}
