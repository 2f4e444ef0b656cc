package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	signalsReceived   atomic.Uint64
	validationErrors  atomic.Uint64
	ordersSubmitted   atomic.Uint64
	ordersRejected    atomic.Uint64
	transportFailures atomic.Uint64
	notificationsSent atomic.Uint64
	notificationsFail atomic.Uint64

	// Submit latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64
}

// NewMetrics creates an empty metrics set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordSignal records an inbound webhook request.
func (m *Metrics) RecordSignal() {
	m.signalsReceived.Add(1)
}

// RecordValidationError records a request rejected before any venue call.
func (m *Metrics) RecordValidationError() {
	m.validationErrors.Add(1)
}

// RecordOrderSubmitted records an order acknowledged by the venue.
func (m *Metrics) RecordOrderSubmitted(latency time.Duration) {
	m.ordersSubmitted.Add(1)
	m.recordLatency(latency)
}

// RecordOrderRejected records a structured venue rejection (or missing account).
func (m *Metrics) RecordOrderRejected(latency time.Duration) {
	m.ordersRejected.Add(1)
	m.recordLatency(latency)
}

// RecordTransportFailure records a network/timeout failure talking to the venue.
func (m *Metrics) RecordTransportFailure(latency time.Duration) {
	m.transportFailures.Add(1)
	m.recordLatency(latency)
}

// RecordNotification records the outcome of an operator notification.
func (m *Metrics) RecordNotification(ok bool) {
	if ok {
		m.notificationsSent.Add(1)
	} else {
		m.notificationsFail.Add(1)
	}
}

func (m *Metrics) recordLatency(d time.Duration) {
	m.latencySumNs.Add(d.Nanoseconds())
	m.latencyCount.Add(1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	SignalsReceived     uint64    `json:"signals_received"`
	ValidationErrors    uint64    `json:"validation_errors"`
	OrdersSubmitted     uint64    `json:"orders_submitted"`
	OrdersRejected      uint64    `json:"orders_rejected"`
	TransportFailures   uint64    `json:"transport_failures"`
	NotificationsSent   uint64    `json:"notifications_sent"`
	NotificationsFailed uint64    `json:"notifications_failed"`
	AvgSubmitLatencyNs  int64     `json:"avg_submit_latency_ns"`
	Timestamp           time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		SignalsReceived:     m.signalsReceived.Load(),
		ValidationErrors:    m.validationErrors.Load(),
		OrdersSubmitted:     m.ordersSubmitted.Load(),
		OrdersRejected:      m.ordersRejected.Load(),
		TransportFailures:   m.transportFailures.Load(),
		NotificationsSent:   m.notificationsSent.Load(),
		NotificationsFailed: m.notificationsFail.Load(),
		AvgSubmitLatencyNs:  avgLatency,
		Timestamp:           time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.signalsReceived.Store(0)
	m.validationErrors.Store(0)
	m.ordersSubmitted.Store(0)
	m.ordersRejected.Store(0)
	m.transportFailures.Store(0)
	m.notificationsSent.Store(0)
	m.notificationsFail.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
}
