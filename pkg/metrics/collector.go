// Package metrics exposes Prometheus collectors for the flow engine.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of inbound updates labeled by kind and status",
		},
		[]string{"kind", "status"},
	)
	updateDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_update_duration_seconds",
			Help:    "Duration of inbound update handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_transitions_total",
			Help: "Total number of flow state transitions",
		},
		[]string{"from", "to"},
	)
	capturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_captures_total",
			Help: "Field captures split by outcome (accepted or rejected)",
		},
		[]string{"result"},
	)
	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_documents_total",
			Help: "Document deliveries split by status",
		},
		[]string{"status"},
	)
	adminNotifyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_admin_notifications_total",
			Help: "Admin notifications split by status",
		},
		[]string{"status"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Current number of in-memory chat sessions",
		},
	)
)

// RecordUpdate increments the update counter and records handling duration.
func RecordUpdate(kind, status string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	updatesTotal.WithLabelValues(kind, status).Inc()
	updateDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordTransition tracks a flow state transition.
func RecordTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	transitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordCapture tracks an input-capture outcome.
func RecordCapture(accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	capturesTotal.WithLabelValues(result).Inc()
}

// RecordDocument tracks a document delivery attempt.
func RecordDocument(sent bool) {
	status := "failed"
	if sent {
		status = "sent"
	}
	documentsTotal.WithLabelValues(status).Inc()
}

// RecordAdminNotify tracks a best-effort admin notification attempt.
func RecordAdminNotify(sent bool) {
	status := "failed"
	if sent {
		status = "sent"
	}
	adminNotifyTotal.WithLabelValues(status).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// SetActiveSessions updates the live session gauge.
func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}

// SessionCounter reports how many sessions a store currently holds.
type SessionCounter interface {
	Len() int
}

// SessionCollector periodically publishes the session count gauge.
type SessionCollector struct {
	store    SessionCounter
	interval time.Duration
}

// NewSessionCollector builds a collector bound to the provided store.
func NewSessionCollector(store SessionCounter) *SessionCollector {
	return &SessionCollector{store: store, interval: 10 * time.Second}
}

// Run updates the gauge until ctx is cancelled.
func (c *SessionCollector) Run(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		SetActiveSessions(c.store.Len())

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.interval):
		}
	}
}
