package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ctp_segment"

// Notification outcomes.
const (
	OutcomeHandled   = "handled"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// DeliveryMetrics records how notifications are processed and how Segment calls behave.
type DeliveryMetrics struct {
	notifications *prometheus.CounterVec
	calls         *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
}

// NewDeliveryMetrics registers the delivery metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	if reg == nil {
		return &DeliveryMetrics{}
	}
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Change notifications processed, by resource, type and outcome.",
	}, []string{"resource", "notification_type", "outcome"})
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "segment_calls_total",
		Help:      "Segment API calls, by call and outcome.",
	}, []string{"call", "outcome"})
	callDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "segment_call_duration_seconds",
		Help:      "Duration of Segment API calls including retries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"call"})
	reg.MustRegister(notifications, calls, callDuration)
	return &DeliveryMetrics{
		notifications: notifications,
		calls:         calls,
		callDuration:  callDuration,
	}
}

func (m *DeliveryMetrics) IncNotification(resource, notificationType, outcome string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(resource), normalizeLabel(notificationType), normalizeLabel(outcome)).Inc()
}

// ObserveCall records one Segment call and whether it eventually succeeded.
func (m *DeliveryMetrics) ObserveCall(call string, duration time.Duration, err error) {
	if m == nil || m.calls == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.calls.WithLabelValues(normalizeLabel(call), outcome).Inc()
	m.callDuration.WithLabelValues(normalizeLabel(call)).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
