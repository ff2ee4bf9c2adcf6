package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	StageCreateOrder = "create_order"
	StageVerify      = "verify"

	OutcomeSuccess           = "success"
	OutcomeValidation        = "validation"
	OutcomeGatewayError      = "gateway_error"
	OutcomeSignatureMismatch = "signature_mismatch"
	OutcomeNotCaptured       = "not_captured"
	OutcomeDuplicate         = "duplicate"
	OutcomeFallbackRecorded  = "fallback_recorded"
	OutcomeDescriptorExpired = "descriptor_expired"
)

// CheckoutMetrics tracks the payment handshake, cart activity and analytics delivery.
type CheckoutMetrics struct {
	handshake        *prometheus.CounterVec
	cartEvents       *prometheus.CounterVec
	analyticsDropped prometheus.Counter
	analyticsFailed  prometheus.Counter
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	handshake := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_handshake_total",
		Help: "Payment handshake requests by stage and outcome.",
	}, []string{"stage", "outcome"})
	cartEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_events_total",
		Help: "Analytics events produced by cart transitions.",
	}, []string{"event"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_analytics_dropped_total",
		Help: "Analytics events dropped because the buffer was full.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_analytics_send_failures_total",
		Help: "Analytics events the sink failed to accept.",
	})
	reg.MustRegister(handshake, cartEvents, dropped, failed)
	return &CheckoutMetrics{
		handshake:        handshake,
		cartEvents:       cartEvents,
		analyticsDropped: dropped,
		analyticsFailed:  failed,
	}
}

func (m *CheckoutMetrics) Handshake(stage, outcome string) {
	if m == nil || m.handshake == nil {
		return
	}
	m.handshake.WithLabelValues(normalizeLabel(stage), normalizeLabel(outcome)).Inc()
}

func (m *CheckoutMetrics) CartEvent(event string) {
	if m == nil || m.cartEvents == nil {
		return
	}
	m.cartEvents.WithLabelValues(normalizeLabel(event)).Inc()
}

func (m *CheckoutMetrics) AnalyticsDropped() {
	if m == nil || m.analyticsDropped == nil {
		return
	}
	m.analyticsDropped.Inc()
}

func (m *CheckoutMetrics) AnalyticsSendFailed() {
	if m == nil || m.analyticsFailed == nil {
		return
	}
	m.analyticsFailed.Inc()
}
