package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCheckoutMetricsCountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.Handshake(StageVerify, OutcomeSignatureMismatch)
	m.Handshake(StageVerify, OutcomeSignatureMismatch)
	m.Handshake(StageCreateOrder, OutcomeSuccess)
	m.CartEvent("add_to_cart")
	m.AnalyticsDropped()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "storefront_handshake_total", "outcome", OutcomeSignatureMismatch); err != nil {
		t.Fatalf("fetch handshake: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 signature mismatches, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "storefront_cart_events_total", "event", "add_to_cart"); err != nil {
		t.Fatalf("fetch cart events: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 1 add_to_cart, got %f", got)
	}

	mf := findMetricFamily(mfs, "storefront_analytics_dropped_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected dropped counter of 1")
	}
}

func TestCheckoutMetricsNilSafe(t *testing.T) {
	var m *CheckoutMetrics
	m.Handshake(StageVerify, OutcomeSuccess)
	m.CartEvent("begin_checkout")
	m.AnalyticsDropped()
	m.AnalyticsSendFailed()
}
