package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelsMatch(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.GetLabel()) != len(labels) {
		return false
	}
	for _, pair := range metric.GetLabel() {
		if labels[pair.GetName()] != pair.GetValue() {
			return false
		}
	}
	return true
}

func TestCheckoutMetrics_RecordCheckout(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetricsWithRegisterer(reg)

	m.RecordCheckout(SourceCart, "created", 10*time.Millisecond)
	m.RecordCheckout(SourceCart, "created", 20*time.Millisecond)
	m.RecordCheckout(SourceBuyNow, "stock_exceeded", time.Millisecond)
	m.RecordStockRejection()
	m.RecordEvents(1, 1)

	require.Equal(t, 2.0, counterValue(t, reg, "shop_checkout_orders_total", map[string]string{"source": "cart", "result": "created"}))
	require.Equal(t, 1.0, counterValue(t, reg, "shop_checkout_orders_total", map[string]string{"source": "buy_now", "result": "stock_exceeded"}))
	require.Equal(t, 1.0, counterValue(t, reg, "shop_checkout_stock_rejections_total", nil))
	require.Equal(t, 1.0, counterValue(t, reg, "shop_outbox_events_enqueued_total", nil))
}

func TestRegister_ReturnsExistingCollector(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewPaymentMetricsWithRegisterer(reg)
	second := NewPaymentMetricsWithRegisterer(reg)

	first.RecordConfirmation(ConfirmCompleted)
	second.RecordConfirmation(ConfirmCompleted)

	require.Equal(t, 2.0, counterValue(t, reg, "shop_payment_confirmations_total", map[string]string{"outcome": "completed"}))
}

func TestRegister_PanicsOnTypeClash(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter(reg, prometheus.CounterOpts{Name: "shop_clash", Help: "clash"})

	require.Panics(t, func() {
		gauge(reg, prometheus.GaugeOpts{Name: "shop_clash", Help: "clash"})
	})
}

func TestNilMetricsAreNoop(t *testing.T) {
	var (
		checkout *CheckoutMetrics
		payment  *PaymentMetrics
		outbox   *OutboxMetrics
		httpm    *HTTPMetrics
	)

	require.NotPanics(t, func() {
		checkout.RecordCheckout(SourceCart, "created", time.Millisecond)
		checkout.RecordCancelled()
		payment.RecordInitiation("ok")
		payment.RecordGatewayCall("ok", time.Millisecond)
		outbox.SetBacklog(1, time.Now())
		httpm.Started()
		httpm.Finished("GET", "/api/cart", 200, time.Millisecond)
	})
}

func TestOutboxMetrics_SetBacklog(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetricsWithRegisterer(reg)

	m.SetBacklog(3, time.Now().Add(-time.Minute))

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, family := range families {
		if family.GetType() == dto.MetricType_GAUGE {
			values[family.GetName()] = family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	require.Equal(t, 3.0, values["shop_outbox_pending_records"])
	require.GreaterOrEqual(t, values["shop_outbox_oldest_pending_age_seconds"], 59.0)
}
