package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Источники заказа.
const (
	SourceCart   = "cart"
	SourceBuyNow = "buy_now"
)

// CheckoutMetrics — метрики оформления и жизненного цикла заказов.
type CheckoutMetrics struct {
	orders          *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	stockRejections prometheus.Counter
	cancelled       prometheus.Counter
	statusOverrides prometheus.Counter
	outboxEvents    prometheus.Counter
	timelineEvents  prometheus.Counter
}

// NewCheckoutMetrics регистрирует метрики в DefaultRegisterer.
func NewCheckoutMetrics() *CheckoutMetrics {
	return NewCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCheckoutMetricsWithRegisterer регистрирует метрики в переданном реестре.
func NewCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	return &CheckoutMetrics{
		orders: counterVec(registerer, prometheus.CounterOpts{
			Name: "shop_checkout_orders_total",
			Help: "Checkout attempts grouped by order source and result code.",
		}, "source", "result"),
		duration: histogramVec(registerer, prometheus.HistogramOpts{
			Name:    "shop_checkout_duration_seconds",
			Help:    "Duration of the checkout transaction in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, "source"),
		stockRejections: counter(registerer, prometheus.CounterOpts{
			Name: "shop_checkout_stock_rejections_total",
			Help: "Checkouts rejected because requested quantity exceeded stock.",
		}),
		cancelled: counter(registerer, prometheus.CounterOpts{
			Name: "shop_orders_cancelled_total",
			Help: "Orders cancelled by their owners.",
		}),
		statusOverrides: counter(registerer, prometheus.CounterOpts{
			Name: "shop_orders_status_overrides_total",
			Help: "Order statuses changed by administrators.",
		}),
		outboxEvents: counter(registerer, prometheus.CounterOpts{
			Name: "shop_outbox_events_enqueued_total",
			Help: "Events written to the transactional outbox.",
		}),
		timelineEvents: counter(registerer, prometheus.CounterOpts{
			Name: "shop_timeline_events_total",
			Help: "Order timeline events recorded.",
		}),
	}
}

// RecordCheckout фиксирует исход оформления: result — "created" или код ошибки.
func (m *CheckoutMetrics) RecordCheckout(source, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(source, result).Inc()
	m.duration.WithLabelValues(source).Observe(duration.Seconds())
}

func (m *CheckoutMetrics) RecordStockRejection() {
	if m == nil {
		return
	}
	m.stockRejections.Inc()
}

func (m *CheckoutMetrics) RecordCancelled() {
	if m == nil {
		return
	}
	m.cancelled.Inc()
}

func (m *CheckoutMetrics) RecordStatusOverride() {
	if m == nil {
		return
	}
	m.statusOverrides.Inc()
}

// RecordEvents учитывает записи outbox и timeline одной операции.
func (m *CheckoutMetrics) RecordEvents(outbox, timeline int) {
	if m == nil {
		return
	}
	m.outboxEvents.Add(float64(outbox))
	m.timelineEvents.Add(float64(timeline))
}
