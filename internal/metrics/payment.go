package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Исходы обработки уведомления провайдера.
const (
	ConfirmCompleted        = "completed"
	ConfirmFailed           = "failed"
	ConfirmDuplicate        = "duplicate"
	ConfirmInvalidSignature = "invalid_signature"
	ConfirmRejected         = "rejected"
)

// PaymentMetrics — метрики платёжного адаптера.
type PaymentMetrics struct {
	initiations   *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	cancellations *prometheus.CounterVec
	gateway       *prometheus.HistogramVec
}

func NewPaymentMetrics() *PaymentMetrics {
	return NewPaymentMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewPaymentMetricsWithRegisterer(registerer prometheus.Registerer) *PaymentMetrics {
	return &PaymentMetrics{
		initiations: counterVec(registerer, prometheus.CounterOpts{
			Name: "shop_payment_initiations_total",
			Help: "Wallet payment initiations grouped by result code.",
		}, "result"),
		confirmations: counterVec(registerer, prometheus.CounterOpts{
			Name: "shop_payment_confirmations_total",
			Help: "Provider notifications grouped by outcome.",
		}, "outcome"),
		cancellations: counterVec(registerer, prometheus.CounterOpts{
			Name: "shop_payment_cancellations_total",
			Help: "Payment cancellations grouped by outcome.",
		}, "outcome"),
		gateway: histogramVec(registerer, prometheus.HistogramOpts{
			Name:    "shop_payment_gateway_request_duration_seconds",
			Help:    "Latency of payment provider calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, "result"),
	}
}

func (m *PaymentMetrics) RecordInitiation(result string) {
	if m == nil {
		return
	}
	m.initiations.WithLabelValues(result).Inc()
}

func (m *PaymentMetrics) RecordConfirmation(outcome string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(outcome).Inc()
}

func (m *PaymentMetrics) RecordCancellation(outcome string) {
	if m == nil {
		return
	}
	m.cancellations.WithLabelValues(outcome).Inc()
}

// RecordGatewayCall фиксирует длительность вызова провайдера; result — "ok" или "error".
func (m *PaymentMetrics) RecordGatewayCall(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.gateway.WithLabelValues(result).Observe(duration.Seconds())
}
