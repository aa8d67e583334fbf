package metrics

import "github.com/prometheus/client_golang/prometheus"

// IdempotencyMetrics — метрики очистки просроченных idempotency-ключей.
type IdempotencyMetrics struct {
	runs        *prometheus.CounterVec
	deleted     prometheus.Counter
	lastDeleted prometheus.Gauge
}

func NewIdempotencyMetrics() *IdempotencyMetrics {
	return NewIdempotencyMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewIdempotencyMetricsWithRegisterer(registerer prometheus.Registerer) *IdempotencyMetrics {
	return &IdempotencyMetrics{
		runs: counterVec(registerer, prometheus.CounterOpts{
			Name: "shop_idempotency_cleanup_runs_total",
			Help: "Total number of idempotency cleanup runs grouped by result.",
		}, "result"),
		deleted: counter(registerer, prometheus.CounterOpts{
			Name: "shop_idempotency_cleanup_deleted_total",
			Help: "Total number of deleted expired idempotency records.",
		}),
		lastDeleted: gauge(registerer, prometheus.GaugeOpts{
			Name: "shop_idempotency_cleanup_last_deleted",
			Help: "Number of deleted records during the last cleanup run.",
		}),
	}
}

func (m *IdempotencyMetrics) RecordRun(result string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
}

// RecordDeleted учитывает удалённую порцию.
func (m *IdempotencyMetrics) RecordDeleted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.deleted.Add(float64(n))
}

func (m *IdempotencyMetrics) SetLastDeleted(n int) {
	if m == nil {
		return
	}
	m.lastDeleted.Set(float64(n))
}
