package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics — метрики публичного HTTP API.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func NewHTTPMetrics() *HTTPMetrics {
	return NewHTTPMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewHTTPMetricsWithRegisterer(registerer prometheus.Registerer) *HTTPMetrics {
	return &HTTPMetrics{
		requests: counterVec(registerer, prometheus.CounterOpts{
			Name: "shop_http_requests_total",
			Help: "HTTP requests grouped by method, route pattern and status.",
		}, "method", "route", "status"),
		duration: histogramVec(registerer, prometheus.HistogramOpts{
			Name:    "shop_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, "method", "route"),
		inFlight: gauge(registerer, prometheus.GaugeOpts{
			Name: "shop_http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
	}
}

func (m *HTTPMetrics) Started() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// Finished фиксирует завершённый запрос; route — шаблон маршрута, не сырой путь.
func (m *HTTPMetrics) Finished(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}
