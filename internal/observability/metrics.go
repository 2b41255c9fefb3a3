package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sweetshop"

// Collectors are registered once with the default registry.
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	httpErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total number of error responses by error code.",
		},
		[]string{"method", "route", "code"},
	)

	purchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_total",
			Help:      "Purchase attempts by result (ok, insufficient_stock, not_found, error).",
		},
		[]string{"result"},
	)

	unitsSoldTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "units_sold_total",
		Help:      "Units removed from stock by successful purchases.",
	})

	unitsRestockedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "units_restocked_total",
		Help:      "Units added to stock by restocks.",
	})

	notificationsQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notifications_queue_depth",
		Help:      "Notifications waiting to be delivered.",
	})

	notificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_dropped_total",
		Help:      "Notifications dropped because the queue was full.",
	})
)

// Metrics records service measurements. A nil *Metrics is a no-op.
type Metrics struct{}

// NewMetrics returns the metrics recorder.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	httpErrorsTotal.WithLabelValues(method, route, code).Inc()
}

// RecordPurchase counts a purchase attempt and, on success, the units sold.
func (m *Metrics) RecordPurchase(result string, units int64) {
	if m == nil {
		return
	}
	purchasesTotal.WithLabelValues(result).Inc()
	if units > 0 {
		unitsSoldTotal.Add(float64(units))
	}
}

// RecordRestock counts restocked units.
func (m *Metrics) RecordRestock(units int64) {
	if m == nil || units <= 0 {
		return
	}
	unitsRestockedTotal.Add(float64(units))
}

// SetNotificationQueueDepth reports the pending notification count.
func (m *Metrics) SetNotificationQueueDepth(depth int) {
	if m == nil {
		return
	}
	notificationsQueued.Set(float64(depth))
}

// RecordNotificationDropped counts a notification lost to a full queue.
func (m *Metrics) RecordNotificationDropped() {
	if m == nil {
		return
	}
	notificationsDropped.Inc()
}
