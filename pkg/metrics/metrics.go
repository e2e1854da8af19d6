// Package metrics 注册 Prometheus 指标：HTTP 请求与互动领域计数
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blog"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	toggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "engagement_toggles_total",
		Help:      "Membership toggles by relation and resulting state.",
	}, []string{"relation", "state"})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_created_total",
		Help:      "Notifications created by kind.",
	}, []string{"kind"})

	outboxEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_total",
		Help:      "Outbox events handled by the relay, by result.",
	}, []string{"result"})

	outboxLag = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "outbox_delivery_lag_seconds",
		Help:      "Delay between outbox write and delivery.",
		Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 60},
	})
)

// ObserveHTTP 记录一次请求
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func Toggle(relation, state string) { toggles.WithLabelValues(relation, state).Inc() }

func NotificationCreated(kind string) { notifications.WithLabelValues(kind).Inc() }

// OutboxDelivered records a successful relay batch item and its lag.
func OutboxDelivered(lag time.Duration) {
	outboxEvents.WithLabelValues("delivered").Inc()
	outboxLag.Observe(lag.Seconds())
}

func OutboxFailed(n int) { outboxEvents.WithLabelValues("failed").Add(float64(n)) }

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }
