package poller

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values.
const (
	resultOK     = "ok"
	resultEmpty  = "empty"
	resultFailed = "failed"

	kindStatus  = "status"
	kindFailure = "failure"

	deliverySent       = "sent"
	deliveryFailed     = "failed"
	deliverySuppressed = "suppressed"
)

type metrics struct {
	cycles        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	apiLatency    prometheus.Histogram
	lastSuccess   prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		cycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hwbot",
			Name:      "cycles_total",
			Help:      "Total number of polling cycles by result.",
		}, []string{"result"}),
		notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hwbot",
			Name:      "notifications_total",
			Help:      "Total number of chat notifications by kind and delivery result.",
		}, []string{"kind", "result"}),
		apiLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hwbot",
			Name:      "status_api_latency_seconds",
			Help:      "Latency distribution for status API requests.",
			Buckets: []float64{
				0.05, 0.1, 0.2, 0.5,
				1, 2, 5, 10,
			},
		}),
		lastSuccess: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "hwbot",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last cycle that reached the status API successfully.",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
