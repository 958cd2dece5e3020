package rpc

import (
	"sync"

	"github.com/horizenofficial/sctemplate/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusRPCHealth   prometheus.Counter
	prometheusRPCRequests *prometheus.HistogramVec
	prometheusRPCErrors   *prometheus.CounterVec
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusRPCHealth = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sctemplate",
			Subsystem: "rpc",
			Name:      "health",
			Help:      "Number of calls to the health endpoint of the rpc service",
		},
	)

	prometheusRPCRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sctemplate",
			Subsystem: "rpc",
			Name:      "request",
			Help:      "Duration of JSON-RPC calls by method",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
		[]string{"method"},
	)

	prometheusRPCErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sctemplate",
			Subsystem: "rpc",
			Name:      "errors",
			Help:      "Number of JSON-RPC calls answered with an error, by method and code",
		},
		[]string{"method", "code"},
	)
}
