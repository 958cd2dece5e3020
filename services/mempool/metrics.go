package mempool

import (
	"sync"

	"github.com/horizenofficial/sctemplate/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusMempoolTransactions prometheus.Gauge
	prometheusMempoolCertificates prometheus.Gauge
	prometheusMempoolRejected     *prometheus.CounterVec
	prometheusMempoolSnapshot     prometheus.Histogram
	prometheusMempoolEvictedCerts prometheus.Counter
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusMempoolTransactions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sctemplate",
			Subsystem: "mempool",
			Name:      "transactions",
			Help:      "Number of pending transactions",
		},
	)

	prometheusMempoolCertificates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sctemplate",
			Subsystem: "mempool",
			Name:      "certificates",
			Help:      "Number of pending certificates",
		},
	)

	prometheusMempoolRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sctemplate",
			Subsystem: "mempool",
			Name:      "rejected",
			Help:      "Number of rejected transactions and certificates by error code",
		},
		[]string{"kind", "code"},
	)

	prometheusMempoolSnapshot = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sctemplate",
			Subsystem: "mempool",
			Name:      "snapshot",
			Help:      "Duration of taking a pool snapshot",
			Buckets:   util.MetricsBucketsMicroSeconds,
		},
	)

	prometheusMempoolEvictedCerts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sctemplate",
			Subsystem: "mempool",
			Name:      "evicted_certificates",
			Help:      "Number of pending certificates superseded by a mined certificate",
		},
	)
}
