package blockchain

import (
	"sync"

	"github.com/horizenofficial/sctemplate/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusBlockchainHeight         prometheus.Gauge
	prometheusBlockchainFSMState       prometheus.Gauge
	prometheusBlockchainAddBlock       prometheus.Histogram
	prometheusBlockchainRejectedBlocks *prometheus.CounterVec
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusBlockchainHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sctemplate",
			Subsystem: "blockchain",
			Name:      "height",
			Help:      "Height of the best block",
		},
	)

	prometheusBlockchainFSMState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sctemplate",
			Subsystem: "blockchain",
			Name:      "fsm_state",
			Help:      "Current state of the chain state machine (0 idle, 1 running, 2 catching blocks)",
		},
	)

	prometheusBlockchainAddBlock = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sctemplate",
			Subsystem: "blockchain",
			Name:      "add_block",
			Help:      "Duration of accepting a block",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusBlockchainRejectedBlocks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sctemplate",
			Subsystem: "blockchain",
			Name:      "rejected_blocks",
			Help:      "Number of rejected blocks by error code",
		},
		[]string{"code"},
	)
}
