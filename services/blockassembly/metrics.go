package blockassembly

import (
	"sync"

	"github.com/horizenofficial/sctemplate/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// in Server
	prometheusBlockAssemblyHealth      prometheus.Counter
	prometheusBlockAssemblySubmitBlock prometheus.Histogram

	// in BlockAssembler
	prometheusBlockAssemblerGetTemplate       prometheus.Histogram
	prometheusBlockAssemblerCacheHit          prometheus.Counter
	prometheusBlockAssemblerCacheUnchanged    prometheus.Counter
	prometheusBlockAssemblerRebuild           prometheus.Histogram
	prometheusBlockAssemblerRebuildFailed     prometheus.Counter
	prometheusBlockAssemblerStaleServed       prometheus.Counter
	prometheusBlockAssemblerComputeRoots      prometheus.Histogram
	prometheusBlockAssemblerTransactions      prometheus.Gauge
	prometheusBlockAssemblerCertificates      prometheus.Gauge
	prometheusBlockAssemblyCurrentBlockHeight prometheus.Gauge
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusBlockAssemblyHealth = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sctemplate",
			Subsystem: "blockassembly",
			Name:      "health",
			Help:      "Number of calls to the health endpoint of the blockassembly service",
		},
	)

	prometheusBlockAssemblySubmitBlock = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sctemplate",
			Subsystem: "blockassembly",
			Name:      "submit_block",
			Help:      "Duration of submitting a mined block",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusBlockAssemblerGetTemplate = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sctemplate",
			Subsystem: "blockassembler",
			Name:      "get_template",
			Help:      "Duration of serving a block template",
			Buckets:   util.MetricsBucketsMicroSeconds,
		},
	)

	prometheusBlockAssemblerCacheHit = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sctemplate",
			Subsystem: "blockassembler",
			Name:      "cache_hit",
			Help:      "Number of templates served from the cache",
		},
	)

	prometheusBlockAssemblerCacheUnchanged = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sctemplate",
			Subsystem: "blockassembler",
			Name:      "cache_unchanged",
			Help:      "Number of expired templates served because the pool did not change",
		},
	)

	prometheusBlockAssemblerRebuild = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sctemplate",
			Subsystem: "blockassembler",
			Name:      "rebuild",
			Help:      "Duration of rebuilding a block template",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusBlockAssemblerRebuildFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sctemplate",
			Subsystem: "blockassembler",
			Name:      "rebuild_failed",
			Help:      "Number of failed template rebuilds",
		},
	)

	prometheusBlockAssemblerStaleServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sctemplate",
			Subsystem: "blockassembler",
			Name:      "stale_served",
			Help:      "Number of times the last good template was served after a failed rebuild",
		},
	)

	prometheusBlockAssemblerComputeRoots = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sctemplate",
			Subsystem: "blockassembler",
			Name:      "compute_roots",
			Help:      "Duration of computing the commitment roots of a template",
			Buckets:   util.MetricsBucketsMicroSeconds,
		},
	)

	prometheusBlockAssemblerTransactions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sctemplate",
			Subsystem: "blockassembler",
			Name:      "transactions",
			Help:      "Number of transactions in the cached template",
		},
	)

	prometheusBlockAssemblerCertificates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sctemplate",
			Subsystem: "blockassembler",
			Name:      "certificates",
			Help:      "Number of certificates in the cached template",
		},
	)

	prometheusBlockAssemblyCurrentBlockHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sctemplate",
			Subsystem: "blockassembly",
			Name:      "current_block_height",
			Help:      "Height of the block the cached template builds",
		},
	)
}
