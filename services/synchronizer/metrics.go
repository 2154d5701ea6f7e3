package synchronizer

import (
	"sync"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusSynchronizerRun        *prometheus.HistogramVec
	prometheusSynchronizerActive     prometheus.Gauge
	prometheusSynchronizerOutcomes   *prometheus.CounterVec
	prometheusSynchronizerPenalties  *prometheus.CounterVec
	prometheusSynchronizerRestarts   *prometheus.CounterVec
	prometheusSynchronizerApplied    prometheus.Counter
	prometheusSynchronizerReverted   prometheus.Counter
	prometheusSynchronizerRestored   prometheus.Counter
	prometheusSynchronizerPeerErrors *prometheus.CounterVec
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusSynchronizerRun = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chainsync",
			Subsystem: "synchronizer",
			Name:      "run",
			Help:      "Duration of synchronization runs per mechanism",
			Buckets:   util.MetricsBucketsSeconds,
		},
		[]string{"mechanism"},
	)

	prometheusSynchronizerActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chainsync",
			Subsystem: "synchronizer",
			Name:      "active",
			Help:      "Number of synchronization mechanisms currently running",
		},
	)

	prometheusSynchronizerOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chainsync",
			Subsystem: "synchronizer",
			Name:      "outcomes",
			Help:      "Number of synchronization outcomes per mechanism and outcome",
		},
		[]string{"mechanism", "outcome"},
	)

	prometheusSynchronizerPenalties = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chainsync",
			Subsystem: "synchronizer",
			Name:      "penalties",
			Help:      "Number of penalties applied on peers",
		},
		[]string{"mechanism"},
	)

	prometheusSynchronizerRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chainsync",
			Subsystem: "synchronizer",
			Name:      "restarts",
			Help:      "Number of synchronization restarts requested",
		},
		[]string{"mechanism"},
	)

	prometheusSynchronizerApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chainsync",
			Subsystem: "synchronizer",
			Name:      "blocks_applied",
			Help:      "Number of blocks applied while synchronizing",
		},
	)

	prometheusSynchronizerReverted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chainsync",
			Subsystem: "synchronizer",
			Name:      "blocks_reverted",
			Help:      "Number of blocks deleted from the tip while synchronizing",
		},
	)

	prometheusSynchronizerRestored = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chainsync",
			Subsystem: "synchronizer",
			Name:      "blocks_restored",
			Help:      "Number of blocks restored from the temp block area",
		},
	)

	prometheusSynchronizerPeerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chainsync",
			Subsystem: "synchronizer",
			Name:      "peer_request_errors",
			Help:      "Number of failed or empty peer requests per procedure and error category",
		},
		[]string{"procedure", "category"},
	)
}

// observePeerError counts a failed peer request, err is nil for an empty response.
func observePeerError(procedure string, err error) {
	prometheusSynchronizerPeerErrors.WithLabelValues(procedure, errors.GetErrorCategory(err)).Inc()
}
