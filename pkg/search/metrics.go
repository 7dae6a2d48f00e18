package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the root's own Prometheus instrumentation, adapted
// from the teacher's query_service.go / executor.go package-level
// promauto histogram family (queryPlanningTime, queryExecutionTime,
// aggregationMergeTime, shardQueryLatency) generalized from the
// shard/data-node domain to the split/leaf domain described by the
// query planner's phases.
//
// Unlike the teacher, which registers its metrics as package-level
// promauto vars (and so can only ever run one instance per process),
// Metrics is constructed per RootSearcher so tests can register
// independent collectors without colliding on the default registry.
type Metrics struct {
	LeafSearchDuration *prometheus.HistogramVec
	MergeDuration      *prometheus.HistogramVec
	FetchDocsDuration  *prometheus.HistogramVec
	SplitRetries       *prometheus.CounterVec
	FailedSplits       *prometheus.CounterVec
}

// NewMetrics builds a Metrics registered against reg, or against a
// fresh private registry (not the default registerer) if no non-nil
// reg is given.
func NewMetrics(regs ...prometheus.Registerer) *Metrics {
	var factory promauto.Factory
	if len(regs) > 0 && regs[0] != nil {
		factory = promauto.With(regs[0])
	} else {
		factory = promauto.With(prometheus.NewRegistry())
	}

	return &Metrics{
		LeafSearchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "quidditch",
				Subsystem: "root",
				Name:      "leaf_search_duration_seconds",
				Help:      "Leaf-search fan-out duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"index"},
		),
		MergeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "quidditch",
				Subsystem: "root",
				Name:      "merge_duration_seconds",
				Help:      "CPU-bound merge duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
			},
			[]string{"index"},
		),
		FetchDocsDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "quidditch",
				Subsystem: "root",
				Name:      "fetch_docs_duration_seconds",
				Help:      "Fetch-docs fan-out duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"index"},
		),
		SplitRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quidditch",
				Subsystem: "root",
				Name:      "split_retries_total",
				Help:      "Total number of split-scoped retries issued by ClusterClient",
			},
			[]string{"index", "reason"},
		),
		FailedSplits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quidditch",
				Subsystem: "root",
				Name:      "failed_splits_total",
				Help:      "Total number of splits that remained failed after retry",
			},
			[]string{"index"},
		),
	}
}
