package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermanager_orders_created_total",
		Help: "Total number of orders successfully created.",
	})

	OrdersSkippedDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermanager_orders_skipped_duplicate_total",
		Help: "Total number of synced orders skipped because the external id was already stored.",
	})

	SequenceConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermanager_sequence_conflicts_total",
		Help: "Total number of custom id uniqueness conflicts that triggered a re-derivation.",
	})

	SyncRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermanager_sync_runs_total",
		Help: "Total number of marketplace synchronization runs started.",
	})

	SyncRunsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordermanager_sync_runs_skipped_total",
		Help: "Total number of synchronization ticks skipped because a run was still in progress.",
	})

	SyncErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordermanager_sync_errors_total",
		Help: "Total number of errors encountered during synchronization, by stage.",
	},
		[]string{"stage"},
	)
)
