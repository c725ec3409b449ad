package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// метрики леджера

var (
	pointsGranted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_points_granted_total",
			Help: "Points granted by payer",
		},
		[]string{"payer"},
	)

	pointsAdjusted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_points_adjusted_total",
			Help: "Points debited by backdated adjustments",
		},
		[]string{"payer"},
	)

	pointsSpent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_points_spent_total",
			Help: "Points drawn by spends, attributed to payer",
		},
		[]string{"payer"},
	)

	allocationRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_allocation_rejected_total",
			Help: "Allocations rejected for insufficient points",
		},
		[]string{"operation"},
	)

	consistencyErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_consistency_errors_total",
			Help: "Broken ledger invariants observed",
		},
	)
)
