package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	groupsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_execution_groups_submitted_total",
		Help: "Total order groups submitted",
	})

	groupsByStatus = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_arb_execution_groups_total",
		Help: "Order groups by terminal status",
	}, []string{"status"})

	legsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_execution_legs_submitted_total",
		Help: "Total individual leg orders submitted",
	})

	legErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_execution_leg_errors_total",
		Help: "Total leg submission errors",
	})

	realizedProfitCents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_execution_realized_profit_cents_total",
		Help: "Cumulative realized profit in cents across completed groups",
	})

	executionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kalshi_arb_execution_duration_seconds",
		Help:    "Wall-clock time to submit and resolve one order group",
		Buckets: prometheus.DefBuckets,
	})

	rejectedByBreakerTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_execution_rejected_breaker_total",
		Help: "Order groups rejected because the circuit breaker denied trading",
	})

	rejectedByExposureTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_execution_rejected_exposure_total",
		Help: "Order groups rejected by the exposure gate",
	})
)
