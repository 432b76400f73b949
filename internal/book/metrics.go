package book

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updateProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kalshi_arb_book_update_processing_duration_seconds",
		Help:    "Time to apply one order-book mutation",
		Buckets: prometheus.DefBuckets,
	})

	updatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalshi_arb_book_updates_total",
			Help: "Total number of order-book mutations applied, by kind",
		},
		[]string{"kind"},
	)

	updatesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalshi_arb_book_updates_dropped_total",
			Help: "Total number of order-book updates dropped, by reason",
		},
		[]string{"reason"},
	)

	snapshotsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_book_snapshots_tracked",
		Help: "Number of distinct tickers currently tracked by the book store",
	})
)
