package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerBalanceCents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_balance_cents",
		Help: "Last-synced account balance in cents",
	})

	ledgerExposureCents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_exposure_cents",
		Help: "Total exposure across all cached positions, in cents",
	})

	ledgerPositionsCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_positions_count",
		Help: "Number of positions currently held",
	})
)
