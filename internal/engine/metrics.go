package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var totalPnLCents = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "kalshi_arb_total_pnl_cents",
	Help: "Lifetime FIFO-matched realized profit minus fees, in cents",
})
