package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

var opportunitiesDetectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kalshi_arb_opportunities_detected_total",
		Help: "Total number of arbitrage opportunities detected, by strategy type",
	},
	[]string{"type"},
)

var opportunityProfitCents = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "kalshi_arb_opportunity_profit_cents",
	Help:    "Distribution of net_profit_cents across detected opportunities",
	Buckets: prometheus.LinearBuckets(0, 5, 20),
})

// RecordDetected updates detection metrics for a batch of opportunities.
func RecordDetected(opps []types.Opportunity) {
	for _, o := range opps {
		opportunitiesDetectedTotal.WithLabelValues(string(o.Type)).Inc()
		opportunityProfitCents.Observe(float64(o.NetProfit))
	}
}
