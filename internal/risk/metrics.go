package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	breakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_circuit_breaker_state",
		Help: "Circuit breaker state: 0=closed, 1=half_open, 2=open",
	})

	breakerTripsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_circuit_breaker_trips_total",
		Help: "Total number of times the circuit breaker has tripped",
	})

	breakerDailyLossCents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_circuit_breaker_daily_loss_cents",
		Help: "Accumulated daily loss in cents",
	})

	breakerConsecutiveLosses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_circuit_breaker_consecutive_losses",
		Help: "Current consecutive loss count",
	})

	breakerExposureCents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_circuit_breaker_exposure_cents",
		Help: "Last-recorded total exposure in cents",
	})
)
