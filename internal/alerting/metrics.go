package alerting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	alertsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_alerts_sent_total",
		Help: "Total webhook alert delivery attempts",
	})

	alertDeliveryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_arb_alert_delivery_failures_total",
		Help: "Webhook alert delivery failures by destination",
	}, []string{"destination"})
)
