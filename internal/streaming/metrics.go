package streaming

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_stream_connected",
		Help: "1 if the streaming connection is currently established, 0 otherwise",
	})

	reconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_stream_reconnect_attempts_total",
		Help: "Total number of streaming reconnection attempts",
	})

	messagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalshi_arb_stream_messages_received_total",
			Help: "Total number of streaming messages received, by type",
		},
		[]string{"type"},
	)

	subscribedMarkets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_stream_subscribed_markets",
		Help: "Number of markets currently subscribed on the stream",
	})
)
