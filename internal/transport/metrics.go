package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalshi_arb_api_requests_total",
			Help: "Total REST requests issued to the venue, by method, endpoint, and resulting status class",
		},
		[]string{"method", "endpoint", "status"},
	)

	apiLatencyMs = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kalshi_arb_api_latency_ms",
			Help:    "REST request latency in milliseconds, by method",
			Buckets: prometheus.ExponentialBuckets(5, 2, 12),
		},
		[]string{"method"},
	)
)
