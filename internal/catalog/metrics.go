package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_catalog_cache_hits_total",
		Help: "Total number of market-catalog cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_catalog_cache_misses_total",
		Help: "Total number of market-catalog cache misses",
	})
)
