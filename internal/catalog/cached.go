package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/pkg/cache"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

const eventCacheTTL = 24 * time.Hour

// Cached wraps Client with a ristretto-backed cache of per-event market
// metadata, refreshed on TTL expiry rather than on every scan tick.
type Cached struct {
	client *Client
	cache  cache.Cache
	logger *zap.Logger
}

// NewCached wraps client with c.
func NewCached(client *Client, c cache.Cache, logger *zap.Logger) *Cached {
	return &Cached{client: client, cache: c, logger: logger}
}

// MarketsByEvent returns the cached market set for eventTicker, fetching and
// populating the cache on a miss.
func (c *Cached) MarketsByEvent(ctx context.Context, eventTicker string) ([]types.Market, error) {
	key := "event:" + eventTicker

	if v, ok := c.cache.Get(key); ok {
		cacheHits.Inc()
		return v.([]types.Market), nil
	}
	cacheMisses.Inc()

	markets, err := c.client.FetchMarketsByEvent(ctx, eventTicker)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, markets, eventCacheTTL)
	return markets, nil
}

// Invalidate removes the cached market set for eventTicker, e.g. after a
// watch_event resubscription detects stale state.
func (c *Cached) Invalidate(eventTicker string) {
	c.cache.Delete("event:" + eventTicker)
}

// FetchOrderbookSnapshot delegates to the uncached client; order-book depth
// is never cached since it is seeding data consumed once at watch time.
func (c *Cached) FetchOrderbookSnapshot(ctx context.Context, ticker string, depth int) ([]types.Level, []types.Level, error) {
	return c.client.FetchOrderbookSnapshot(ctx, ticker, depth)
}
