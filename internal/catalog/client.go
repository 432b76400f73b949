// Package catalog fetches and caches market/event metadata from the venue,
// and exposes the REST order-book snapshot used to seed the Book Store.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mselser95/kalshi-arb/internal/transport"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

// Client is the raw, uncached REST view of markets and events.
type Client struct {
	rest *transport.Client
}

// NewClient wraps a signed transport.Client.
func NewClient(rest *transport.Client) *Client {
	return &Client{rest: rest}
}

type marketDTO struct {
	Ticker         string  `json:"ticker"`
	EventTicker    string  `json:"event_ticker"`
	Status         string  `json:"status"`
	ExpirationTime *string `json:"expiration_time,omitempty"`
	YesBid         int     `json:"yes_bid"`
	NoBid          int     `json:"no_bid"`
}

type marketsResponse struct {
	Markets []marketDTO `json:"markets"`
	Cursor  string      `json:"cursor"`
}

type eventResponse struct {
	EventTicker string      `json:"event_ticker"`
	Title       string      `json:"title"`
	Markets     []marketDTO `json:"markets"`
}

// FetchMarketsByEvent returns every market belonging to eventTicker.
func (c *Client) FetchMarketsByEvent(ctx context.Context, eventTicker string) ([]types.Market, error) {
	path := "/markets?" + url.Values{"event_ticker": {eventTicker}}.Encode()

	var resp marketsResponse
	if err := c.rest.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetch markets for event %s: %w", eventTicker, err)
	}

	return dtosToMarkets(resp.Markets), nil
}

// FetchEvent returns the event and its child markets.
func (c *Client) FetchEvent(ctx context.Context, eventTicker string) (types.Event, error) {
	var resp eventResponse
	if err := c.rest.Get(ctx, "/events/"+eventTicker, &resp); err != nil {
		return types.Event{}, fmt.Errorf("fetch event %s: %w", eventTicker, err)
	}

	return types.Event{
		Ticker:  resp.EventTicker,
		Title:   resp.Title,
		Markets: dtosToMarkets(resp.Markets),
	}, nil
}

// FetchMarket returns a single market by ticker.
func (c *Client) FetchMarket(ctx context.Context, ticker string) (types.Market, error) {
	var resp struct {
		Market marketDTO `json:"market"`
	}
	if err := c.rest.Get(ctx, "/markets/"+ticker, &resp); err != nil {
		return types.Market{}, fmt.Errorf("fetch market %s: %w", ticker, err)
	}

	return dtoToMarket(resp.Market), nil
}

type orderbookResponse struct {
	Orderbook struct {
		Yes [][2]int `json:"yes"`
		No  [][2]int `json:"no"`
	} `json:"orderbook"`
}

// FetchOrderbookSnapshot fetches the current bid ladders for ticker at the
// given depth, used to seed the Book Store before streaming deltas arrive.
func (c *Client) FetchOrderbookSnapshot(ctx context.Context, ticker string, depth int) (yes, no []types.Level, err error) {
	path := fmt.Sprintf("/markets/%s/orderbook?depth=%s", ticker, strconv.Itoa(depth))

	var resp orderbookResponse
	if err := c.rest.Get(ctx, path, &resp); err != nil {
		return nil, nil, fmt.Errorf("fetch orderbook for %s: %w", ticker, err)
	}

	return pairsToLevels(resp.Orderbook.Yes), pairsToLevels(resp.Orderbook.No), nil
}

func pairsToLevels(pairs [][2]int) []types.Level {
	levels := make([]types.Level, 0, len(pairs))
	for _, p := range pairs {
		levels = append(levels, types.Level{Price: p[0], Quantity: p[1]})
	}
	return levels
}

func dtosToMarkets(dtos []marketDTO) []types.Market {
	markets := make([]types.Market, 0, len(dtos))
	for _, d := range dtos {
		markets = append(markets, dtoToMarket(d))
	}
	return markets
}

func dtoToMarket(d marketDTO) types.Market {
	m := types.Market{
		Ticker:      d.Ticker,
		EventTicker: d.EventTicker,
		Status:      types.MarketStatus(d.Status),
		YesBid:      d.YesBid,
		NoBid:       d.NoBid,
	}
	if d.ExpirationTime != nil {
		if t, err := parseTime(*d.ExpirationTime); err == nil {
			m.ExpirationTime = &t
		}
	}
	return m
}
