package engine

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mselser95/kalshi-arb/internal/risk"
	"github.com/mselser95/kalshi-arb/pkg/config"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

// testVenue is a minimal fake of the REST surface the engine talks to:
// markets, orderbooks, balance/positions/fills, and order placement.
type testVenue struct {
	mux *http.ServeMux

	yesLevels []types.Level
	noLevels  []types.Level
}

func newTestVenue(t *testing.T) (*httptest.Server, *testVenue) {
	t.Helper()

	v := &testVenue{mux: http.NewServeMux()}

	v.mux.HandleFunc("/markets", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"markets": []map[string]any{
				{"ticker": "EVENT-A", "event_ticker": "EVENT", "status": "open", "yes_bid": 40, "no_bid": 55},
				{"ticker": "EVENT-B", "event_ticker": "EVENT", "status": "open", "yes_bid": 10, "no_bid": 85},
			},
		})
	})

	v.mux.HandleFunc("/markets/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"orderbook": map[string]any{
				"yes": levelsToPairs(v.yesLevels),
				"no":  levelsToPairs(v.noLevels),
			},
		})
	})

	v.mux.HandleFunc("/portfolio/balance", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"balance": 100000})
	})
	v.mux.HandleFunc("/portfolio/positions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"market_positions": []any{}})
	})
	v.mux.HandleFunc("/portfolio/fills", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"fills": []any{}})
	})
	v.mux.HandleFunc("/portfolio/orders", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Ticker string `json:"ticker"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"order": map[string]any{
				"order_id":        "venue-" + req.Ticker,
				"status":          string(types.OrderStatusExecuted),
				"remaining_count": 0,
			},
		})
	})

	srv := httptest.NewServer(v.mux)
	t.Cleanup(srv.Close)
	return srv, v
}

func levelsToPairs(levels []types.Level) [][2]int {
	pairs := make([][2]int, 0, len(levels))
	for _, l := range levels {
		pairs = append(pairs, [2]int{l.Price, l.Quantity})
	}
	return pairs
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der := x509.MarshalPKCS1PrivateKey(key)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})

	keyPath := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(keyPath, pemBytes, 0o600))

	return &config.Config{
		LogLevel:             "error",
		MetricsPort:          "0",
		APIKeyID:             "test-key",
		PrivateKeyPath:       keyPath,
		Environment:          "development",
		BaseURL:              baseURL,
		WebSocketURL:         "ws://127.0.0.1:0",
		ReadRateLimit:        1000,
		WriteRateLimit:       1000,
		MinProfitCents:       1,
		MinPriceDiffCents:    1,
		TakerFeeRate:         0.0,
		ParallelLegs:         true,
		MaxConcurrentGroups:  2,
		MaxPositionPerMarket: 1000,
		MaxExposureCents:     1000000,
		MaxDailyLossCents:    1000000,
		MaxConsecutiveLosses: 100,
		CooldownSeconds:      60,
	}
}

func newTestEngine(t *testing.T, baseURL string) *Engine {
	t.Helper()
	cfg := testConfig(t, baseURL)
	e, err := New(cfg, zaptest.NewLogger(t), Options{})
	require.NoError(t, err)
	return e
}

func TestNew_WiresAllComponents(t *testing.T) {
	srv, _ := newTestVenue(t)
	e := newTestEngine(t, srv.URL)

	require.NotNil(t, e.rest)
	require.NotNil(t, e.books)
	require.NotNil(t, e.stream)
	require.NotNil(t, e.catalog)
	require.NotNil(t, e.detector)
	require.NotNil(t, e.ledger)
	require.NotNil(t, e.breaker)
	require.NotNil(t, e.gate)
	require.NotNil(t, e.executor)
	require.NotNil(t, e.alerts)
	require.Nil(t, e.storage)
	require.Empty(t, e.watchedTickers())
}

func TestNew_SeedsWatchedEventsFromOptions(t *testing.T) {
	srv, _ := newTestVenue(t)
	cfg := testConfig(t, srv.URL)
	e, err := New(cfg, zaptest.NewLogger(t), Options{EventTickers: []string{"EVENT", "EVENT"}})
	require.NoError(t, err)
	require.Equal(t, []string{"EVENT"}, e.watchedTickers())
}

func TestWatchEvent_SeedsBookStoreAndTracksTicker(t *testing.T) {
	srv, venue := newTestVenue(t)
	venue.yesLevels = []types.Level{{Price: 40, Quantity: 10}}
	venue.noLevels = []types.Level{{Price: 55, Quantity: 10}}

	e := newTestEngine(t, srv.URL)

	require.NoError(t, e.WatchEvent(context.Background(), "EVENT"))
	require.Equal(t, []string{"EVENT"}, e.watchedTickers())

	b, ok := e.books.Get("EVENT-A")
	require.True(t, ok)
	require.Equal(t, 40, b.BestYesBid().Price)
}

func TestUnwatchEvent_RemovesTicker(t *testing.T) {
	srv, _ := newTestVenue(t)
	e := newTestEngine(t, srv.URL)

	require.NoError(t, e.WatchEvent(context.Background(), "EVENT"))
	require.NoError(t, e.UnwatchEvent(context.Background(), "EVENT"))
	require.Empty(t, e.watchedTickers())
}

func TestBookSnapshot_SkipsUnseenMarkets(t *testing.T) {
	srv, _ := newTestVenue(t)
	e := newTestEngine(t, srv.URL)

	e.books.InstallSnapshot("EVENT-A", []types.Level{{Price: 40, Quantity: 5}}, nil)

	snap := e.bookSnapshot([]types.Market{
		{Ticker: "EVENT-A", EventTicker: "EVENT"},
		{Ticker: "EVENT-B", EventTicker: "EVENT"},
	})

	require.Len(t, snap, 1)
	_, ok := snap["EVENT-B"]
	require.False(t, ok)
}

func TestScanForOpportunities_ExecutesViableOpportunity(t *testing.T) {
	srv, venue := newTestVenue(t)
	venue.yesLevels = []types.Level{{Price: 40, Quantity: 10}}
	venue.noLevels = []types.Level{{Price: 55, Quantity: 10}}

	e := newTestEngine(t, srv.URL)
	require.NoError(t, e.WatchEvent(context.Background(), "EVENT"))
	e.ctx = context.Background()

	e.scanForOpportunities()
}

func TestHandleOpportunity_SkippedWhenBreakerOpen(t *testing.T) {
	srv, _ := newTestVenue(t)
	e := newTestEngine(t, srv.URL)
	e.ctx = context.Background()

	e.breaker.RecordTradeResult(-e.cfg.MaxDailyLossCents, 0)
	require.Equal(t, risk.BreakerOpen, e.breaker.State())

	opp := types.Opportunity{
		ID:          "opp-1",
		Type:        types.OpportunityMultiOutcome,
		EventTicker: "EVENT",
		Legs: []types.Leg{
			{Ticker: "EVENT-A", Side: types.SideYes, Action: types.ActionBuy, Price: 40, Quantity: 1},
		},
		MaxQuantity: 5,
	}

	e.handleOpportunity(opp, map[string]types.OrderBook{})
}
