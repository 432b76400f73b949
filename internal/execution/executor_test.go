package execution

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mselser95/kalshi-arb/internal/auth"
	"github.com/mselser95/kalshi-arb/internal/ratelimit"
	"github.com/mselser95/kalshi-arb/internal/transport"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

func newTestExecutor(t *testing.T, cfg Config, handler http.HandlerFunc) *Executor {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der := x509.MarshalPKCS1PrivateKey(key)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})

	signer, err := auth.NewSigner("key-id", pemBytes)
	require.NoError(t, err)

	rest := transport.New(srv.URL, signer, ratelimit.NewDual(1000, 1000), zaptest.NewLogger(t))
	return New(rest, nil, nil, cfg, zaptest.NewLogger(t))
}

func testOpportunity() types.Opportunity {
	return types.Opportunity{
		ID:          "opp-1",
		Type:        types.OpportunityMultiOutcome,
		EventTicker: "EVENT",
		Legs: []types.Leg{
			{Ticker: "A", Side: types.SideYes, Action: types.ActionBuy, Price: 40, Quantity: 1},
			{Ticker: "B", Side: types.SideYes, Action: types.ActionBuy, Price: 45, Quantity: 1},
		},
		TotalCost:   85,
		NetProfit:   10,
		MaxQuantity: 5,
	}
}

func TestExecutor_ExecuteAllFilled(t *testing.T) {
	e := newTestExecutor(t, Config{ParallelLegs: true, MaxConcurrentGroups: 2}, func(w http.ResponseWriter, r *http.Request) {
		var req orderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"order": map[string]any{
				"order_id":        "venue-" + req.Ticker,
				"status":          string(types.OrderStatusExecuted),
				"remaining_count": 0,
			},
		})
	})

	group, err := e.Execute(context.Background(), testOpportunity(), 2)
	require.NoError(t, err)
	require.Equal(t, types.OrderGroupComplete, group.Status)
	require.Len(t, group.Orders, 2)
	for _, o := range group.Orders {
		require.Equal(t, types.OrderStatusExecuted, o.Status)
		require.Equal(t, 2, o.Filled())
	}
}

func TestExecutor_ExecutePartialFillCancelsResting(t *testing.T) {
	var canceled []string

	e := newTestExecutor(t, Config{ParallelLegs: false}, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			canceled = append(canceled, r.URL.Path)
			w.WriteHeader(http.StatusOK)
			return
		}

		var req orderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.Ticker == "A" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"order": map[string]any{"order_id": "venue-A", "status": string(types.OrderStatusExecuted), "remaining_count": 0},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"order": map[string]any{"order_id": "venue-B", "status": string(types.OrderStatusResting), "remaining_count": 2},
		})
	})

	group, err := e.Execute(context.Background(), testOpportunity(), 2)
	require.NoError(t, err)
	require.Equal(t, types.OrderGroupPartial, group.Status)
	require.Equal(t, []string{"/portfolio/orders/venue-B"}, canceled)
}

func TestBreakerCharge_CompleteUsesRealizedProfit(t *testing.T) {
	opp := testOpportunity()
	group := types.OrderGroup{Status: types.OrderGroupComplete}

	got := breakerCharge(opp, group, 42)
	require.Equal(t, 42, got)
}

func TestBreakerCharge_PartialChargesWorstCaseTotalCost(t *testing.T) {
	opp := testOpportunity()
	group := types.OrderGroup{Status: types.OrderGroupPartial}

	// This partial group's realized profit is 0 (no leg has a fill), but the
	// breaker must still be charged -total_cost, not 0.
	got := breakerCharge(opp, group, 0)
	require.Equal(t, -opp.TotalCost, got)
}

func TestBreakerCharge_FailedChargesWorstCaseTotalCost(t *testing.T) {
	opp := testOpportunity()
	group := types.OrderGroup{Status: types.OrderGroupFailed}

	got := breakerCharge(opp, group, 0)
	require.Equal(t, -opp.TotalCost, got)
}

func TestExecutor_ExecuteSubmissionErrorFails(t *testing.T) {
	e := newTestExecutor(t, Config{ParallelLegs: true}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("order rejected"))
	})

	group, err := e.Execute(context.Background(), testOpportunity(), 1)
	require.NoError(t, err)
	require.Equal(t, types.OrderGroupFailed, group.Status)
	require.NotEmpty(t, group.Error)
}
