package transport

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mselser95/kalshi-arb/internal/auth"
	"github.com/mselser95/kalshi-arb/internal/ratelimit"
	"github.com/mselser95/kalshi-arb/pkg/venueerrors"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der := x509.MarshalPKCS1PrivateKey(key)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})

	signer, err := auth.NewSigner("key-id", pemBytes)
	require.NoError(t, err)

	limiter := ratelimit.NewDual(1000, 1000)

	return New(baseURL, signer, limiter, zaptest.NewLogger(t))
}

func TestClient_SuccessUnmarshalsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("KALSHI-ACCESS-KEY"))
		require.NotEmpty(t, r.Header.Get("KALSHI-ACCESS-SIGNATURE"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ticker":"ABC"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	var out struct {
		Ticker string `json:"ticker"`
	}
	err := c.Get(context.Background(), "/markets/ABC", &out)
	require.NoError(t, err)
	require.Equal(t, "ABC", out.Ticker)
}

func TestClient_AuthErrorNeverRetries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	err := c.Get(context.Background(), "/portfolio/balance", nil)
	require.Error(t, err)
	var authErr *venueerrors.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, 1, calls)
}

func TestClient_InsufficientFundsClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Insufficient balance for order"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	err := c.Post(context.Background(), "/portfolio/orders", map[string]string{"ticker": "X"}, nil)
	require.Error(t, err)
	var fundsErr *venueerrors.InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
}

func TestClient_RateLimitRetriesThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	err := c.Get(context.Background(), "/markets", nil)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestClient_QueryStringPreserved(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	err := c.Get(context.Background(), "/markets?status=open&limit=10", nil)
	require.NoError(t, err)
	require.Equal(t, "status=open&limit=10", gotQuery)
}
