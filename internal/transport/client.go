// Package transport is the signed, rate-limited, retrying REST client shared
// by every component that talks to the venue.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/auth"
	"github.com/mselser95/kalshi-arb/internal/ratelimit"
	"github.com/mselser95/kalshi-arb/pkg/venueerrors"
)

const maxAttempts = 3

// Client is the authenticated, rate-limited, retrying HTTP client for the
// venue's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *auth.Signer
	limiter    *ratelimit.DualLimiter
	logger     *zap.Logger
}

// New builds a Client against baseURL, signing every request with signer and
// throttling via limiter.
func New(baseURL string, signer *auth.Signer, limiter *ratelimit.DualLimiter, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer:  signer,
		limiter: limiter,
		logger:  logger,
	}
}

// Do issues method to path (which may include a query string) with body
// marshaled as JSON (nil for no body), retrying per the venue's error
// classification policy, and unmarshals the response into out (nil to
// discard the body).
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var bodyBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyBytes = b
	}

	endpoint := endpointLabel(path)
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Acquire(ctx, method); err != nil {
			return err
		}

		start := time.Now()
		err := c.attempt(ctx, method, path, bodyBytes, out)
		apiLatencyMs.WithLabelValues(method).Observe(float64(time.Since(start).Milliseconds()))
		apiRequestsTotal.WithLabelValues(method, endpoint, statusLabel(err)).Inc()
		if err == nil {
			return nil
		}
		lastErr = err

		delay, retryable := retryDelay(err, attempt)
		if !retryable {
			return err
		}

		c.logger.Warn("transport-retry",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

func (c *Client) attempt(ctx context.Context, method, path string, bodyBytes []byte, out interface{}) error {
	sig, err := c.signer.Sign(method, path)
	if err != nil {
		return err
	}

	fullURL, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("join url: %w", err)
	}
	if u, parseErr := url.Parse(path); parseErr == nil && u.RawQuery != "" {
		fullURL += "?" + u.RawQuery
	}

	var reqBody io.Reader
	if bodyBytes != nil {
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("KALSHI-ACCESS-KEY", sig.APIKeyID)
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", strconv.FormatInt(sig.TimestampMS, 10))
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", sig.Value)
	if bodyBytes != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		if out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}
		return nil
	}

	return classifyStatus(resp.StatusCode, resp.Header.Get("Retry-After"), respBody)
}

func classifyStatus(status int, retryAfter string, body []byte) error {
	message := string(body)

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &venueerrors.AuthenticationError{StatusCode: status, Message: message}
	case http.StatusTooManyRequests:
		return &venueerrors.RateLimitError{RetryAfter: parseRetryAfter(retryAfter)}
	case http.StatusBadRequest:
		if containsInsufficientFunds(message) {
			return &venueerrors.InsufficientFundsError{Message: message}
		}
		return &venueerrors.OrderError{Code: strconv.Itoa(status), Message: message}
	case http.StatusNotFound:
		return &venueerrors.NotFoundError{Resource: message}
	default:
		return &venueerrors.VenueError{StatusCode: status, Message: message}
	}
}

// endpointLabel strips query strings and collapses path segments that look
// like tickers or IDs, keeping the metric's cardinality bounded.
func endpointLabel(path string) string {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if i > 0 && isIdentifierSegment(seg) {
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

// isIdentifierSegment reports whether seg looks like a venue-assigned
// ticker/order ID rather than a fixed route component.
func isIdentifierSegment(seg string) bool {
	switch seg {
	case "balance", "positions", "fills", "orders", "markets", "events", "orderbook", "":
		return false
	default:
		return true
	}
}

func statusLabel(err error) string {
	if err == nil {
		return "2xx"
	}
	switch err.(type) {
	case *venueerrors.AuthenticationError:
		return "401"
	case *venueerrors.RateLimitError:
		return "429"
	case *venueerrors.OrderError, *venueerrors.InsufficientFundsError:
		return "400"
	case *venueerrors.NotFoundError:
		return "404"
	default:
		return "error"
	}
}

func containsInsufficientFunds(message string) bool {
	return strings.Contains(strings.ToLower(message), "insufficient")
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// retryDelay decides whether err is retryable and, if so, how long to wait
// before the next attempt. Auth, order, and generic venue errors never
// retry; rate-limit and transport-level errors do, up to maxAttempts.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	if attempt >= maxAttempts {
		return 0, false
	}

	switch e := err.(type) {
	case *venueerrors.RateLimitError:
		if e.RetryAfter > 0 {
			return e.RetryAfter, true
		}
		return cappedExponential(attempt), true
	case *venueerrors.AuthenticationError, *venueerrors.OrderError, *venueerrors.InsufficientFundsError, *venueerrors.NotFoundError, *venueerrors.VenueError:
		return 0, false
	default:
		// Network/timeout/transport-level errors: exponential backoff.
		return cappedExponential(attempt), true
	}
}

func cappedExponential(attempt int) time.Duration {
	seconds := 1 << attempt
	if seconds > 60 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}

// Get issues a GET to path and unmarshals the response into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with body and unmarshals the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Delete issues a DELETE to path.
func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}
