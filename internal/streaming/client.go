// Package streaming holds the authenticated WebSocket client that consumes
// the venue's live order-book feed, reconnecting and resubscribing on
// disconnect.
package streaming

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/auth"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

const (
	pingInterval = 30 * time.Second
	pingTimeout  = 10 * time.Second
	maxBackoff   = 60 * time.Second
)

// Sink receives parsed streaming events. Implementations must not block;
// the Book Store satisfies this via InstallSnapshot/ApplyDelta.
type Sink interface {
	InstallSnapshot(ticker string, yes, no []types.Level)
	ApplyDelta(ticker string, side types.Side, price, quantity int)
}

// ConnectionObserver is notified when the client's connection state changes.
type ConnectionObserver func(connected bool)

// Client is a single reconnecting, authenticated streaming connection.
// The venue multiplexes every subscription over one socket, so unlike a
// connection pool there is exactly one Client per engine.
type Client struct {
	wsURL  string
	signer *auth.Signer
	sink   Sink
	logger *zap.Logger
	onConn ConnectionObserver

	mu       sync.Mutex
	tickers  map[string]struct{}
	reqID    int
	conn     *websocket.Conn
	attempts int
}

// New creates a streaming Client against wsURL (e.g. wss://.../ws).
func New(wsURL string, signer *auth.Signer, sink Sink, logger *zap.Logger, onConn ConnectionObserver) *Client {
	return &Client{
		wsURL:   wsURL,
		signer:  signer,
		sink:    sink,
		logger:  logger,
		onConn:  onConn,
		tickers: make(map[string]struct{}),
	}
}

// Subscribe adds tickers to the tracked subscription set and, if connected,
// sends a subscribe command immediately. The full set is always replayed on
// reconnect.
func (c *Client) Subscribe(tickers []string) error {
	c.mu.Lock()
	for _, t := range tickers {
		c.tickers[t] = struct{}{}
	}
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return c.sendSubscribe(conn, tickers, "subscribe")
}

// Unsubscribe removes tickers from the tracked subscription set and, if
// connected, sends an unsubscribe command immediately.
func (c *Client) Unsubscribe(tickers []string) error {
	c.mu.Lock()
	for _, t := range tickers {
		delete(c.tickers, t)
	}
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return c.sendSubscribe(conn, tickers, "unsubscribe")
}

// Run connects and consumes messages until ctx is canceled. On any
// disconnect it sleeps min(60, 2^attempt) seconds and reconnects,
// resubscribing to the full ticker set it previously held. It returns only
// when ctx is canceled.
func (c *Client) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := c.connectAndConsume(ctx)
		connectionState.Set(0)
		if c.onConn != nil {
			c.onConn(false)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.mu.Lock()
		c.attempts++
		attempt := c.attempts
		c.mu.Unlock()

		delay := backoffFor(attempt)
		reconnectAttemptsTotal.Inc()
		c.logger.Warn("stream-disconnected", zap.Error(err), zap.Duration("reconnect_in", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func backoffFor(attempt int) time.Duration {
	d := time.Duration(1) << uint(attempt)
	d *= time.Second
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func (c *Client) connectAndConsume(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	c.mu.Lock()
	c.conn = conn
	c.attempts = 0
	tickers := make([]string, 0, len(c.tickers))
	for t := range c.tickers {
		tickers = append(tickers, t)
	}
	c.mu.Unlock()

	connectionState.Set(1)
	subscribedMarkets.Set(float64(len(tickers)))
	if c.onConn != nil {
		c.onConn(true)
	}

	if len(tickers) > 0 {
		if err := c.sendSubscribe(conn, tickers, "subscribe"); err != nil {
			return fmt.Errorf("resubscribe: %w", err)
		}
	}

	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pingInterval + pingTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pingInterval + pingTimeout))
	})

	stopPing := make(chan struct{})
	go c.pingLoop(conn, stopPing)
	defer close(stopPing)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		c.handleMessage(data)
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingTimeout))
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse ws url: %w", err)
	}

	sig, err := c.signer.Sign(http.MethodGet, u.Path)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("KALSHI-ACCESS-KEY", sig.APIKeyID)
	header.Set("KALSHI-ACCESS-TIMESTAMP", strconv.FormatInt(sig.TimestampMS, 10))
	header.Set("KALSHI-ACCESS-SIGNATURE", sig.Value)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, c.wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return conn, nil
}

func (c *Client) sendSubscribe(conn *websocket.Conn, tickers []string, cmd string) error {
	c.mu.Lock()
	c.reqID++
	id := c.reqID
	c.mu.Unlock()

	req := SubscribeRequest{
		ID:  id,
		Cmd: cmd,
		Params: SubscribeParams{
			Channels:      []string{"orderbook_delta"},
			MarketTickers: tickers,
		},
	}

	return conn.WriteJSON(req)
}

func (c *Client) handleMessage(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("stream-unmarshal-envelope-failed", zap.Error(err))
		return
	}

	messagesReceivedTotal.WithLabelValues(string(env.Type)).Inc()

	switch env.Type {
	case MessageOrderbookSnapshot:
		c.handleSnapshot(data)
	case MessageOrderbookDelta:
		c.handleDelta(data)
	case MessageTrade:
		c.handleTrade(data)
	case MessageSubscribed, MessageUnsubscribed:
		// Acknowledgement only; nothing to do.
	case MessageError:
		c.handleError(data)
	default:
		c.logger.Warn("stream-unknown-message-type", zap.String("type", string(env.Type)))
	}
}

func (c *Client) handleSnapshot(data []byte) {
	var msg SnapshotMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("stream-unmarshal-snapshot-failed", zap.Error(err))
		return
	}

	c.sink.InstallSnapshot(msg.Market, ladderToLevels(msg.Yes), ladderToLevels(msg.No))
}

func (c *Client) handleDelta(data []byte) {
	var msg DeltaMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("stream-unmarshal-delta-failed", zap.Error(err))
		return
	}

	side := types.SideYes
	if msg.Side == string(types.SideNo) {
		side = types.SideNo
	}

	c.sink.ApplyDelta(msg.Market, side, msg.Price, msg.Quantity)
}

func (c *Client) handleTrade(data []byte) {
	var msg TradeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.logger.Debug("stream-trade", zap.String("market", msg.Market), zap.Int("price", msg.Price), zap.Int("count", msg.Count))
}

func (c *Client) handleError(data []byte) {
	var msg ErrorMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.logger.Warn("stream-protocol-error", zap.String("message", msg.Message))
}

func ladderToLevels(l Ladder) []types.Level {
	levels := make([]types.Level, 0, len(l))
	for _, pair := range l {
		levels = append(levels, types.Level{Price: pair[0], Quantity: pair[1]})
	}
	return levels
}
