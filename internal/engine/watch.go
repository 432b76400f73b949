package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const orderbookSnapshotDepth = 50

// WatchEvent adds eventTicker to the watched set: it fetches the event's
// markets, subscribes the streaming client to each, and seeds the Book
// Store with a REST snapshot so the scan loop has data before the first
// streaming snapshot arrives.
func (e *Engine) WatchEvent(ctx context.Context, eventTicker string) error {
	if err := e.initWatchedEvent(ctx, eventTicker); err != nil {
		return err
	}

	e.mu.Lock()
	e.watched[eventTicker] = struct{}{}
	e.mu.Unlock()

	e.logger.Info("event-watched", zap.String("event_ticker", eventTicker))
	return nil
}

// initWatchedEvent performs the fetch+subscribe+snapshot sequence without
// touching the watched set, so it can be reused for both WatchEvent and
// startup's initial watch list.
func (e *Engine) initWatchedEvent(ctx context.Context, eventTicker string) error {
	markets, err := e.catalog.MarketsByEvent(ctx, eventTicker)
	if err != nil {
		return fmt.Errorf("fetch markets for %s: %w", eventTicker, err)
	}

	tickers := make([]string, 0, len(markets))
	for _, m := range markets {
		tickers = append(tickers, m.Ticker)
	}

	if err := e.stream.Subscribe(tickers); err != nil {
		return fmt.Errorf("subscribe %s: %w", eventTicker, err)
	}

	for _, ticker := range tickers {
		yes, no, err := e.catalog.FetchOrderbookSnapshot(ctx, ticker, orderbookSnapshotDepth)
		if err != nil {
			e.logger.Warn("initial-snapshot-failed", zap.String("ticker", ticker), zap.Error(err))
			continue
		}
		e.books.InstallSnapshot(ticker, yes, no)
	}

	return nil
}

// UnwatchEvent removes eventTicker from the watched set and unsubscribes
// its markets from the streaming client. Book Store entries are left in
// place; they are harmless, inert state once no longer scanned.
func (e *Engine) UnwatchEvent(ctx context.Context, eventTicker string) error {
	markets, err := e.catalog.MarketsByEvent(ctx, eventTicker)
	if err != nil {
		return fmt.Errorf("fetch markets for %s: %w", eventTicker, err)
	}

	tickers := make([]string, 0, len(markets))
	for _, m := range markets {
		tickers = append(tickers, m.Ticker)
	}

	if err := e.stream.Unsubscribe(tickers); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", eventTicker, err)
	}

	e.mu.Lock()
	delete(e.watched, eventTicker)
	e.mu.Unlock()

	e.logger.Info("event-unwatched", zap.String("event_ticker", eventTicker))
	return nil
}
