package engine

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/arbitrage"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

// Run starts every component, blocks until a shutdown signal or context
// cancellation arrives, then shuts down cleanly.
func (e *Engine) Run() error {
	e.logger.Info("engine-starting",
		zap.String("environment", e.cfg.Environment),
		zap.Strings("watched_events", e.watchedTickers()))

	if err := e.startComponents(); err != nil {
		return err
	}

	e.healthChecker.SetReady(true)
	e.logger.Info("engine-ready", zap.String("metrics_addr", ":"+e.cfg.MetricsPort))

	return e.waitForShutdown()
}

func (e *Engine) startComponents() error {
	e.wg.Add(1)
	go e.runHTTPServer()

	time.Sleep(100 * time.Millisecond)

	if err := e.ledger.Sync(e.ctx); err != nil {
		e.logger.Warn("initial-ledger-sync-failed", zap.Error(err))
	}

	for ticker := range e.watched {
		if err := e.initWatchedEvent(e.ctx, ticker); err != nil {
			e.logger.Error("watch-event-failed", zap.String("event_ticker", ticker), zap.Error(err))
		}
	}

	e.wg.Add(1)
	go e.runStreamLoop()

	e.wg.Add(1)
	go e.runScanLoop()

	e.wg.Add(1)
	go e.runSyncLoop()

	return nil
}

func (e *Engine) runHTTPServer() {
	defer e.wg.Done()
	if err := e.httpServer.Start(); err != nil {
		e.logger.Error("http-server-error", zap.Error(err))
	}
}

// runStreamLoop owns the single reconnecting streaming connection. Run only
// returns when the engine's context is canceled.
func (e *Engine) runStreamLoop() {
	defer e.wg.Done()

	if err := e.stream.Run(e.ctx); err != nil && !errors.Is(err, e.ctx.Err()) {
		e.logger.Error("stream-loop-error", zap.Error(err))
	}
}

// runScanLoop iterates the watched event set on a fixed tick, scanning each
// for arbitrage opportunities and handing any found to handleOpportunity.
func (e *Engine) runScanLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.scanForOpportunities()
		}
	}
}

func (e *Engine) scanForOpportunities() {
	for _, eventTicker := range e.watchedTickers() {
		markets, err := e.catalog.MarketsByEvent(e.ctx, eventTicker)
		if err != nil {
			e.logger.Warn("scan-fetch-markets-failed", zap.String("event_ticker", eventTicker), zap.Error(err))
			continue
		}

		books := e.bookSnapshot(markets)
		event := types.Event{Ticker: eventTicker, Markets: markets}

		candidates := e.detector.Scan([]types.Event{event}, books)
		for _, opp := range arbitrage.BestOf(candidates) {
			e.handleOpportunity(opp, books)
		}
	}
}

// handleOpportunity checks the circuit breaker and exposure gate, then
// executes opp at the largest quantity both allow, recording the trade
// result back into the breaker.
func (e *Engine) handleOpportunity(opp types.Opportunity, books map[string]types.OrderBook) {
	e.logger.Info("opportunity-detected",
		zap.String("type", string(opp.Type)),
		zap.String("event_ticker", opp.EventTicker),
		zap.Int("net_profit_cents", opp.NetProfit))
	e.alerts.OpportunityDetected(e.ctx, string(opp.Type), opp.EventTicker, opp.NetProfit)

	if err := e.breaker.CheckAndAllow(); err != nil {
		e.logger.Warn("opportunity-skipped-breaker-open", zap.String("event_ticker", opp.EventTicker))
		return
	}

	check := e.gate.CheckTrade(opp, opp.MaxQuantity)
	quantity := opp.MaxQuantity
	if !check.Allowed {
		quantity = check.MaxAllowedQuantity
	}
	if quantity <= 0 {
		e.logger.Info("opportunity-skipped-exposure-limit",
			zap.String("event_ticker", opp.EventTicker), zap.String("reason", check.Reason))
		return
	}

	if err := arbitrage.Validate(opp, books, quantity); err != nil {
		e.logger.Warn("opportunity-stale", zap.String("event_ticker", opp.EventTicker), zap.Error(err))
		return
	}

	if e.storage != nil {
		if err := e.storage.StoreOpportunity(e.ctx, opp); err != nil {
			e.logger.Warn("store-opportunity-failed", zap.Error(err))
		}
	}

	group, err := e.executor.Execute(e.ctx, opp, quantity)
	if err != nil {
		e.logger.Error("execution-failed", zap.String("event_ticker", opp.EventTicker), zap.Error(err))
		e.alerts.TradeFailed(e.ctx, opp.EventTicker, err.Error())
		return
	}

	if e.storage != nil {
		if err := e.storage.StoreOrderGroup(e.ctx, group); err != nil {
			e.logger.Warn("store-order-group-failed", zap.Error(err))
		}
	}

	if group.Status == types.OrderGroupComplete || group.Status == types.OrderGroupPartial {
		e.alerts.TradeExecuted(e.ctx, opp.EventTicker, opp.NetProfit*quantity, len(group.Orders))
	} else {
		e.alerts.TradeFailed(e.ctx, opp.EventTicker, group.Error)
	}
}

// runSyncLoop refreshes the ledger and feeds the breaker current exposure
// on a fixed tick.
func (e *Engine) runSyncLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.syncState()
		}
	}
}

func (e *Engine) syncState() {
	if err := e.ledger.Sync(e.ctx); err != nil {
		e.logger.Warn("sync-loop-ledger-sync-failed", zap.Error(err))
		return
	}

	exposure := e.ledger.TotalExposure()
	e.breaker.RecordExposure(exposure)

	pnl := e.ledger.RealizedPnL(e.cfg.TakerFeeRate)
	totalPnLCents.Set(float64(pnl.RealizedCents - pnl.FeesCents))
}

func (e *Engine) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		e.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-e.ctx.Done():
		e.logger.Info("context-canceled")
	}

	return e.Shutdown()
}
