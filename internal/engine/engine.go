// Package engine owns the process's top-level lifecycle: it wires every
// other component together and drives the three concurrent loops (stream,
// scan, sync) that turn book updates into executed trades.
package engine

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/alerting"
	"github.com/mselser95/kalshi-arb/internal/arbitrage"
	"github.com/mselser95/kalshi-arb/internal/auth"
	"github.com/mselser95/kalshi-arb/internal/book"
	"github.com/mselser95/kalshi-arb/internal/catalog"
	"github.com/mselser95/kalshi-arb/internal/execution"
	"github.com/mselser95/kalshi-arb/internal/ledger"
	"github.com/mselser95/kalshi-arb/internal/ratelimit"
	"github.com/mselser95/kalshi-arb/internal/risk"
	"github.com/mselser95/kalshi-arb/internal/storage"
	"github.com/mselser95/kalshi-arb/internal/streaming"
	"github.com/mselser95/kalshi-arb/internal/transport"
	"github.com/mselser95/kalshi-arb/pkg/cache"
	"github.com/mselser95/kalshi-arb/pkg/config"
	"github.com/mselser95/kalshi-arb/pkg/healthprobe"
	"github.com/mselser95/kalshi-arb/pkg/httpserver"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

const (
	scanInterval = 1 * time.Second
	syncInterval = 30 * time.Second
)

// Engine is the application orchestrator: it owns every long-lived
// component and the goroutines that drive them.
type Engine struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	rest     *transport.Client
	books    *book.Store
	stream   *streaming.Client
	catalog  *catalog.Cached
	detector *arbitrage.Detector
	ledger   *ledger.Ledger
	breaker  *risk.CircuitBreaker
	gate     *risk.ExposureGate
	executor *execution.Executor
	alerts   *alerting.Manager
	storage  storage.Storage

	mu      sync.RWMutex
	watched map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds engine construction options.
type Options struct {
	// EventTickers is the initial set of events to watch, e.g. passed on
	// the command line to `run`.
	EventTickers []string
}

// New wires every component from cfg and returns an Engine ready to Run.
func New(cfg *config.Config, logger *zap.Logger, opts Options) (*Engine, error) {
	pemBytes, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	signer, err := auth.NewSigner(cfg.APIKeyID, pemBytes)
	if err != nil {
		return nil, fmt.Errorf("build signer: %w", err)
	}

	limiter := ratelimit.NewDual(cfg.ReadRateLimit, cfg.WriteRateLimit)
	rest := transport.New(cfg.BaseURL, signer, limiter, logger)

	books := book.New(logger)

	catalogClient := catalog.NewClient(rest)
	eventCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1 << 20,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build catalog cache: %w", err)
	}
	cachedCatalog := catalog.NewCached(catalogClient, eventCache, logger)

	detectorCfg := arbitrage.Config{
		MinProfitCents:    cfg.MinProfitCents,
		TakerFeeRate:      cfg.TakerFeeRate,
		MinPriceDiffCents: cfg.MinPriceDiffCents,
		CorrelationRules:  cfg.CorrelationRules,
	}
	detector := arbitrage.New(detectorCfg,
		arbitrage.StrategyMultiOutcome, arbitrage.StrategyTemporal, arbitrage.StrategyCorrelated)

	led := ledger.New(rest, logger)
	gate := risk.NewGate(led, risk.ExposureLimits{
		MaxTotalExposureCents:     cfg.MaxExposureCents,
		MaxPositionPerMarket:      cfg.MaxPositionPerMarket,
		MaxExposurePerMarketCents: cfg.MaxExposureCents,
	})

	alerts := alerting.New(alerting.Config{
		SlackWebhookURL:   cfg.SlackWebhookURL,
		DiscordWebhookURL: cfg.DiscordWebhookURL,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthprobe.New(),
		rest:          rest,
		books:         books,
		catalog:       cachedCatalog,
		detector:      detector,
		ledger:        led,
		gate:          gate,
		alerts:        alerts,
		watched:       make(map[string]struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}

	breaker := risk.New(risk.BreakerConfig{
		MaxDailyLossCents:    cfg.MaxDailyLossCents,
		MaxConsecutiveLosses: cfg.MaxConsecutiveLosses,
		MaxExposureCents:     cfg.MaxExposureCents,
		CooldownSeconds:      cfg.CooldownSeconds,
		HalfOpenTestLimit:    1,
	}, logger, e.onCircuitBreakerTrip, e.onCircuitBreakerReset)
	e.breaker = breaker

	e.executor = execution.New(rest, breaker, gate, execution.Config{
		MaxConcurrentGroups: cfg.MaxConcurrentGroups,
		ParallelLegs:        cfg.ParallelLegs,
	}, logger)

	e.stream = streaming.New(cfg.WebSocketURL, signer, books, logger, e.onConnectionStateChanged)

	e.httpServer = httpserver.New(&httpserver.Config{
		Port:          cfg.MetricsPort,
		Logger:        logger,
		HealthChecker: e.healthChecker,
	})

	if cfg.StorageEnabled {
		store, err := storage.New(storage.Config{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
		}, logger)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("connect storage: %w", err)
		}
		e.storage = store
	}

	for _, ticker := range opts.EventTickers {
		e.watched[ticker] = struct{}{}
	}

	return e, nil
}

func (e *Engine) onCircuitBreakerTrip(reason string) {
	metrics := e.breaker.Metrics()
	e.logger.Error("circuit-breaker-tripped", zap.String("reason", reason))
	e.alerts.CircuitBreakerTripped(e.ctx, reason, metrics.DailyLossCents, metrics.TotalExposureCents)
}

func (e *Engine) onCircuitBreakerReset() {
	e.logger.Info("circuit-breaker-reset")
}

func (e *Engine) onConnectionStateChanged(connected bool) {
	if !connected {
		e.alerts.ConnectionIssue(e.ctx, "streaming-client", "connection lost")
	}
}

// bookSnapshot returns a point-in-time copy of every book the given markets
// reference, skipping markets the Book Store has not yet seen.
func (e *Engine) bookSnapshot(markets []types.Market) map[string]types.OrderBook {
	books := make(map[string]types.OrderBook, len(markets))
	for _, m := range markets {
		if b, ok := e.books.Get(m.Ticker); ok {
			books[m.Ticker] = b
		}
	}
	return books
}

func (e *Engine) watchedTickers() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tickers := make([]string, 0, len(e.watched))
	for t := range e.watched {
		tickers = append(tickers, t)
	}
	return tickers
}
