package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/mselser95/kalshi-arb/internal/arbitrage"
	"github.com/mselser95/kalshi-arb/internal/book"
	"github.com/mselser95/kalshi-arb/pkg/config"
	"github.com/mselser95/kalshi-arb/pkg/types"
	"github.com/spf13/cobra"
)

const scanSnapshotDepth = 50

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan <event-ticker>",
	Short: "Run a single arbitrage scan against an event, without executing",
	Long: `Fetches the current markets and order-book snapshots for the given
event, runs one detector pass, and prints any opportunities found. Nothing
is executed; this is a read-only debugging aid.

Example:
  kalshi-arb scan INXD-24DEC31`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	eventTicker := args[0]

	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	catalogClient, err := buildCatalogClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	markets, err := catalogClient.FetchMarketsByEvent(ctx, eventTicker)
	if err != nil {
		return fmt.Errorf("fetch markets for %s: %w", eventTicker, err)
	}
	if len(markets) == 0 {
		fmt.Printf("No markets found for event %s\n", eventTicker)
		return nil
	}

	books := book.New(logger)
	for _, m := range markets {
		yes, no, err := catalogClient.FetchOrderbookSnapshot(ctx, m.Ticker, scanSnapshotDepth)
		if err != nil {
			fmt.Printf("warning: fetch orderbook for %s: %v\n", m.Ticker, err)
			continue
		}
		books.InstallSnapshot(m.Ticker, yes, no)
	}

	bookSnapshot := make(map[string]types.OrderBook, len(markets))
	for _, m := range markets {
		if b, ok := books.Get(m.Ticker); ok {
			bookSnapshot[m.Ticker] = b
		}
	}

	detector := arbitrage.New(arbitrage.Config{
		MinProfitCents:    cfg.MinProfitCents,
		TakerFeeRate:      cfg.TakerFeeRate,
		MinPriceDiffCents: cfg.MinPriceDiffCents,
		CorrelationRules:  cfg.CorrelationRules,
	}, arbitrage.StrategyMultiOutcome, arbitrage.StrategyTemporal, arbitrage.StrategyCorrelated)

	event := types.Event{Ticker: eventTicker, Markets: markets}
	candidates := detector.Scan([]types.Event{event}, bookSnapshot)
	best := arbitrage.BestOf(candidates)

	if len(best) == 0 {
		fmt.Println("No opportunities found")
		return nil
	}

	for _, opp := range best {
		fmt.Printf("[%s] %s  net_profit=%d cents  max_qty=%d  confidence=%.2f\n",
			opp.Type, opp.EventTicker, opp.NetProfit, opp.MaxQuantity, opp.Confidence)
		for _, leg := range opp.Legs {
			fmt.Printf("    %s %s %s @ %d x%d\n", leg.Ticker, leg.Action, leg.Side, leg.Price, leg.Quantity)
		}
	}

	return nil
}
