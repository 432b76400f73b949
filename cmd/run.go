package cmd

import (
	"fmt"
	"strings"

	"github.com/mselser95/kalshi-arb/internal/engine"
	"github.com/mselser95/kalshi-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage engine",
	Long: `Starts the Kalshi arbitrage engine, which will:
1. Subscribe to order-book updates for every watched event
2. Seed the Book Store with REST snapshots before streaming catches up
3. Scan for multi-outcome, temporal, and correlated-market arbitrage
4. Gate and execute any opportunity that clears the exposure and circuit
   breaker checks

Use --event-tickers to choose which events to watch; the engine stays up
until it receives SIGINT/SIGTERM.`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringSliceP("event-tickers", "e", nil,
		"Comma-separated list of event tickers to watch (e.g. INXD-24DEC31,FED-25JAN)")
}

func runEngine(cmd *cobra.Command, args []string) error {
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

	tickers, _ := cmd.Flags().GetStringSlice("event-tickers")
	for i, t := range tickers {
		tickers[i] = strings.TrimSpace(t)
	}

	e, err := engine.New(cfg, logger, engine.Options{EventTickers: tickers})
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	if err := e.Run(); err != nil {
		return fmt.Errorf("run engine: %w", err)
	}

	return nil
}
