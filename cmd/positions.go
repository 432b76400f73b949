package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/mselser95/kalshi-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List open positions",
	Long: `Fetches and prints every open position with a non-zero net contract
count, along with its market exposure and resting-order count.

Example:
  kalshi-arb positions`,
	Args: cobra.NoArgs,
	RunE: runPositions,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(positionsCmd)
}

func runPositions(cmd *cobra.Command, args []string) error {
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

	led, err := buildLedger(cfg, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := led.Sync(ctx); err != nil {
		return fmt.Errorf("sync ledger: %w", err)
	}

	positions := led.Positions()
	if len(positions) == 0 {
		fmt.Println("No open positions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tNET CONTRACTS\tEXPOSURE (cents)\tRESTING ORDERS")
	for _, p := range positions {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", p.Ticker, p.NetContracts, p.MarketExposure, p.RestingOrdersCount)
	}
	return w.Flush()
}
