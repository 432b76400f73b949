package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/mselser95/kalshi-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the account balance",
	Long: `Fetches and prints the current account balance in cents and dollars.

Example:
  kalshi-arb balance`,
	Args: cobra.NoArgs,
	RunE: runBalance,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(cmd *cobra.Command, args []string) error {
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

	balance := led.Balance()
	fmt.Printf("Balance: %d cents ($%.2f)\n", balance, float64(balance)/100)

	return nil
}
