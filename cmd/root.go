package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "kalshi-arb",
	Short: "Kalshi arbitrage bot",
	Long: `Kalshi arbitrage bot that watches prediction-market order books,
detects risk-free mis-pricings across logically related contracts
(multi-outcome, temporal, and correlated-market arbitrage), and
submits coordinated multi-leg orders to capture them.

The bot reconciles REST order-book snapshots with streaming deltas,
derives implied asks from the venue's bid-only ladders, and gates
every execution behind an exposure limit and a trading circuit
breaker.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
