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
var listMarketsCmd = &cobra.Command{
	Use:   "list-markets <event-ticker>",
	Short: "List the markets belonging to an event",
	Long: `Fetches and prints every market in the given event, along with its
status and best quoted yes/no bids.

Example:
  kalshi-arb list-markets INXD-24DEC31`,
	Args: cobra.ExactArgs(1),
	RunE: runListMarkets,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listMarketsCmd)
}

func runListMarkets(cmd *cobra.Command, args []string) error {
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

	client, err := buildCatalogClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	markets, err := client.FetchMarketsByEvent(ctx, eventTicker)
	if err != nil {
		return fmt.Errorf("fetch markets for %s: %w", eventTicker, err)
	}

	if len(markets) == 0 {
		fmt.Printf("No markets found for event %s\n", eventTicker)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tSTATUS\tYES BID\tNO BID\tIMPLIED YES ASK\tIMPLIED NO ASK")
	for _, m := range markets {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
			m.Ticker, m.Status, m.YesBid, m.NoBid, m.ImpliedYesAsk(), m.ImpliedNoAsk())
	}
	return w.Flush()
}
