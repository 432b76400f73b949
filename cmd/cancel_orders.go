package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/mselser95/kalshi-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var cancelOrdersCmd = &cobra.Command{
	Use:   "cancel-orders",
	Short: "Cancel all resting orders",
	Long: `Cancels every currently resting order one at a time via
DELETE /portfolio/orders/{order_id}.

Use --dry-run to preview the orders that would be canceled.

Examples:
  # Preview resting orders without canceling
  kalshi-arb cancel-orders --dry-run

  # Cancel every resting order
  kalshi-arb cancel-orders`,
	Args: cobra.NoArgs,
	RunE: runCancelOrders,
}

//nolint:gochecknoglobals // Cobra boilerplate
var cancelOrdersDryRun bool

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(cancelOrdersCmd)
	cancelOrdersCmd.Flags().BoolVar(&cancelOrdersDryRun, "dry-run", false, "Preview resting orders without canceling")
}

type restingOrder struct {
	OrderID string `json:"order_id"`
	Ticker  string `json:"ticker"`
	Side    string `json:"side"`
	Action  string `json:"action"`
	Price   int    `json:"price"`
	Count   int    `json:"count"`
}

type restingOrdersResponse struct {
	Orders []restingOrder `json:"orders"`
}

func runCancelOrders(cmd *cobra.Command, args []string) error {
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

	rest, err := buildRESTClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()

	var resp restingOrdersResponse
	if err := rest.Get(ctx, "/portfolio/orders?status=resting", &resp); err != nil {
		return fmt.Errorf("fetch resting orders: %w", err)
	}

	if len(resp.Orders) == 0 {
		fmt.Println("No resting orders")
		return nil
	}

	for _, o := range resp.Orders {
		fmt.Printf("%s  %s %s  price=%d  count=%d\n", o.OrderID, o.Side, o.Action, o.Price, o.Count)
	}

	if cancelOrdersDryRun {
		fmt.Printf("\n%d order(s) would be canceled (--dry-run)\n", len(resp.Orders))
		return nil
	}

	canceled := 0
	for _, o := range resp.Orders {
		if err := rest.Delete(ctx, "/portfolio/orders/"+o.OrderID, nil); err != nil {
			fmt.Printf("failed to cancel %s: %v\n", o.OrderID, err)
			continue
		}
		canceled++
	}
	fmt.Printf("\nCanceled %d/%d order(s)\n", canceled, len(resp.Orders))

	return nil
}
