package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/mselser95/kalshi-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Verify API credentials and REST connectivity",
	Long: `Signs and sends a single authenticated request to confirm that
API_KEY_ID and PRIVATE_KEY_PATH are valid and the venue is reachable.

Example:
  kalshi-arb test-connection`,
	Args: cobra.NoArgs,
	RunE: runTestConnection,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(testConnectionCmd)
}

func runTestConnection(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("build client: %w", err)
	}

	ctx := context.Background()

	var resp struct {
		Balance int `json:"balance"`
	}
	if err := rest.Get(ctx, "/portfolio/balance", &resp); err != nil {
		fmt.Printf("Connection FAILED: %v\n", err)
		return err
	}

	fmt.Printf("Connection OK (environment=%s, base_url=%s)\n", cfg.Environment, cfg.BaseURL)
	fmt.Printf("Balance: %d cents\n", resp.Balance)

	return nil
}
