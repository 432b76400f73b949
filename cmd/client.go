package cmd

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/auth"
	"github.com/mselser95/kalshi-arb/internal/catalog"
	"github.com/mselser95/kalshi-arb/internal/ledger"
	"github.com/mselser95/kalshi-arb/internal/ratelimit"
	"github.com/mselser95/kalshi-arb/internal/transport"
	"github.com/mselser95/kalshi-arb/pkg/config"
)

// buildRESTClient constructs a signed, rate-limited REST client from cfg, for
// debug subcommands that talk to the venue directly without the full engine.
func buildRESTClient(cfg *config.Config, logger *zap.Logger) (*transport.Client, error) {
	pemBytes, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	signer, err := auth.NewSigner(cfg.APIKeyID, pemBytes)
	if err != nil {
		return nil, fmt.Errorf("build signer: %w", err)
	}

	limiter := ratelimit.NewDual(cfg.ReadRateLimit, cfg.WriteRateLimit)
	return transport.New(cfg.BaseURL, signer, limiter, logger), nil
}

func buildLedger(cfg *config.Config, logger *zap.Logger) (*ledger.Ledger, error) {
	rest, err := buildRESTClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return ledger.New(rest, logger), nil
}

func buildCatalogClient(cfg *config.Config, logger *zap.Logger) (*catalog.Client, error) {
	rest, err := buildRESTClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return catalog.NewClient(rest), nil
}
