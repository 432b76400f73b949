package config

import (
	"os"
	"testing"

	"github.com/mselser95/kalshi-arb/internal/arbitrage"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"ENVIRONMENT", "API_KEY_ID", "PRIVATE_KEY_PATH", "LOG_LEVEL", "METRICS_PORT",
		"READ_RATE_LIMIT", "WRITE_RATE_LIMIT", "MIN_PROFIT_CENTS", "MIN_PRICE_DIFF_CENTS",
		"TAKER_FEE_RATE", "CORRELATION_RULES", "PARALLEL_LEGS", "MAX_CONCURRENT_GROUPS",
		"MAX_POSITION_PER_MARKET", "MAX_EXPOSURE_CENTS", "MAX_DAILY_LOSS_CENTS",
		"MAX_CONSECUTIVE_LOSSES", "COOLDOWN_SECONDS", "SLACK_WEBHOOK_URL", "DISCORD_WEBHOOK_URL",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
}

func TestConfig_LoadFromEnvDefaults(t *testing.T) {
	clearConfigEnv(t)
	os.Setenv("API_KEY_ID", "key-123")
	os.Setenv("PRIVATE_KEY_PATH", "/tmp/key.pem")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("expected default environment development, got %q", cfg.Environment)
	}
	if cfg.BaseURL != developmentBaseURL {
		t.Errorf("expected development base url, got %q", cfg.BaseURL)
	}
	if cfg.MinProfitCents != 2 {
		t.Errorf("expected default MinProfitCents 2, got %d", cfg.MinProfitCents)
	}
	if cfg.MaxExposureCents != 50000 {
		t.Errorf("expected default MaxExposureCents 50000, got %d", cfg.MaxExposureCents)
	}
	if cfg.CooldownSeconds != 300 {
		t.Errorf("expected default CooldownSeconds 300, got %d", cfg.CooldownSeconds)
	}
	if !cfg.ParallelLegs {
		t.Error("expected ParallelLegs to default true")
	}
	if cfg.TakerFeeRate != 0.007 {
		t.Errorf("expected default TakerFeeRate 0.007, got %f", cfg.TakerFeeRate)
	}
}

func TestConfig_LoadFromEnvProductionURLs(t *testing.T) {
	clearConfigEnv(t)
	os.Setenv("API_KEY_ID", "key-123")
	os.Setenv("PRIVATE_KEY_PATH", "/tmp/key.pem")
	os.Setenv("ENVIRONMENT", "production")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.BaseURL != productionBaseURL {
		t.Errorf("expected production base url, got %q", cfg.BaseURL)
	}
	if cfg.WebSocketURL != productionWSURL {
		t.Errorf("expected production websocket url, got %q", cfg.WebSocketURL)
	}
}

func TestConfig_ValidateRejectsOutOfRangeValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.APIKeyID = "" }},
		{"missing private key path", func(c *Config) { c.PrivateKeyPath = "" }},
		{"bad environment", func(c *Config) { c.Environment = "staging" }},
		{"min profit too low", func(c *Config) { c.MinProfitCents = 0 }},
		{"max position too low", func(c *Config) { c.MaxPositionPerMarket = 0 }},
		{"max exposure too low", func(c *Config) { c.MaxExposureCents = 50 }},
		{"max daily loss too low", func(c *Config) { c.MaxDailyLossCents = 50 }},
		{"max consecutive losses too low", func(c *Config) { c.MaxConsecutiveLosses = 0 }},
		{"cooldown too short", func(c *Config) { c.CooldownSeconds = 10 }},
		{"read rate non-positive", func(c *Config) { c.ReadRateLimit = 0 }},
		{"write rate non-positive", func(c *Config) { c.WriteRateLimit = 0 }},
		{"metrics port empty", func(c *Config) { c.MetricsPort = "" }},
		{"max concurrent groups too low", func(c *Config) { c.MaxConcurrentGroups = 0 }},
		{"negative taker fee", func(c *Config) { c.TakerFeeRate = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestConfig_CorrelationRulesParsedFromJSON(t *testing.T) {
	clearConfigEnv(t)
	os.Setenv("API_KEY_ID", "key-123")
	os.Setenv("PRIVATE_KEY_PATH", "/tmp/key.pem")
	os.Setenv("CORRELATION_RULES", `[{"pattern_a":"FED-*","pattern_b":"FOMC-*","relation":"implies"}]`)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(cfg.CorrelationRules) != 1 {
		t.Fatalf("expected 1 correlation rule, got %d", len(cfg.CorrelationRules))
	}
	rule := cfg.CorrelationRules[0]
	if rule.PatternA != "FED-*" || rule.PatternB != "FOMC-*" || rule.Relation != arbitrage.RelationImplies {
		t.Errorf("unexpected correlation rule: %+v", rule)
	}
}

func TestConfig_CorrelationRulesMalformedYieldsNone(t *testing.T) {
	clearConfigEnv(t)
	os.Setenv("API_KEY_ID", "key-123")
	os.Setenv("PRIVATE_KEY_PATH", "/tmp/key.pem")
	os.Setenv("CORRELATION_RULES", "not-json")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.CorrelationRules != nil {
		t.Errorf("expected nil correlation rules on malformed JSON, got %+v", cfg.CorrelationRules)
	}
}

func validConfig() *Config {
	return &Config{
		APIKeyID:             "key-123",
		PrivateKeyPath:       "/tmp/key.pem",
		Environment:          "development",
		MetricsPort:          "8000",
		ReadRateLimit:        20,
		WriteRateLimit:       10,
		MinProfitCents:       2,
		MaxPositionPerMarket: 100,
		MaxExposureCents:     50000,
		MaxDailyLossCents:    10000,
		MaxConsecutiveLosses: 5,
		CooldownSeconds:      300,
		MaxConcurrentGroups:  3,
		TakerFeeRate:         0.007,
	}
}
