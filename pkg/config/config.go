// Package config loads and validates the process-wide configuration record
// every component is constructed from.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/mselser95/kalshi-arb/internal/arbitrage"
)

const (
	developmentBaseURL = "https://demo-api.kalshi.co/trade-api/v2"
	developmentWSURL   = "wss://demo-api.kalshi.co/trade-api/ws/v2"
	productionBaseURL  = "https://trading-api.kalshi.com/trade-api/v2"
	productionWSURL    = "wss://trading-api.kalshi.com/trade-api/ws/v2"
)

// Config holds all application configuration, loaded once at startup.
type Config struct {
	// Application
	LogLevel    string
	MetricsPort string

	// Authentication
	APIKeyID       string
	PrivateKeyPath string
	Environment    string // "development" or "production"
	BaseURL        string // derived from Environment
	WebSocketURL   string // derived from Environment

	// Rate limiting
	ReadRateLimit  float64
	WriteRateLimit float64

	// Arbitrage detection
	MinProfitCents    int
	MinPriceDiffCents int
	TakerFeeRate      float64
	CorrelationRules  []arbitrage.CorrelationRule

	// Execution
	ParallelLegs        bool
	MaxConcurrentGroups int

	// Risk envelope
	MaxPositionPerMarket  int
	MaxExposureCents      int
	MaxDailyLossCents     int
	MaxConsecutiveLosses  int
	CooldownSeconds       int

	// Alerting
	SlackWebhookURL   string
	DiscordWebhookURL string

	// Storage
	StorageEnabled bool
	PostgresHost   string
	PostgresPort   string
	PostgresUser   string
	PostgresPass   string
	PostgresDB     string
	PostgresSSL    string
}

// LoadFromEnv loads configuration from environment variables with defaults,
// then validates it.
func LoadFromEnv() (*Config, error) {
	environment := getEnvOrDefault("ENVIRONMENT", "development")

	cfg := &Config{
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		MetricsPort: getEnvOrDefault("METRICS_PORT", "8000"),

		APIKeyID:       os.Getenv("API_KEY_ID"),
		PrivateKeyPath: os.Getenv("PRIVATE_KEY_PATH"),
		Environment:    environment,
		BaseURL:        baseURLFor(environment),
		WebSocketURL:   webSocketURLFor(environment),

		ReadRateLimit:  getFloat64OrDefault("READ_RATE_LIMIT", 20.0),
		WriteRateLimit: getFloat64OrDefault("WRITE_RATE_LIMIT", 10.0),

		MinProfitCents:    getIntOrDefault("MIN_PROFIT_CENTS", 2),
		MinPriceDiffCents: getIntOrDefault("MIN_PRICE_DIFF_CENTS", 1),
		TakerFeeRate:      getFloat64OrDefault("TAKER_FEE_RATE", 0.007),
		CorrelationRules:  getCorrelationRulesOrDefault("CORRELATION_RULES"),

		ParallelLegs:        getBoolOrDefault("PARALLEL_LEGS", true),
		MaxConcurrentGroups: getIntOrDefault("MAX_CONCURRENT_GROUPS", 3),

		MaxPositionPerMarket: getIntOrDefault("MAX_POSITION_PER_MARKET", 100),
		MaxExposureCents:     getIntOrDefault("MAX_EXPOSURE_CENTS", 50000),
		MaxDailyLossCents:    getIntOrDefault("MAX_DAILY_LOSS_CENTS", 10000),
		MaxConsecutiveLosses: getIntOrDefault("MAX_CONSECUTIVE_LOSSES", 5),
		CooldownSeconds:      getIntOrDefault("COOLDOWN_SECONDS", 300),

		SlackWebhookURL:   os.Getenv("SLACK_WEBHOOK_URL"),
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),

		StorageEnabled: getBoolOrDefault("STORAGE_ENABLED", false),
		PostgresHost:   getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort:   getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser:   getEnvOrDefault("POSTGRES_USER", "kalshi_arb"),
		PostgresPass:   getEnvOrDefault("POSTGRES_PASSWORD", "kalshi_arb"),
		PostgresDB:     getEnvOrDefault("POSTGRES_DB", "kalshi_arb"),
		PostgresSSL:    getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func baseURLFor(environment string) string {
	if environment == "production" {
		return productionBaseURL
	}
	return developmentBaseURL
}

func webSocketURLFor(environment string) string {
	if environment == "production" {
		return productionWSURL
	}
	return developmentWSURL
}

// Validate checks that configuration values obey every floor/ceiling named
// in the external-interfaces contract.
func (c *Config) Validate() error {
	if c.APIKeyID == "" {
		return errors.New("API_KEY_ID cannot be empty")
	}
	if c.PrivateKeyPath == "" {
		return errors.New("PRIVATE_KEY_PATH cannot be empty")
	}
	if c.Environment != "development" && c.Environment != "production" {
		return fmt.Errorf("ENVIRONMENT must be 'development' or 'production', got %q", c.Environment)
	}

	if c.MinProfitCents < 1 {
		return fmt.Errorf("MIN_PROFIT_CENTS must be at least 1, got %d", c.MinProfitCents)
	}
	if c.MaxPositionPerMarket < 1 {
		return fmt.Errorf("MAX_POSITION_PER_MARKET must be at least 1, got %d", c.MaxPositionPerMarket)
	}
	if c.MaxExposureCents < 100 {
		return fmt.Errorf("MAX_EXPOSURE_CENTS must be at least 100, got %d", c.MaxExposureCents)
	}
	if c.MaxDailyLossCents < 100 {
		return fmt.Errorf("MAX_DAILY_LOSS_CENTS must be at least 100, got %d", c.MaxDailyLossCents)
	}
	if c.MaxConsecutiveLosses < 1 {
		return fmt.Errorf("MAX_CONSECUTIVE_LOSSES must be at least 1, got %d", c.MaxConsecutiveLosses)
	}
	if c.CooldownSeconds < 60 {
		return fmt.Errorf("COOLDOWN_SECONDS must be at least 60, got %d", c.CooldownSeconds)
	}
	if c.ReadRateLimit <= 0 {
		return fmt.Errorf("READ_RATE_LIMIT must be positive, got %f", c.ReadRateLimit)
	}
	if c.WriteRateLimit <= 0 {
		return fmt.Errorf("WRITE_RATE_LIMIT must be positive, got %f", c.WriteRateLimit)
	}
	if c.MetricsPort == "" {
		return errors.New("METRICS_PORT cannot be empty")
	}
	if c.MaxConcurrentGroups < 1 {
		return fmt.Errorf("MAX_CONCURRENT_GROUPS must be at least 1, got %d", c.MaxConcurrentGroups)
	}
	if c.TakerFeeRate < 0 {
		return fmt.Errorf("TAKER_FEE_RATE must be non-negative, got %f", c.TakerFeeRate)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

// getCorrelationRulesOrDefault parses a JSON array of
// {"pattern_a","pattern_b","relation"} objects from the named env var. An
// empty or malformed value yields no rules rather than failing startup;
// correlation rules are an optional strategy input.
func getCorrelationRulesOrDefault(key string) []arbitrage.CorrelationRule {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var raw []struct {
		PatternA string `json:"pattern_a"`
		PatternB string `json:"pattern_b"`
		Relation string `json:"relation"`
	}
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return nil
	}

	rules := make([]arbitrage.CorrelationRule, 0, len(raw))
	for _, r := range raw {
		rules = append(rules, arbitrage.CorrelationRule{
			PatternA: r.PatternA,
			PatternB: r.PatternB,
			Relation: arbitrage.Relation(r.Relation),
		})
	}
	return rules
}
