package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/rawblock/solsecurity/internal/heuristics"
)

// Config holds all configuration for the application
type Config struct {
	LogLevel  string
	LogPretty bool
	Helius    HeliusConfig
	Flipside  FlipsideConfig
	Engine    EngineConfig
	API       APIConfig
	Watch     WatchConfig
	Alerts    AlertConfig
}

// HeliusConfig configures the transaction source
type HeliusConfig struct {
	APIKey      string
	BaseURL     string
	RateLimit   float64 // requests per second
	TxLimit     int
	HTTPTimeout time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

// FlipsideConfig configures the known-duster list source
type FlipsideConfig struct {
	APIKey            string
	DusterURL         string
	CacheTTL          time.Duration
	FallbackAddresses []string
}

// EngineConfig selects the similarity strategy and risk scoring bounds
type EngineConfig struct {
	SimilarityStrategy  string
	TieredMinTier       int
	ShadowEnabled       bool
	SuspiciousMaxAmount decimal.Decimal
	LegitMinAmount      decimal.Decimal
	NativeUSDPrice      decimal.Decimal
	FundingLookupLimit  int
}

// APIConfig configures the HTTP service
type APIConfig struct {
	Port           string
	AuthToken      string
	AllowedOrigins []string
	RatePerMinute  float64
	RateBurst      int
}

// WatchConfig configures the periodic wallet watcher
type WatchConfig struct {
	Wallets  []string
	Interval time.Duration
}

// AlertConfig configures alert delivery
type AlertConfig struct {
	WebhookURLs        []string
	WebhookMinSeverity string
	History            int
}

const (
	DefaultHeliusBaseURL  = "https://api.helius.xyz"
	DefaultFlipsideDuster = "https://api.flipsidecrypto.com/api/v2/queries/9fe973d5-ea06-493a-b5a5-3b92f7880e7c/data/latest"
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Not fatal, as env vars might be set externally
	}

	cfg := &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),
		Helius: HeliusConfig{
			APIKey:      getEnv("HELIUS_API_KEY", ""),
			BaseURL:     strings.TrimRight(getEnv("HELIUS_BASE_URL", DefaultHeliusBaseURL), "/"),
			RateLimit:   getEnvAsFloat("HELIUS_RATE_LIMIT", 5),
			TxLimit:     getEnvAsInt("TX_LIMIT", 20),
			HTTPTimeout: getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
			MaxRetries:  getEnvAsInt("MAX_RETRIES", 1),
			RetryDelay:  getEnvAsDuration("RETRY_DELAY", 2*time.Second),
		},
		Flipside: FlipsideConfig{
			APIKey:            getEnv("FLIPSIDE_API_KEY", ""),
			DusterURL:         getEnv("FLIPSIDE_DUSTER_URL", DefaultFlipsideDuster),
			CacheTTL:          getEnvAsDuration("DUSTER_CACHE_TTL", 15*time.Minute),
			FallbackAddresses: getEnvAsList("DUSTER_FALLBACK_ADDRESSES"),
		},
		Engine: EngineConfig{
			SimilarityStrategy:  strings.ToLower(getEnv("SIMILARITY_STRATEGY", heuristics.StrategyPrefix4)),
			TieredMinTier:       getEnvAsInt("TIERED_MIN_TIER", heuristics.DefaultMinTier),
			ShadowEnabled:       getEnvAsBool("SHADOW_ENABLED", false),
			SuspiciousMaxAmount: getEnvAsDecimal("SUSPICIOUS_MAX_AMOUNT", decimal.NewFromInt(5)),
			LegitMinAmount:      getEnvAsDecimal("LEGIT_MIN_AMOUNT", decimal.Zero),
			NativeUSDPrice:      getEnvAsDecimal("NATIVE_USD_PRICE", decimal.Zero),
			FundingLookupLimit:  getEnvAsInt("FUNDING_LOOKUP_LIMIT", 100),
		},
		API: APIConfig{
			Port:           getEnv("PORT", "5339"),
			AuthToken:      getEnv("API_AUTH_TOKEN", ""),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS"),
			RatePerMinute:  getEnvAsFloat("RATE_LIMIT_PER_MIN", 60),
			RateBurst:      getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Watch: WatchConfig{
			Wallets:  getEnvAsList("WATCH_WALLETS"),
			Interval: getEnvAsDuration("WATCH_INTERVAL", 5*time.Minute),
		},
		Alerts: AlertConfig{
			WebhookURLs:        getEnvAsList("ALERT_WEBHOOK_URLS"),
			WebhookMinSeverity: strings.ToLower(getEnv("ALERT_WEBHOOK_MIN_SEVERITY", "medium")),
			History:            getEnvAsInt("ALERT_HISTORY", 1000),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with. A missing Helius
// key is not checked here; it only fails the runs that need it.
func (c *Config) Validate() error {
	if _, err := heuristics.NewStrategy(c.Engine.SimilarityStrategy, c.Engine.TieredMinTier); err != nil {
		return fmt.Errorf("SIMILARITY_STRATEGY: %w", err)
	}
	if c.Helius.TxLimit <= 0 || c.Helius.TxLimit > 100 {
		return fmt.Errorf("TX_LIMIT must be between 1 and 100, got %d", c.Helius.TxLimit)
	}
	if c.Helius.MaxRetries < 1 {
		c.Helius.MaxRetries = 1
	}
	if c.Engine.FundingLookupLimit <= 0 || c.Engine.FundingLookupLimit > 100 {
		c.Engine.FundingLookupLimit = 100
	}
	return nil
}

// ScoringOptions converts engine settings into scorer bounds
func (c *Config) ScoringOptions() heuristics.ScoringOptions {
	opts := heuristics.DefaultScoringOptions()
	opts.SuspiciousMaxAmount = c.Engine.SuspiciousMaxAmount
	opts.LegitMinAmount = c.Engine.LegitMinAmount
	opts.NativeUSDPrice = c.Engine.NativeUSDPrice
	return opts
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("30s") or bare seconds ("30")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	valueStr := getEnv(key, "")
	if value, err := decimal.NewFromString(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
