package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Trade record store credentials
	StoreBaseURL    string
	StoreAPIKey     string
	StoreClientCode string
	StoreTOTPSecret string
	BoardID         string

	// Market data provider
	MarketDataURL string
	FetchDelay    time.Duration // courtesy delay between per-symbol fetches

	// Infrastructure
	RedisAddr     string // empty disables the candle cache
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	WebhookURL    string // empty disables webhook alerts
	TelegramToken string // both telegram vars set enables telegram alerts
	TelegramChat  string
	StatePath     string

	// Engine
	RiskProfile  string // safe | balanced | bold
	ProfilesPath string // optional YAML override for profile thresholds
	Symbols      string // comma-separated pinned watchlist symbols
	HedgeSymbol  string
	NewsRiskMult float64 // manual news-risk multiplier for the review report
}

// Load reads configuration from environment variables with sensible defaults.
// Missing credentials are fatal: the engine must not start half-configured.
func Load() *Config {
	return &Config{
		StoreBaseURL:    mustEnv("STORE_BASE_URL"),
		StoreAPIKey:     mustEnv("STORE_API_KEY"),
		StoreClientCode: mustEnv("STORE_CLIENT_CODE"),
		StoreTOTPSecret: mustEnv("STORE_TOTP_SECRET"),
		BoardID:         mustEnv("BOARD_ID"),

		MarketDataURL: getEnv("MARKET_DATA_URL", "https://api.binance.com"),
		FetchDelay:    getDuration("FETCH_DELAY", 350*time.Millisecond),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/decisions.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		TelegramToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChat:  getEnv("TELEGRAM_CHAT_ID", ""),
		StatePath:     getEnv("STATE_PATH", "data/engine_state.json"),

		RiskProfile:  getEnv("RISK_PROFILE", "balanced"),
		ProfilesPath: getEnv("PROFILES_PATH", ""),
		Symbols:      getEnv("SYMBOLS", "BTCUSDT,ETHUSDT,SOLUSDT,LINKUSDT,AVAXUSDT,DOGEUSDT,FETUSDT"),
		HedgeSymbol:  getEnv("HEDGE_SYMBOL", "PAXGUSDT"),
		NewsRiskMult: getFloat("NEWS_RISK_MULT", 1.0),
	}
}

// ParseSymbols splits the pinned symbol list, dropping empty entries.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, strings.ToUpper(p))
	}
	return out
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid duration for %s: %q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid float for %s: %q, using %v", key, v, fallback)
		return fallback
	}
	return f
}
