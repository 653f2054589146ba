package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/stockguardian/guardian-bot/internal/scoring"
)

// Thresholds are the defaults a trigger rule is created with
type Thresholds struct {
	RiskGE      float64
	SentimentLE float64
	HotGE       float64
	ChangeAbsGE float64
}

// Config holds all configuration for the application. It is built once by
// Load and handed to every component; nothing mutates it afterwards.
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	DatabaseURL      string
	DefaultUserEmail string

	// Quote cache
	RedisAddr     string
	RedisPassword string
	QuoteCacheTTL time.Duration

	// Event stream
	KafkaBrokers []string
	KafkaTopic   string

	// Azure Storage configuration (report archive)
	StorageAccount   string
	StorageContainer string

	// Notification configuration
	TelegramBotToken  string
	TelegramChatID    string
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Social sources
	RedditClientID     string
	RedditClientSecret string
	RedditUserAgent    string
	RedditSubreddits   string // "a+b+c"
	TwitterBearerToken string
	HackerNewsEnabled  bool

	// News and market data
	PolygonAPIKey      string
	YahooRSSEnabled    bool
	MarketDataProvider string // "stooq" or "mock"

	// Summarizer (OpenAI-compatible)
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	// Scheduling and fan-out
	AgentInterval time.Duration
	DailyCron     string
	Workers       int
	NewsLimit     int
	SocialLimit   int

	// Scoring
	Thresholds       Thresholds
	BulletWindow     time.Duration
	BulletLimit      int
	PublisherWeights scoring.PublisherWeights

	TracingEnabled bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DefaultUserEmail: getEnv("DEFAULT_USER_EMAIL", "default@user.com"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		QuoteCacheTTL: getDurationEnv("QUOTE_CACHE_TTL", 5*time.Minute),

		KafkaBrokers: getSliceEnv("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "guardian-events"),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "daily-reports"),

		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:    getEnv("TELEGRAM_CHAT_ID", ""),
		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		RedditUserAgent:    getEnv("REDDIT_USER_AGENT", "StockGuardian/1.0"),
		RedditSubreddits:   getEnv("REDDIT_SUBREDDITS", "wallstreetbets+stocks+investing"),
		TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
		HackerNewsEnabled:  getBoolEnv("HACKERNEWS_ENABLED", true),

		PolygonAPIKey:      getEnv("POLYGON_API_KEY", ""),
		YahooRSSEnabled:    getBoolEnv("YAHOO_RSS_ENABLED", true),
		MarketDataProvider: strings.ToLower(getEnv("MARKET_DATA_PROVIDER", "stooq")),

		LLMBaseURL: getEnv("LLM_BASE_URL", ""),
		LLMAPIKey:  getEnv("LLM_API_KEY", ""),
		LLMModel:   getEnv("LLM_MODEL", "gpt-4o-mini"),

		AgentInterval: getDurationEnv("AGENT_INTERVAL", 15*time.Minute),
		DailyCron:     getEnv("DAILY_CRON", "0 0 22 * * *"),
		Workers:       getIntEnv("AGENT_WORKERS", 4),
		NewsLimit:     getIntEnv("NEWS_LIMIT", 20),
		SocialLimit:   getIntEnv("SOCIAL_LIMIT", 20),

		Thresholds: Thresholds{
			RiskGE:      getFloatEnv("RULE_RISK_GE", 8.0),
			SentimentLE: getFloatEnv("RULE_SENTIMENT_LE", 25.0),
			HotGE:       getFloatEnv("RULE_HOT_GE", 70.0),
			ChangeAbsGE: getFloatEnv("RULE_CHANGE_ABS_GE", 6.0),
		},
		BulletWindow: getDurationEnv("BULLET_WINDOW", 48*time.Hour),
		BulletLimit:  getIntEnv("BULLET_LIMIT", 30),

		TracingEnabled: getBoolEnv("TRACING_ENABLED", false),
	}

	weights, err := LoadPublisherWeights(getEnv("PUBLISHER_WEIGHTS_FILE", ""))
	if err != nil {
		return nil, err
	}
	cfg.PublisherWeights = weights

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.MarketDataProvider != "stooq" && c.MarketDataProvider != "mock" {
		return fmt.Errorf("MARKET_DATA_PROVIDER must be 'stooq' or 'mock'")
	}

	if c.AgentInterval <= 0 {
		return fmt.Errorf("AGENT_INTERVAL must be positive")
	}

	if c.Workers < 1 {
		return fmt.Errorf("AGENT_WORKERS must be at least 1")
	}

	if c.BulletLimit < 1 || c.BulletWindow <= 0 {
		return fmt.Errorf("BULLET_LIMIT and BULLET_WINDOW must be positive")
	}

	if c.Thresholds.SentimentLE < 0 || c.Thresholds.SentimentLE > 100 {
		return fmt.Errorf("RULE_SENTIMENT_LE must be within [0, 100]")
	}

	if c.Thresholds.RiskGE < 0 || c.Thresholds.RiskGE > 10 {
		return fmt.Errorf("RULE_RISK_GE must be within [0, 10]")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	if (c.TelegramBotToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
