// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Data store settings
	StorePath     string
	StoreMaxConns int
	QueryMaxRows  int

	// Session settings
	HistoryMaxTurns  int
	IdleTimeout      time.Duration
	CloseGracePeriod time.Duration

	// Per-turn stage timeouts
	TranslateTimeout time.Duration
	QueryTimeout     time.Duration
	AdviceTimeout    time.Duration

	// NATS settings (audit trail; empty URL disables the broker)
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret string

	// Advice backend settings
	AnthropicAPIKey string
	OpenAIAPIKey    string
	AdviceModel     string
	AdviceMaxCalls  int

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Data store
		StorePath:     getEnv("STORE_PATH", "data/business.db"),
		StoreMaxConns: getIntEnv("STORE_MAX_CONNS", 8),
		QueryMaxRows:  getIntEnv("QUERY_MAX_ROWS", 500),

		// Sessions
		HistoryMaxTurns:  getIntEnv("HISTORY_MAX_TURNS", 50),
		IdleTimeout:      getDurationEnv("SESSION_IDLE_TIMEOUT", 15*time.Minute),
		CloseGracePeriod: getDurationEnv("SESSION_CLOSE_GRACE", 5*time.Second),

		// Stage timeouts
		TranslateTimeout: getDurationEnv("TRANSLATE_TIMEOUT", 5*time.Second),
		QueryTimeout:     getDurationEnv("QUERY_TIMEOUT", 10*time.Second),
		AdviceTimeout:    getDurationEnv("ADVICE_TIMEOUT", 60*time.Second),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// Advice backend
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AdviceModel:     getEnv("ADVICE_MODEL", ""),
		AdviceMaxCalls:  getIntEnv("ADVICE_MAX_CALLS", 16),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
