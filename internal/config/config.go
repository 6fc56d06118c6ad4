package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/8adimka/Go_Weather_Assistant/internal/errorsx"
)

// Config holds all configuration parameters
type Config struct {
	OpenAIApiKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	CaiyunApiKey  string
	CaiyunBaseURL string
	AmapApiKey    string
	AmapBaseURL   string

	RedisAddr string
	MongoURI  string
	MongoDB   string

	// Coordinator
	TerminationPhrase string
	MaxMessages       int
	Verbose           bool

	RetryMaxAttempts int
	RetryBaseDelayMs int
	RetryMaxDelayMs  int

	ForecastCacheTTL    time.Duration
	PromptCacheTTL      time.Duration
	ForecastRatePerSec  float64
	SharedGeocodeCache  bool
	MaxContextTokens    int
	HTTPPort            string
	APIKey              string
	RateLimitPerMinute  int
	RateLimitBurst      int
	ShutdownGracePeriod time.Duration
}

// Load reads .env.local and .env (first value wins) and then the process environment.
func Load() *Config {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: could not load %s: %v", file, err)
		}
	}

	return &Config{
		OpenAIApiKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		CaiyunApiKey:  getEnv("CAIYUN_API_KEY", ""),
		CaiyunBaseURL: getEnv("CAIYUN_BASE_URL", "https://api.caiyunapp.com/v2.6"),
		AmapApiKey:    getEnv("AMAP_API_KEY", ""),
		AmapBaseURL:   getEnv("AMAP_BASE_URL", "https://restapi.amap.com/v3/geocode/geo"),

		RedisAddr: getEnv("REDIS_ADDR", ""),
		MongoURI:  getEnv("MONGO_URI", ""),
		MongoDB:   getEnv("MONGO_DB", "weather_assistant"),

		TerminationPhrase: getEnv("TERMINATION_PHRASE", "查询完成"),
		MaxMessages:       getEnvInt("MAX_MESSAGES", 8),
		Verbose:           getEnvBool("VERBOSE", false),

		RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelayMs: getEnvInt("RETRY_BASE_DELAY_MS", 500),
		RetryMaxDelayMs:  getEnvInt("RETRY_MAX_DELAY_MS", 5000),

		ForecastCacheTTL:    getEnvDuration("FORECAST_CACHE_TTL", 30*time.Minute),
		PromptCacheTTL:      getEnvDuration("PROMPT_CACHE_TTL", time.Hour),
		ForecastRatePerSec:  getEnvFloat("FORECAST_RATE_PER_SEC", 5),
		SharedGeocodeCache:  getEnvBool("SHARED_GEOCODE_CACHE", false),
		MaxContextTokens:    getEnvInt("MAX_CONTEXT_TOKENS", 8000),
		HTTPPort:            getEnv("PORT", "8080"),
		APIKey:              getEnv("API_KEY", ""),
		RateLimitPerMinute:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		RateLimitBurst:      getEnvInt("RATE_LIMIT_BURST", 10),
		ShutdownGracePeriod: getEnvDuration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

// Validate reports missing credentials. Any error wraps errorsx.ErrConfiguration
// and is fatal at startup.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"OPENAI_API_KEY", c.OpenAIApiKey},
		{"CAIYUN_API_KEY", c.CaiyunApiKey},
		{"CAIYUN_BASE_URL", c.CaiyunBaseURL},
		{"AMAP_API_KEY", c.AmapApiKey},
		{"AMAP_BASE_URL", c.AmapBaseURL},
	}
	for _, r := range required {
		if r.value == "" {
			return errorsx.Configuration(r.name)
		}
	}
	if c.MaxMessages < 1 {
		return fmt.Errorf("%w: MAX_MESSAGES must be positive, got %d", errorsx.ErrConfiguration, c.MaxMessages)
	}
	return nil
}

// ValidateRetrieval checks only the weather and geocoding credentials.
func (c *Config) ValidateRetrieval() error {
	if c.CaiyunApiKey == "" {
		return errorsx.Configuration("CAIYUN_API_KEY")
	}
	if c.AmapApiKey == "" {
		return errorsx.Configuration("AMAP_API_KEY")
	}
	return nil
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

// getEnvInt gets environment variable as integer with fallback
func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
		log.Printf("Warning: invalid integer value for %s: %s, using default: %d", key, value, fallback)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
		log.Printf("Warning: invalid float value for %s: %s, using default: %v", key, value, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
		log.Printf("Warning: invalid boolean value for %s: %s, using default: %v", key, value, fallback)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %s", key, value, fallback)
	}
	return fallback
}
