package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const defaultClassifierURL = "https://api-inference.huggingface.co/models/typeform/distilbert-base-uncased-mnli"

// MinSecretLength is the minimum accepted length of SESSION_SECRET in bytes.
const MinSecretLength = 32

type Config struct {
	// HTTP Server
	Port string

	// Database
	DBDriver    string
	DatabaseURL string

	// Sessions
	SessionSecret  string
	SessionTTL     time.Duration
	SessionBackend string
	CookieSecure   bool

	// Redis (session backend)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Classifier
	ClassifierEnabled bool
	ClassifierURL     string
	ClassifierToken   string
	ClassifierTimeout time.Duration
	// ClassifierCacheSize is how many descriptions keep their label; 0 disables the cache.
	ClassifierCacheSize int

	// AMQP (optional transaction events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	RateLimitPerMinute int
	LogLevel           string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8000"),

		DBDriver:    getEnv("DB_DRIVER", "sqlite"),
		DatabaseURL: getEnv("DATABASE_URL", "./data/brokemate.db"),

		// No default: a secret baked into source would sign every deployment's cookies.
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		SessionTTL:     getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionBackend: getEnv("SESSION_BACKEND", "memory"),
		CookieSecure:   getEnvBool("COOKIE_SECURE", false),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		ClassifierEnabled:   getEnvBool("CLASSIFIER_ENABLED", true),
		ClassifierURL:       getEnv("CLASSIFIER_URL", defaultClassifierURL),
		ClassifierToken:     getEnv("CLASSIFIER_TOKEN", ""),
		ClassifierTimeout:   getEnvDuration("CLASSIFIER_TIMEOUT", 5*time.Second),
		ClassifierCacheSize: getEnvInt("CLASSIFIER_CACHE_SIZE", 512),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "brokemate"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_events"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate database
	switch c.DBDriver {
	case "sqlite":
		if c.DatabaseURL == "" {
			errors = append(errors, "database path cannot be empty when using sqlite driver")
		} else {
			dir := filepath.Dir(c.DatabaseURL)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if parsedURL, err := url.Parse(c.DatabaseURL); err != nil || c.DatabaseURL == "" {
			errors = append(errors, fmt.Sprintf("invalid postgres DATABASE_URL '%s'", c.DatabaseURL))
		} else if parsedURL.Scheme != "postgres" && parsedURL.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid postgres URL scheme '%s': must be 'postgres' or 'postgresql'", parsedURL.Scheme))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid database driver '%s': must be one of [sqlite postgres]", c.DBDriver))
	}

	// Validate sessions
	if c.SessionSecret == "" {
		errors = append(errors, "SESSION_SECRET is required")
	} else if len(c.SessionSecret) < MinSecretLength {
		errors = append(errors, fmt.Sprintf("SESSION_SECRET must be at least %d bytes", MinSecretLength))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	switch c.SessionBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			errors = append(errors, "REDIS_ADDR is required when using redis session backend")
		}
		if c.RedisDB < 0 {
			errors = append(errors, fmt.Sprintf("invalid redis db %d: must not be negative", c.RedisDB))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid session backend '%s': must be one of [memory redis]", c.SessionBackend))
	}

	// Validate classifier
	if c.ClassifierEnabled && c.ClassifierURL != "" {
		if parsedURL, err := url.Parse(c.ClassifierURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid classifier URL '%s': %v", c.ClassifierURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid classifier URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
		if c.ClassifierTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("invalid classifier timeout %v: must be positive", c.ClassifierTimeout))
		}
		if c.ClassifierCacheSize < 0 {
			errors = append(errors, fmt.Sprintf("invalid classifier cache size %d: must not be negative", c.ClassifierCacheSize))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	if _, ok := parseLevel(c.LogLevel); !ok {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Level returns the slog level named by LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	lvl, _ := parseLevel(c.LogLevel)
	return lvl
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
