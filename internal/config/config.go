package config

import (
	"os"
	"strconv"
	"time"

	"turnstile/internal/cache"
	"turnstile/internal/database"
	"turnstile/internal/messaging"
	"turnstile/internal/search"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	JWTSecret string

	// Staff can still scan tickets for events this far in the past.
	ScannerLookback time.Duration

	// Pending bookings older than this are expired by the background job.
	PendingTimeout time.Duration

	Database database.Config
	NATS     messaging.Config
	Cache    cache.Config
	Search   search.Config
}

// Load reads configuration from the environment, with .env as a
// development convenience.
func Load() *Config {
	// Missing .env is fine in production
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		JWTSecret: getEnv("JWT_SECRET", ""),

		ScannerLookback: time.Duration(getEnvInt("SCANNER_LOOKBACK_DAYS", 7)) * 24 * time.Hour,
		PendingTimeout:  time.Duration(getEnvInt("PENDING_TIMEOUT_MIN", 15)) * time.Minute,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "turnstile"),
			Password:           getEnv("DB_PASSWORD", "turnstile"),
			DBName:             getEnv("DB_NAME", "turnstile"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", ""),
			ClusterID: getEnv("NATS_CLUSTER_ID", "turnstile"),
			ClientID:  getEnv("NATS_CLIENT_ID", "turnstile-api"),
		},

		Cache: cache.Config{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			TTLSec:   getEnvInt("AVAILABILITY_CACHE_TTL_SEC", 5),
		},

		Search: search.Config{
			URL:        getEnv("ELASTICSEARCH_URL", ""),
			Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:      getEnv("ELASTICSEARCH_INDEX", "events"),
			MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
		},
	}
}

// getEnv returns the environment variable value or the default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer environment variable value or the default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
