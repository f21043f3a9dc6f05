package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
// Sync behavior toggles (AutoSync in particular) live here and are passed
// into constructors once at wiring time; nothing reads the environment at
// call time.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Ledger
	BaseCurrency string

	// Remote ERP
	ERPAPIURL   string
	ERPAPIKey   string
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration

	// Sync
	AutoSync           bool
	SyncSchedule       string
	SyncMaxConcurrency int
	SyncRecordTimeout  time.Duration

	// Cache
	StatusCacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Storage
	PostgresDSN string
	UsePostgres bool

	// Events
	KafkaBrokers []string
	KafkaTopic   string
	UseKafka     bool
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BaseCurrency: getEnv("BASE_CURRENCY", "USD"),

		ERPAPIURL:   getEnv("ERP_API_URL", "http://localhost:8091"),
		ERPAPIKey:   getEnv("ERP_API_KEY", ""),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),

		AutoSync:           getEnv("AUTO_SYNC", "false") == "true",
		SyncSchedule:       getEnv("SYNC_SCHEDULE", "@every 15m"),
		SyncMaxConcurrency: getEnvInt("SYNC_MAX_CONCURRENCY", 8),
		SyncRecordTimeout:  getEnvDuration("SYNC_RECORD_TIMEOUT", 30*time.Second),

		StatusCacheTTL: getEnvDuration("STATUS_CACHE_TTL", 30*time.Second),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		PostgresDSN: getEnv("POSTGRES_DSN", ""),
		UsePostgres: getEnv("USE_POSTGRES", "false") == "true",

		KafkaBrokers: getEnvList("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "ledger.synced"),
		UseKafka:     getEnv("USE_KAFKA", "false") == "true",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
