package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/frontendmu/frontend.mu/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Database      DatabaseConfig
	Redis         RedisConfig
	RBAC          RBACConfig
	Features      FeatureConfig
	Worker        WorkerConfig
	Notifications NotificationConfig
	Observability ObservabilityConfig
}

// DatabaseConfig holds the PostgreSQL (or SQLite for development) settings
type DatabaseConfig struct {
	Driver      string // "postgres" or "sqlite3"
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// RedisConfig holds session store and notification settings
type RedisConfig struct {
	URL              string
	Password         string
	DB               int
	PoolSize         int
	SessionPrefix    string
	PromotionChannel string
}

// RBACConfig holds resolver settings
type RBACConfig struct {
	// CacheSize bounds the number of principals held in a resolver side-table.
	CacheSize int
}

// FeatureConfig holds feature flag settings
type FeatureConfig struct {
	RsvpPastEvents bool
	// FlagsFile, when set, is a YAML file watched for changes that overrides
	// the environment flags.
	FlagsFile string
}

// WorkerConfig holds rsvp-worker settings
type WorkerConfig struct {
	ListenAddr        string
	ReconcileSchedule string
	VerifySchedule    string
	ReconcileHorizon  time.Duration
}

// NotificationConfig holds promotion delivery settings
type NotificationConfig struct {
	// WebhookURL, when set, receives a signed POST for every promotion.
	WebhookURL    string
	WebhookSecret string
	MaxAttempts   int

	// Workers and Queue size the pool that delivers notifications off the
	// request path.
	Workers int
	Queue   int
	Timeout time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver:      getEnv("FRONTENDMU_DB_DRIVER", "postgres"),
			URL:         getEnv("FRONTENDMU_DATABASE_URL", getEnv("DATABASE_URL", "")),
			MaxConns:    getEnvInt("FRONTENDMU_DB_MAX_CONNS", 20),
			MinConns:    getEnvInt("FRONTENDMU_DB_MIN_CONNS", 2),
			Timeout:     getEnvDuration("FRONTENDMU_DB_TIMEOUT", 5*time.Second),
			MaxLifetime: getEnvDuration("FRONTENDMU_DB_MAX_LIFETIME", 30*time.Minute),
			MaxIdleTime: getEnvDuration("FRONTENDMU_DB_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:              getEnv("FRONTENDMU_REDIS_URL", ""),
			Password:         getEnv("FRONTENDMU_REDIS_PASSWORD", ""),
			DB:               getEnvInt("FRONTENDMU_REDIS_DB", 0),
			PoolSize:         getEnvInt("FRONTENDMU_REDIS_POOL_SIZE", 10),
			SessionPrefix:    getEnv("FRONTENDMU_SESSION_PREFIX", "session:"),
			PromotionChannel: getEnv("FRONTENDMU_PROMOTION_CHANNEL", "rsvp:promotions"),
		},
		RBAC: RBACConfig{
			CacheSize: getEnvInt("FRONTENDMU_RBAC_CACHE_SIZE", 1024),
		},
		Features: FeatureConfig{
			RsvpPastEvents: getEnvBool("FEATURE_RSVP_PAST_EVENTS", false),
			FlagsFile:      getEnv("FRONTENDMU_FEATURE_FLAGS_FILE", ""),
		},
		Worker: WorkerConfig{
			ListenAddr:        getEnv("FRONTENDMU_WORKER_ADDR", ":9090"),
			ReconcileSchedule: getEnv("FRONTENDMU_RECONCILE_SCHEDULE", "*/5 * * * *"),
			VerifySchedule:    getEnv("FRONTENDMU_VERIFY_SCHEDULE", "0 * * * *"),
			ReconcileHorizon:  getEnvDuration("FRONTENDMU_RECONCILE_HORIZON", 30*24*time.Hour),
		},
		Notifications: NotificationConfig{
			WebhookURL:    getEnv("FRONTENDMU_PROMOTION_WEBHOOK_URL", ""),
			WebhookSecret: getEnv("FRONTENDMU_PROMOTION_WEBHOOK_SECRET", ""),
			MaxAttempts:   getEnvInt("FRONTENDMU_PROMOTION_WEBHOOK_ATTEMPTS", 5),
			Workers:       getEnvInt("FRONTENDMU_NOTIFY_WORKERS", 2),
			Queue:         getEnvInt("FRONTENDMU_NOTIFY_QUEUE", 64),
			Timeout:       getEnvDuration("FRONTENDMU_NOTIFY_TIMEOUT", 30*time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:           parseLogLevel(getEnv("FRONTENDMU_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("FRONTENDMU_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("FRONTENDMU_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("FRONTENDMU_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("FRONTENDMU_OTEL_SERVICE_NAME", "frontendmu-authz"),
			OTelServiceVersion: getEnv("FRONTENDMU_OTEL_SERVICE_VERSION", "dev"),
			OTelInsecure:       getEnvBool("FRONTENDMU_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.Database.MaxConns <= 0 {
		return fmt.Errorf("database max connections must be positive")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database min connections (%d) exceed max connections (%d)", c.Database.MinConns, c.Database.MaxConns)
	}

	if c.RBAC.CacheSize <= 0 {
		return fmt.Errorf("rbac cache size must be positive")
	}

	if c.Redis.URL != "" && c.Redis.SessionPrefix == "" {
		return fmt.Errorf("session prefix is required when redis is configured")
	}

	if c.Worker.ReconcileSchedule == "" || c.Worker.VerifySchedule == "" {
		return fmt.Errorf("worker schedules are required")
	}

	if c.Notifications.Workers <= 0 {
		return fmt.Errorf("notification workers must be positive")
	}
	if c.Notifications.WebhookURL != "" && !strings.HasPrefix(c.Notifications.WebhookURL, "http://") && !strings.HasPrefix(c.Notifications.WebhookURL, "https://") {
		return fmt.Errorf("promotion webhook URL must be http or https: %s", c.Notifications.WebhookURL)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// OTel converts the observability settings for observability.InitOTel.
func (c ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.OTelEnabled,
		Endpoint:       c.OTelEndpoint,
		ServiceName:    c.OTelServiceName,
		ServiceVersion: c.OTelServiceVersion,
		Insecure:       c.OTelInsecure,
	}
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
