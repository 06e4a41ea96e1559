// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agroline/fieldops/pkg/observability"
	"github.com/agroline/fieldops/pkg/storage"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Database      storage.PostgresConfig
	Redis         storage.RedisConfig
	Approvals     ApprovalsConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// ApprovalsConfig holds approval workflow settings.
type ApprovalsConfig struct {
	// ChainTemplatePath points to the YAML file overriding the built-in
	// approval chains. Empty means built-ins only.
	ChainTemplatePath string
	// WatchTemplates reloads the template file on change.
	WatchTemplates bool
	// CacheTTL bounds staleness of per-viewer approval lists.
	CacheTTL time.Duration
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("FIELDOPS_HOST", "0.0.0.0"),
			Port:            getEnv("FIELDOPS_PORT", "8080"),
			ReadTimeout:     getEnvDuration("FIELDOPS_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("FIELDOPS_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("FIELDOPS_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("FIELDOPS_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("FIELDOPS_HEALTH_PORT", "9090"),
		},
		Database: storage.PostgresConfig{
			DSN:             getEnv("FIELDOPS_POSTGRES_URL", ""),
			MaxOpenConns:    getEnvInt("FIELDOPS_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns:    getEnvInt("FIELDOPS_POSTGRES_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("FIELDOPS_POSTGRES_CONN_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("FIELDOPS_POSTGRES_CONN_IDLE_TIME", 5*time.Minute),
		},
		Redis: storage.RedisConfig{
			URL:        getEnv("FIELDOPS_REDIS_URL", ""),
			Password:   getEnv("FIELDOPS_REDIS_PASSWORD", ""),
			DB:         getEnvInt("FIELDOPS_REDIS_DB", 0),
			MaxRetries: getEnvInt("FIELDOPS_REDIS_MAX_RETRIES", 0),
			PoolSize:   getEnvInt("FIELDOPS_REDIS_POOL_SIZE", 0),
			ListTTL:    getEnvDuration("FIELDOPS_REDIS_LIST_TTL", 5*time.Minute),
		},
		Approvals: ApprovalsConfig{
			ChainTemplatePath: getEnv("FIELDOPS_CHAIN_TEMPLATES", ""),
			WatchTemplates:    getEnvBool("FIELDOPS_CHAIN_TEMPLATES_WATCH", false),
			CacheTTL:          getEnvDuration("FIELDOPS_APPROVALS_CACHE_TTL", 5*time.Minute),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.ParseLevel(getEnv("FIELDOPS_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("FIELDOPS_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("FIELDOPS_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("FIELDOPS_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("FIELDOPS_OTEL_SERVICE_NAME", "fieldops"),
			OTelServiceVersion: getEnv("FIELDOPS_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("FIELDOPS_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for conflicts and omissions.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("FIELDOPS_POSTGRES_URL is required")
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

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
