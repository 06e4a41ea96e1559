package config

import (
	"testing"
	"time"

	"github.com/agroline/fieldops/pkg/observability"
	"github.com/agroline/fieldops/pkg/storage"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("FIELDOPS_POSTGRES_URL", "postgres://localhost/fieldops")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Server.HealthPort != "9090" {
		t.Errorf("unexpected ports %s/%s", cfg.Server.Port, cfg.Server.HealthPort)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected default pool size 25, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Approvals.CacheTTL != 5*time.Minute {
		t.Errorf("expected default cache TTL 5m, got %v", cfg.Approvals.CacheTTL)
	}
	if cfg.Observability.LogLevel != observability.InfoLevel {
		t.Errorf("expected info level, got %v", cfg.Observability.LogLevel)
	}
	if cfg.Observability.OTelEnabled {
		t.Error("OTel must default to disabled")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("FIELDOPS_POSTGRES_URL", "postgres://db/fieldops")
	t.Setenv("FIELDOPS_PORT", "8888")
	t.Setenv("FIELDOPS_LOG_LEVEL", "debug")
	t.Setenv("FIELDOPS_APPROVALS_CACHE_TTL", "90s")
	t.Setenv("FIELDOPS_CHAIN_TEMPLATES", "/etc/fieldops/chains.yaml")
	t.Setenv("FIELDOPS_CHAIN_TEMPLATES_WATCH", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "8888" {
		t.Errorf("expected port override, got %s", cfg.Server.Port)
	}
	if cfg.Observability.LogLevel != observability.DebugLevel {
		t.Errorf("expected debug level, got %v", cfg.Observability.LogLevel)
	}
	if cfg.Approvals.CacheTTL != 90*time.Second {
		t.Errorf("expected 90s TTL, got %v", cfg.Approvals.CacheTTL)
	}
	if !cfg.Approvals.WatchTemplates || cfg.Approvals.ChainTemplatePath == "" {
		t.Errorf("template settings not applied: %+v", cfg.Approvals)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("FIELDOPS_POSTGRES_URL", "postgres://db/fieldops")

	t.Run("missing database", func(t *testing.T) {
		t.Setenv("FIELDOPS_POSTGRES_URL", "")
		if _, err := LoadConfig(); err == nil {
			t.Error("expected error without postgres URL")
		}
	})

	t.Run("port clash", func(t *testing.T) {
		t.Setenv("FIELDOPS_PORT", "9090")
		if _, err := LoadConfig(); err == nil {
			t.Error("expected error when API and health ports match")
		}
	})

	t.Run("otel endpoint required", func(t *testing.T) {
		cfg := &Config{
			Server:   ServerConfig{Port: "8080", HealthPort: "9090"},
			Database: storage.DefaultPostgresConfig("postgres://db/fieldops"),
		}
		cfg.Observability.OTelEnabled = true
		if err := cfg.Validate(); err == nil {
			t.Error("expected error when OTel enabled without endpoint")
		}
	})
}
