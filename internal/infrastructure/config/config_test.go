package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/fxledger/fxledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("BASE_ASSET", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.BaseAsset != "USD" {
		t.Fatalf("expected default base asset USD, got %s", cfg.BaseAsset)
	}

	if !cfg.KeepIntegrity {
		t.Fatalf("expected integrity checks enabled by default")
	}

	if cfg.RateCacheTTL != time.Minute {
		t.Fatalf("expected default rate cache TTL 60s, got %s", cfg.RateCacheTTL)
	}

	if cfg.RateLimitRPS != 0 {
		t.Fatalf("expected rate limiting disabled by default, got %f", cfg.RateLimitRPS)
	}

	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("expected default idempotency TTL 24h, got %s", cfg.IdempotencyTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("BASE_ASSET", "eur")
	t.Setenv("KEEP_INTEGRITY", "false")
	t.Setenv("LOCK_ACQUIRE_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_RPS", "50")
	t.Setenv("RATE_LIMIT_BURST", "100")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.BaseAsset != "eur" {
		t.Fatalf("expected base asset override, got %s", cfg.BaseAsset)
	}

	if cfg.KeepIntegrity {
		t.Fatalf("expected integrity checks disabled")
	}

	if cfg.LockAcquireTimeout != 5*time.Second {
		t.Fatalf("expected lock acquire timeout override, got %s", cfg.LockAcquireTimeout)
	}

	if cfg.RateLimitRPS != 50 {
		t.Fatalf("expected rate limit RPS override, got %f", cfg.RateLimitRPS)
	}

	if cfg.RateLimitBurst != 100 {
		t.Fatalf("expected rate limit burst override, got %d", cfg.RateLimitBurst)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	original := os.Getenv("HTTP_READ_TIMEOUT")
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")
	t.Cleanup(func() {
		t.Setenv("HTTP_READ_TIMEOUT", original)
	})

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}
