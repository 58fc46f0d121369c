package infra

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/pixelforge")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.TrackerInterval != 5*time.Second {
		t.Errorf("tracker interval = %s, want 5s", cfg.TrackerInterval)
	}
	if cfg.RetentionDays != 90 {
		t.Errorf("retention days = %d", cfg.RetentionDays)
	}
	if cfg.RetentionSchedule != "@daily" {
		t.Errorf("retention schedule = %q", cfg.RetentionSchedule)
	}
	if cfg.DefaultLocale != "en" {
		t.Errorf("default locale = %q", cfg.DefaultLocale)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Errorf("origins = %v, want none by default", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TRACKER_INTERVAL_SECONDS", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "120")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TrackerInterval != 2*time.Second {
		t.Errorf("tracker interval = %s", cfg.TrackerInterval)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://staging.example.com" {
		t.Errorf("origins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitPerMin != 120 {
		t.Errorf("rate limit = %d", cfg.RateLimitPerMin)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoadConfigRejectsNonPositiveInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TRACKER_INTERVAL_SECONDS", "0")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for zero interval")
	}
}
