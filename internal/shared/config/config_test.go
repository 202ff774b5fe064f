package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"ENV", "IMAGE_STORE", "PHASE_SCALE", "SESSION_TTL_MINUTES", "DISPATCH_TIMEOUT_SECONDS", "FEMALE_ADVICE_FALLBACK"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.ImageStore != "local" {
		t.Fatalf("expected local image store, got %q", cfg.ImageStore)
	}
	if cfg.PhaseScale != 1 {
		t.Fatalf("expected phase scale 1, got %v", cfg.PhaseScale)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %v", cfg.SessionTTL)
	}
	if cfg.DispatchTimeout != 120*time.Second {
		t.Fatalf("expected 120s dispatch timeout, got %v", cfg.DispatchTimeout)
	}
	if cfg.FemaleAdviceFallback {
		t.Fatalf("female advice fallback should default off")
	}
}

func TestLoadOverridesAndInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "prod")
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("IMAGE_STORE", "Remote")
	t.Setenv("PHASE_SCALE", "0.25")
	t.Setenv("SESSION_TTL_MINUTES", "-4")
	t.Setenv("FEMALE_ADVICE_FALLBACK", "true")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("IMAGE_PUBLIC_BASE_URL", "https://cdn.example/")

	cfg := Load()
	if cfg.Env != "production" {
		t.Fatalf("expected production, got %q", cfg.Env)
	}
	if cfg.ImageStore != "remote" {
		t.Fatalf("expected remote, got %q", cfg.ImageStore)
	}
	if cfg.PhaseScale != 0.25 {
		t.Fatalf("expected 0.25, got %v", cfg.PhaseScale)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("invalid ttl should fall back to default, got %v", cfg.SessionTTL)
	}
	if !cfg.FemaleAdviceFallback {
		t.Fatalf("expected female advice fallback on")
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowOrigin)
	}
	if cfg.ImagePublicBaseURL != "https://cdn.example" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.ImagePublicBaseURL)
	}
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SERVICE_A_URL=http://a.local\nSERVICE_B_URL=http://b.local\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("SERVICE_B_URL", "http://b.override")
	t.Setenv("SERVICE_A_URL", "")
	os.Unsetenv("SERVICE_A_URL")

	cfg := Load()
	if cfg.ServiceAURL != "http://a.local" {
		t.Fatalf("expected value from .env, got %q", cfg.ServiceAURL)
	}
	if cfg.ServiceBURL != "http://b.override" {
		t.Fatalf("environment should win over .env, got %q", cfg.ServiceBURL)
	}
}
