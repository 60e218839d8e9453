package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Algorithm != "HS256" {
		t.Fatalf("unexpected default algorithm: %q", cfg.Algorithm)
	}
	if cfg.AccessTokenExpiry != 30*time.Minute {
		t.Fatalf("unexpected default expiry: %v", cfg.AccessTokenExpiry)
	}
	if len(cfg.AllowedCORSOrigins) != 4 {
		t.Fatalf("unexpected default origins: %v", cfg.AllowedCORSOrigins)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ALGORITHM", "HS512")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")
	t.Setenv("ALLOWED_CORS_ORIGINS", " https://app.example.com , ,https://admin.example.com ")

	cfg := Load()

	if cfg.Algorithm != "HS512" {
		t.Fatalf("unexpected algorithm: %q", cfg.Algorithm)
	}
	if cfg.AccessTokenExpiry != 5*time.Minute {
		t.Fatalf("unexpected expiry: %v", cfg.AccessTokenExpiry)
	}
	want := []string{"https://app.example.com", "https://admin.example.com"}
	if len(cfg.AllowedCORSOrigins) != len(want) {
		t.Fatalf("unexpected origins: %v", cfg.AllowedCORSOrigins)
	}
	for i, origin := range want {
		if cfg.AllowedCORSOrigins[i] != origin {
			t.Fatalf("origin %d: got %q want %q", i, cfg.AllowedCORSOrigins[i], origin)
		}
	}
}

func TestGetIntInvalidFallsBack(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "not-a-number")

	if got := GetInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30); got != 30 {
		t.Fatalf("expected fallback 30, got %d", got)
	}
}
