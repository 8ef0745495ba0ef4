package config

import (
	"testing"
	"time"

	"patient-care/internal/platform/logger"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DSN", "MONGODB_URI", "CACHE_DSN", "JWT_SECRET", "TOKEN_TTL", "DEV_AUTH", "CORS_ALLOWED_ORIGINS", "SYNC_INTERVAL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	c := Load()
	if c.Addr() != ":8080" {
		t.Fatalf("expected :8080, got %s", c.Addr())
	}
	if c.DatabaseDSN != "" || c.MongoURI != "" || c.CacheDSN != "" {
		t.Fatalf("expected no stores configured by default")
	}
	if c.TokenTTL != 24*time.Hour || c.SyncInterval != 30*time.Second {
		t.Fatalf("unexpected durations: %v %v", c.TokenTTL, c.SyncInterval)
	}
	if c.DevAuth {
		t.Fatalf("dev auth must be opt-in")
	}
	if len(c.CORSAllowedOrigins) != 1 || c.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins %#v", c.CORSAllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("SYNC_INTERVAL", "45")
	t.Setenv("DEV_AUTH", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	c := Load()
	if c.Port != "9090" {
		t.Fatalf("expected port override, got %s", c.Port)
	}
	if c.TokenTTL != 2*time.Hour {
		t.Fatalf("expected 2h, got %v", c.TokenTTL)
	}
	if c.SyncInterval != 45*time.Second {
		t.Fatalf("expected 45s, got %v", c.SyncInterval)
	}
	if !c.DevAuth {
		t.Fatalf("expected dev auth enabled")
	}
	if len(c.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %#v", c.CORSAllowedOrigins)
	}
	if c.LogLevel != logger.Debug {
		t.Fatalf("expected debug level")
	}
}

func TestConfig_InsecureJWTSecret(t *testing.T) {
	tests := []struct {
		secret string
		env    string
		want   bool
	}{
		{DefaultJWTSecret, "development", false},
		{DefaultJWTSecret, "production", true},
		{DefaultJWTSecret, "staging", true},
		{"s3cr3t-from-vault", "production", false},
	}
	for _, tt := range tests {
		c := Config{JWTSecret: tt.secret, Environment: tt.env}
		if got := c.InsecureJWTSecret(); got != tt.want {
			t.Errorf("InsecureJWTSecret(%q, %q) = %v, want %v", tt.secret, tt.env, got, tt.want)
		}
	}
}
