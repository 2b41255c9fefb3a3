package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"STORAGE_DRIVER": "memory",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected addr %q", cfg.App.Addr())
	}
	if cfg.App.APIPrefix != "/api" {
		t.Fatalf("unexpected prefix %q", cfg.App.APIPrefix)
	}
	if cfg.Auth.TokenTTL() != 24*time.Hour {
		t.Fatalf("unexpected ttl %s", cfg.Auth.TokenTTL())
	}
	if cfg.Auth.BcryptCost != 10 {
		t.Fatalf("unexpected bcrypt cost %d", cfg.Auth.BcryptCost)
	}
	if cfg.Notification.LowStockThreshold != 5 {
		t.Fatalf("unexpected threshold %d", cfg.Notification.LowStockThreshold)
	}
	if cfg.Redis.Addr != "" {
		t.Fatalf("redis should be disabled by default")
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"STORAGE_DRIVER":                "postgres",
		"POSTGRES_DSN":                  "postgres://localhost/sweets",
		"APP_PORT":                      "9090",
		"AUTH_ACCESS_TOKEN_TTL_MINUTES": "15",
		"CORS_ALLOWED_ORIGINS":          "https://a.example, https://b.example ,",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.Port != "9090" {
		t.Fatalf("port not applied: %q", cfg.App.Port)
	}
	if cfg.Auth.TokenTTL() != 15*time.Minute {
		t.Fatalf("ttl not applied: %s", cfg.Auth.TokenTTL())
	}
	origins := cfg.App.AllowedOrigins()
	if len(origins) != 2 || origins[0] != "https://a.example" || origins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", origins)
	}
}

func TestLoadFrom_Validation(t *testing.T) {
	cases := map[string]map[string]string{
		"postgres without dsn": {"STORAGE_DRIVER": "postgres"},
		"unknown driver":       {"STORAGE_DRIVER": "sqlite"},
		"default secret in production": {
			"STORAGE_DRIVER": "memory",
			"APP_ENV":        "production",
		},
	}
	for name, env := range cases {
		if _, err := LoadFrom(context.Background(), envconfig.MapLookuper(env)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
