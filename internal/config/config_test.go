package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Errorf("http_addr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Trading.PriceBase != "1" || cfg.Trading.PricePointsPerUnit != "100" {
		t.Errorf("pricing = %q / %q", cfg.Trading.PriceBase, cfg.Trading.PricePointsPerUnit)
	}
	if cfg.DB.DSN != "" {
		t.Errorf("expected empty dsn, got %q", cfg.DB.DSN)
	}
	if cfg.Redis.TTL != 30*time.Second {
		t.Errorf("redis ttl = %s", cfg.Redis.TTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LX_TRADING_PRICE_POINTS_PER_UNIT", "250")
	t.Setenv("LX_DB_DSN", "postgres://localhost/lx")

	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Trading.PricePointsPerUnit != "250" {
		t.Errorf("price_points_per_unit = %q, want 250", cfg.Trading.PricePointsPerUnit)
	}
	if cfg.DB.DSN != "postgres://localhost/lx" {
		t.Errorf("dsn = %q", cfg.DB.DSN)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("server:\n  http_addr: \":9090\"\nauth:\n  jwt_secret: s3cret\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":9090" {
		t.Errorf("http_addr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("jwt_secret = %q", cfg.Auth.JWTSecret)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
		t.Fatal("expected error for missing file")
	}
}
