package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DB_HOST", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != "3000" {
		t.Fatalf("expected port 3000, got %q", cfg.HTTPPort)
	}
	if cfg.Database.Driver != DriverMySQL {
		t.Fatalf("expected mysql driver by default, got %q", cfg.Database.Driver)
	}
	if cfg.Database.Port != 3306 {
		t.Fatalf("expected mysql default port, got %d", cfg.Database.Port)
	}
	if cfg.Database.MaxConns != 10 {
		t.Fatalf("expected 10 max conns, got %d", cfg.Database.MaxConns)
	}
	if cfg.Database.QueryTimeout != 60*time.Second {
		t.Fatalf("expected 60s query timeout, got %v", cfg.Database.QueryTimeout)
	}
	if cfg.Database.InitFailurePolicy != PolicyDegraded {
		t.Fatalf("expected degraded policy, got %q", cfg.Database.InitFailurePolicy)
	}
	if cfg.Database.Configured() {
		t.Fatalf("expected database without host to be unconfigured")
	}
}

func TestLoadConfig_PostgresPortDefault(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Database.Driver != DriverPostgres || cfg.Database.Port != 5432 {
		t.Fatalf("expected postgres on 5432, got %q:%d", cfg.Database.Driver, cfg.Database.Port)
	}
	if !cfg.Database.Configured() {
		t.Fatalf("expected database with host to be configured")
	}
	if got := cfg.Database.Address(); got != "db.internal:5432" {
		t.Fatalf("unexpected address %q", got)
	}
}

func TestLoadConfig_SQLiteNeedsPath(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_HOST", "ignored")
	t.Setenv("DB_PATH", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Database.Configured() {
		t.Fatalf("expected sqlite without path to be unconfigured")
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{name: "driver", key: "DB_DRIVER", val: "oracle"},
		{name: "policy", key: "DB_INIT_FAILURE_POLICY", val: "retry"},
		{name: "max conns", key: "DB_MAX_CONNS", val: "0"},
		{name: "ssl flag", key: "DB_SSL", val: "maybe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.val)
			}
		})
	}
}

func TestLoadConfig_CORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	got := cfg.CORS.AllowedOrigins
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected origins %q", got)
	}
	if cfg.CORS.MaxAge != 600 {
		t.Fatalf("expected default max age 600, got %d", cfg.CORS.MaxAge)
	}
}
