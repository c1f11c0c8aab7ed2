package config

import (
	"log/slog"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("TIME_ZONE", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("TOKEN_TTL", "")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.StoreDriver != DriverPostgres {
		t.Errorf("StoreDriver = %q, want %q", cfg.StoreDriver, DriverPostgres)
	}
	if cfg.Location.String() != "Asia/Dhaka" {
		t.Errorf("Location = %s, want Asia/Dhaka", cfg.Location)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.TokenTTL)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_DRIVER", "postgres")

	cfg, err := Load([]string{"--port", "9100", "--store", "SQLite", "--sqlite-path", "/tmp/x.db", "--log-level", "debug"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9100" {
		t.Errorf("Port = %q, want 9100", cfg.Port)
	}
	if cfg.StoreDriver != DriverSQLite {
		t.Errorf("StoreDriver = %q, want sqlite", cfg.StoreDriver)
	}
	if cfg.SQLitePath != "/tmp/x.db" {
		t.Errorf("SQLitePath = %q", cfg.SQLitePath)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		args   []string
	}{
		{name: "short secret", secret: "short"},
		{name: "unknown driver", secret: testSecret, args: []string{"--store", "mongo"}},
		{name: "bad time zone", secret: testSecret, args: []string{"--time-zone", "Mars/Olympus"}},
		{name: "bad log format", secret: testSecret, args: []string{"--log-format", "xml"}},
		{name: "negative token ttl", secret: testSecret, args: []string{"--token-ttl", "-1h"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", tt.secret)
			if _, err := Load(tt.args); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
