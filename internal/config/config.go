// Package config loads service configuration from an optional .env file,
// the process environment and command-line flags, in increasing order of
// precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nfps-events/ticketing/internal/database"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the complete runtime configuration of the server.
type Config struct {
	Port        string
	StoreDriver string
	Database    database.Config
	SQLitePath  string

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	// Location is used when rendering event start times.
	Location *time.Location

	LogLevel  slog.Level
	LogFormat string

	SeedFile string

	// IssueToken, when non-empty, makes the binary print a bearer token for
	// this user id and exit instead of serving.
	IssueToken     string
	IssueSuperuser bool
}

// Load reads .env (if present), then the environment, then parses args.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: database.ConfigFromEnv(),
	}

	fs := pflag.NewFlagSet("ticketing", pflag.ContinueOnError)
	fs.StringVar(&cfg.Port, "port", getEnv("PORT", "8080"), "HTTP listen port")
	fs.StringVar(&cfg.StoreDriver, "store", getEnv("STORE_DRIVER", DriverPostgres), "storage backend: postgres or sqlite")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", getEnv("SQLITE_PATH", "ticketing.db"), "SQLite database file (store=sqlite)")
	fs.StringVar(&cfg.JWTIssuer, "jwt-issuer", getEnv("JWT_ISSUER", "nfps-events"), "issuer claim for bearer tokens")
	tokenTTL := fs.String("token-ttl", getEnv("TOKEN_TTL", "24h"), "lifetime of tokens printed by --issue-token")
	fs.StringVar(&cfg.SeedFile, "seed", os.Getenv("SEED_FILE"), "YAML fixture file loaded at startup")
	fs.StringVar(&cfg.IssueToken, "issue-token", "", "print a bearer token for this user id and exit")
	fs.BoolVar(&cfg.IssueSuperuser, "superuser", false, "with --issue-token: mark the token as staff")
	timeZone := fs.String("time-zone", getEnv("TIME_ZONE", "Asia/Dhaka"), "IANA time zone for rendering event times")
	logLevel := fs.String("log-level", getEnv("LOG_LEVEL", "info"), "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "json"), "json or text")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if len(cfg.JWTSecret) < 16 {
		return nil, fmt.Errorf("JWT_SECRET must be set to at least 16 bytes")
	}

	cfg.StoreDriver = strings.ToLower(cfg.StoreDriver)
	switch cfg.StoreDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	ttl, err := time.ParseDuration(*tokenTTL)
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("token ttl %q must be a positive duration", *tokenTTL)
	}
	cfg.TokenTTL = ttl

	loc, err := time.LoadLocation(*timeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", *timeZone, err)
	}
	cfg.Location = loc

	if err := cfg.LogLevel.UnmarshalText([]byte(*logLevel)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", *logLevel, err)
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}

	return cfg, nil
}

// NewLogger builds the process logger described by the config.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
