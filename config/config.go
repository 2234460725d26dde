/*
Package config loads server and CLI settings from the environment.

SOURCES (later wins):
  1. Defaults below
  2. .env file in the working directory (optional)
  3. Process environment
  4. Command-line flags (applied by cmd/vaad)

KEYS:
  PORT                 HTTP port (default 8080)
  DB_DRIVER            sqlite | postgres (default sqlite)
  DB_PATH              SQLite file, ":memory:" allowed (default vaad.db)
  DATABASE_URL         PostgreSQL DSN, required when DB_DRIVER=postgres
  JWT_SECRET           HS256 key of the identity provider (required unless DEV_MODE)
  CORS_ORIGINS         comma-separated allowed origins (default *)
  PUBLIC_URL           base URL used in invite links (default: request host)
  INVITE_TTL           invite lifetime, Go duration (default 168h)
  INVITE_RATE_PER_MIN  redeem attempts per client per minute (default 5)
  DEV_MODE             true enables demo scenarios and a dev JWT secret
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevSecret signs tokens when DEV_MODE is on and JWT_SECRET is unset.
const DevSecret = "dev-only-secret"

// Config holds all configuration for the application.
type Config struct {
	Port int

	// Database
	DBDriver    string
	DBPath      string
	DatabaseURL string

	// Auth
	JWTSecret string

	// HTTP
	CORSOrigins []string
	PublicURL   string

	// Invites
	InviteTTL        time.Duration
	InviteRatePerMin int

	DevMode bool
}

// Load reads the .env file (if any) and the environment.
func Load() (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists && value != "" {
			return value
		}
		return defaultValue
	}

	cfg := &Config{
		DBDriver:    getEnv("DB_DRIVER", "sqlite"),
		DBPath:      getEnv("DB_PATH", "vaad.db"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		PublicURL:   getEnv("PUBLIC_URL", ""),
	}

	var err error
	cfg.Port, err = strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	cfg.InviteTTL, err = time.ParseDuration(getEnv("INVITE_TTL", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid INVITE_TTL: %w", err)
	}

	cfg.InviteRatePerMin, err = strconv.Atoi(getEnv("INVITE_RATE_PER_MIN", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid INVITE_RATE_PER_MIN: %w", err)
	}

	cfg.DevMode, err = strconv.ParseBool(getEnv("DEV_MODE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEV_MODE: %w", err)
	}

	return cfg, nil
}

// Validate checks settings that depend on each other. Call it after flags
// were applied.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	if c.JWTSecret == "" {
		if !c.DevMode {
			return fmt.Errorf("missing required environment variable: JWT_SECRET")
		}
		c.JWTSecret = DevSecret
	}
	if c.InviteTTL <= 0 {
		return fmt.Errorf("INVITE_TTL must be positive")
	}
	if c.InviteRatePerMin <= 0 {
		return fmt.Errorf("INVITE_RATE_PER_MIN must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
