package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "DB_PATH", "DATABASE_URL", "JWT_SECRET", "CORS_ORIGINS", "PUBLIC_URL", "INVITE_TTL", "INVITE_RATE_PER_MIN", "DEV_MODE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "vaad.db", cfg.DBPath)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.PublicURL)
	assert.Equal(t, 168*time.Hour, cfg.InviteTTL)
	assert.Equal(t, 5, cfg.InviteRatePerMin)
	assert.False(t, cfg.DevMode)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://vaad@localhost/vaad")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("PUBLIC_URL", "https://vaad.example.com")
	t.Setenv("INVITE_TTL", "24h")
	t.Setenv("INVITE_RATE_PER_MIN", "10")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, "https://vaad.example.com", cfg.PublicURL)
	assert.Equal(t, 24*time.Hour, cfg.InviteTTL)
	assert.Equal(t, 10, cfg.InviteRatePerMin)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("PORT", "eighty")
	_, err := Load()
	assert.ErrorContains(t, err, "invalid PORT")

	t.Setenv("PORT", "8080")
	t.Setenv("INVITE_TTL", "a week")
	_, err = Load()
	assert.ErrorContains(t, err, "invalid INVITE_TTL")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{DBDriver: "sqlite", DBPath: "vaad.db", JWTSecret: "k", InviteTTL: time.Hour, InviteRatePerMin: 5}
	}

	assert.NoError(t, base().Validate())

	c := base()
	c.JWTSecret = ""
	assert.ErrorContains(t, c.Validate(), "JWT_SECRET")

	c.DevMode = true
	require.NoError(t, c.Validate())
	assert.Equal(t, DevSecret, c.JWTSecret)

	c = base()
	c.DBDriver = "postgres"
	assert.ErrorContains(t, c.Validate(), "DATABASE_URL")

	c = base()
	c.DBDriver = "mysql"
	assert.Error(t, c.Validate())
}
