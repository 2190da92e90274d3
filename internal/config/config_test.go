package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("LEDGER_BACKEND", "")
	t.Setenv("APP_ENV", "test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 15*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 2*time.Hour, cfg.Auth.VerifyTokenTTL)
	assert.Equal(t, 2*time.Hour, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, "refreshToken", cfg.Auth.RefreshCookieName)
	assert.Equal(t, LedgerBackendMemory, cfg.Ledger.Backend)
}

func TestLoadDurationOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("LEDGER_BACKEND", "redis")
	t.Setenv("AUTH_REFRESH_TOKEN_TTL", "7d")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("APP_CLIENT_URL", "https://app.example.org/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, "https://app.example.org", cfg.App.ClientURL)
	assert.Equal(t, LedgerBackendRedis, cfg.Ledger.Backend)
}

func TestLoadRejectsDevSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("LEDGER_BACKEND", "memory")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsPostgresLedgerWithoutDSN(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("LEDGER_BACKEND", "postgres")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"15d": 15 * 24 * time.Hour,
		"2w":  14 * 24 * time.Hour,
		"2h":  2 * time.Hour,
		"30m": 30 * time.Minute,
	}
	for raw, want := range cases {
		got, err := ParseDuration(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseDuration("xd")
	assert.Error(t, err)
}
