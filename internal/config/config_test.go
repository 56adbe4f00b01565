package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "session_token", cfg.Session.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Session.Lifetime)
	assert.Equal(t, "X-Tenant-ID", cfg.Tenancy.HeaderName)
	assert.Equal(t, []string{"www", "admin"}, cfg.Tenancy.ReservedSlugs)
	assert.Equal(t, 5, cfg.Security.LockoutMaxAttempts)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SESSION_LIFETIME", "1h")
	t.Setenv("TENANT_RESERVED_SLUGS", "www,admin,internal")
	t.Setenv("RATELIMIT_RPS", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Session.Lifetime)
	assert.Equal(t, []string{"www", "admin", "internal"}, cfg.Tenancy.ReservedSlugs)
	assert.Equal(t, float64(100), cfg.RateLimit.RequestsPerSecond)
}

func TestLoad_RequiresDBPassword(t *testing.T) {
	t.Setenv("DB_PASSWORD", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_APIPrefix(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("API_PREFIX", "api/")

	_, err := Load()
	assert.Error(t, err)
}
