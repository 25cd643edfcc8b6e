package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://localhost:8080", cfg.ServerURL)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTimeout)
	assert.Equal(t, 5, cfg.LoginAttemptMax)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FIELDTRACK_SERVER_URL", "https://ops.example.com")
	t.Setenv("FIELDTRACK_CACHE_TTL", "90s")
	t.Setenv("FIELDTRACK_LOGIN_ATTEMPT_MAX", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://ops.example.com", cfg.ServerURL)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 3, cfg.LoginAttemptMax)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("FIELDTRACK_CACHE_TTL", "not-a-duration")
	t.Setenv("FIELDTRACK_AUDIT_CAP", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 100, cfg.AuditCap)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			ServerURL:       "https://localhost:8080",
			CacheTTL:        time.Minute,
			LoginAttemptMax: 5,
			RefreshBuffer:   5 * time.Minute,
			SessionTimeout:  24 * time.Hour,
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("empty server url", func(t *testing.T) {
		c := base()
		c.ServerURL = ""
		assert.Error(t, c.Validate())
	})

	t.Run("non-positive cache ttl", func(t *testing.T) {
		c := base()
		c.CacheTTL = 0
		assert.Error(t, c.Validate())
	})

	t.Run("refresh buffer longer than session timeout", func(t *testing.T) {
		c := base()
		c.RefreshBuffer = 48 * time.Hour
		assert.Error(t, c.Validate())
	})
}
