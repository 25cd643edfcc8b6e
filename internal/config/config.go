// Package config loads the client configuration from the environment, with
// optional .env support.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all tunables for the client.
type Config struct {
	ServerURL string
	DataDir   string

	RequestTimeout    time.Duration
	RequestsPerSecond float64
	RequestBurst      int

	CacheTTL time.Duration

	RefreshBuffer        time.Duration
	RefreshCheckInterval time.Duration
	SessionTimeout       time.Duration
	InactivityWarn       time.Duration
	InactivityGrace      time.Duration
	LoginAttemptWindow   time.Duration
	LoginAttemptMax      int

	OfflineRecordCap int
	AuditCap         int

	SyncInterval       time.Duration
	SyncInitialBackoff time.Duration
	SyncMaxBackoff     time.Duration
	SyncMaxTries       int
}

// Load reads configuration from environment variables, applying defaults
// for anything unset. A .env file is honoured when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	cfg := &Config{
		ServerURL: getEnv("FIELDTRACK_SERVER_URL", "https://localhost:8080"),
		DataDir:   getEnv("FIELDTRACK_DATA_DIR", ""),

		RequestTimeout:    getDuration("FIELDTRACK_REQUEST_TIMEOUT", 10*time.Second),
		RequestsPerSecond: 10,
		RequestBurst:      20,

		CacheTTL: getDuration("FIELDTRACK_CACHE_TTL", 5*time.Minute),

		RefreshBuffer:        getDuration("FIELDTRACK_REFRESH_BUFFER", 5*time.Minute),
		RefreshCheckInterval: getDuration("FIELDTRACK_REFRESH_CHECK_INTERVAL", 60*time.Second),
		SessionTimeout:       getDuration("FIELDTRACK_SESSION_TIMEOUT", 24*time.Hour),
		InactivityWarn:       getDuration("FIELDTRACK_INACTIVITY_WARN", 30*time.Minute),
		InactivityGrace:      getDuration("FIELDTRACK_INACTIVITY_GRACE", 5*time.Minute),
		LoginAttemptWindow:   getDuration("FIELDTRACK_LOGIN_ATTEMPT_WINDOW", 60*time.Minute),
		LoginAttemptMax:      getInt("FIELDTRACK_LOGIN_ATTEMPT_MAX", 5),

		OfflineRecordCap: getInt("FIELDTRACK_OFFLINE_RECORD_CAP", 100),
		AuditCap:         getInt("FIELDTRACK_AUDIT_CAP", 100),

		SyncInterval:       getDuration("FIELDTRACK_SYNC_INTERVAL", 30*time.Second),
		SyncInitialBackoff: getDuration("FIELDTRACK_SYNC_INITIAL_BACKOFF", time.Second),
		SyncMaxBackoff:     getDuration("FIELDTRACK_SYNC_MAX_BACKOFF", 60*time.Second),
		SyncMaxTries:       getInt("FIELDTRACK_SYNC_MAX_TRIES", 5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration for correctness.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("FIELDTRACK_SERVER_URL must not be empty")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("FIELDTRACK_CACHE_TTL must be positive")
	}
	if c.LoginAttemptMax <= 0 {
		return fmt.Errorf("FIELDTRACK_LOGIN_ATTEMPT_MAX must be positive")
	}
	if c.RefreshBuffer >= c.SessionTimeout {
		return fmt.Errorf("refresh buffer must be shorter than the session timeout")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid duration, using default")
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer, using default")
		return fallback
	}
	return n
}
