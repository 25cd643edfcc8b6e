package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/rs/zerolog/log"
)

// Conceptual key space. Every durable value lives under one of these
// namespaces so that cache entries, offline records, session material, and
// audit logs never collide even when sharing one physical store.
const (
	KeyAuthToken     = "auth_token"
	KeyAuthRefresh   = "auth_refresh"
	KeyAuthUser      = "auth_user"
	KeyAuthExpiry    = "auth_expiry"
	KeyLoginAttempts = "login_attempts"
	KeyDeviceID      = "device_id"

	KeyOfflineSites       = "offline_sites"
	KeyOfflineFuelLogs    = "offline_fuel_logs"
	KeyOfflineMaintenance = "offline_maintenance_logs"
	KeyOfflineSyncQueue   = "offline_sync_queue"

	KeySecurityLogs = "security_logs"
	KeyActivities   = "activities"

	CachePrefix = "cache_"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("storage: key not found")

// Store is the durable key-value store backing caches, offline records, and
// the sync queue. The contract matches httpcache.Cache so that the library's
// disk and memory backends can be used directly.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
}

// NewDiskStore returns a store persisted under dir. If dir is empty the
// default is ~/.fieldtrack/data.
func NewDiskStore(dir string) (Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".fieldtrack", "data")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	log.Debug().Str("dir", dir).Msg("disk store initialized")

	return diskcache.New(dir), nil
}

// NewMemoryStore returns a store that lives for the process lifetime only.
// Used in tests and when no durable storage is wanted.
func NewMemoryStore() Store {
	return httpcache.NewMemoryCache()
}

// GetJSON loads and unmarshals the value at key into v.
func GetJSON(s Store, key string, v any) error {
	data, ok := s.Get(key)
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// PutJSON marshals v and stores it at key.
func PutJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	s.Set(key, data)
	return nil
}
