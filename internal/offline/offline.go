// Package offline holds last-known-good copies of business entities for
// fallback reads and optimistic local mutation. It is the fallback of last
// resort: every read that fails at the network layer consults this store
// before propagating an error.
package offline

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/towerops/fieldtrack/internal/models"
	"github.com/towerops/fieldtrack/internal/storage"
)

// ErrNotFound is returned when no offline record matches.
var ErrNotFound = errors.New("offline: record not found")

// DefaultCap bounds each collection; the oldest records beyond the cap are
// dropped.
const DefaultCap = 100

// Store keeps bounded, most-recent-first collections of sites, fuel logs,
// and maintenance logs, persisted through the durable store. Collections
// survive logout/login cycles so offline data outlives re-authentication.
type Store struct {
	mu    sync.RWMutex
	store storage.Store
	cap   int

	sites       []models.Site
	fuelLogs    []models.FuelLog
	maintenance []models.MaintenanceLog
}

// New loads any persisted collections from the store.
func New(store storage.Store, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCap
	}

	s := &Store{store: store, cap: capacity}

	// Missing keys just mean a fresh store.
	_ = storage.GetJSON(store, storage.KeyOfflineSites, &s.sites)
	_ = storage.GetJSON(store, storage.KeyOfflineFuelLogs, &s.fuelLogs)
	_ = storage.GetJSON(store, storage.KeyOfflineMaintenance, &s.maintenance)

	log.Debug().
		Int("sites", len(s.sites)).
		Int("fuel_logs", len(s.fuelLogs)).
		Int("maintenance_logs", len(s.maintenance)).
		Msg("offline store loaded")

	return s
}

// upsertFront inserts item at the front when no existing record matches id,
// otherwise replaces the matching record in place. The list is truncated to
// capacity, dropping the oldest entries.
func upsertFront[T any](list []T, item T, matches func(T) bool, capacity int) []T {
	for i := range list {
		if matches(list[i]) {
			list[i] = item
			return list
		}
	}
	list = append([]T{item}, list...)
	if len(list) > capacity {
		list = list[:capacity]
	}
	return list
}

func removeWhere[T any](list []T, matches func(T) bool) []T {
	out := list[:0]
	for _, item := range list {
		if !matches(item) {
			out = append(out, item)
		}
	}
	return out
}

// UpsertSite records a site copy.
func (s *Store) UpsertSite(site models.Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites = upsertFront(s.sites, site, func(x models.Site) bool { return x.ID == site.ID }, s.cap)
	s.persistLocked(storage.KeyOfflineSites, s.sites)
}

// Site returns the offline copy of a site.
func (s *Store) Site(id string) (*models.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.sites {
		if s.sites[i].ID == id {
			clone := s.sites[i]
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

// Sites returns all offline site copies, most recent first.
func (s *Store) Sites() []models.Site {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Site, len(s.sites))
	copy(out, s.sites)
	return out
}

// UpsertFuelLog records a fuel log copy.
func (s *Store) UpsertFuelLog(entry models.FuelLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fuelLogs = upsertFront(s.fuelLogs, entry, func(x models.FuelLog) bool { return x.ID == entry.ID }, s.cap)
	s.persistLocked(storage.KeyOfflineFuelLogs, s.fuelLogs)
}

// FuelLogsBySite returns offline fuel logs for a site, most recent first.
func (s *Store) FuelLogsBySite(siteID string) []models.FuelLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.FuelLog
	for _, entry := range s.fuelLogs {
		if entry.SiteID == siteID {
			out = append(out, entry)
		}
	}
	return out
}

// UpsertMaintenanceLog records a maintenance log copy.
func (s *Store) UpsertMaintenanceLog(entry models.MaintenanceLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maintenance = upsertFront(s.maintenance, entry, func(x models.MaintenanceLog) bool { return x.ID == entry.ID }, s.cap)
	s.persistLocked(storage.KeyOfflineMaintenance, s.maintenance)
}

// MaintenanceLogsBySite returns offline maintenance logs for a site, most
// recent first.
func (s *Store) MaintenanceLogsBySite(siteID string) []models.MaintenanceLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MaintenanceLog
	for _, entry := range s.maintenance {
		if entry.SiteID == siteID {
			out = append(out, entry)
		}
	}
	return out
}

// RemovePending deletes pending-sync records whose local ids appear in ids.
// Called after a sync batch drains so the next network read repopulates
// collections with server-assigned entities.
func (s *Store) RemovePending(ids []string) {
	if len(ids) == 0 {
		return
	}

	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}
	pending := func(id string, status models.SyncStatus) bool {
		_, ok := idSet[id]
		return ok && status == models.SyncStatusPending
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sites = removeWhere(s.sites, func(x models.Site) bool { return pending(x.ID, x.Sync) })
	s.fuelLogs = removeWhere(s.fuelLogs, func(x models.FuelLog) bool { return pending(x.ID, x.Sync) })
	s.maintenance = removeWhere(s.maintenance, func(x models.MaintenanceLog) bool { return pending(x.ID, x.Sync) })

	s.persistLocked(storage.KeyOfflineSites, s.sites)
	s.persistLocked(storage.KeyOfflineFuelLogs, s.fuelLogs)
	s.persistLocked(storage.KeyOfflineMaintenance, s.maintenance)
}

func (s *Store) persistLocked(key string, v any) {
	if err := storage.PutJSON(s.store, key, v); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to persist offline collection")
	}
}
