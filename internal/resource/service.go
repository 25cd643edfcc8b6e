// Package resource is the façade over session, cache, offline store, and
// sync queue. Reads are cache-first with offline fallback; mutations
// degrade to queued optimistic writes when the backend is unreachable.
package resource

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/towerops/fieldtrack/internal/api"
	"github.com/towerops/fieldtrack/internal/audit"
	"github.com/towerops/fieldtrack/internal/cache"
	"github.com/towerops/fieldtrack/internal/models"
	"github.com/towerops/fieldtrack/internal/offline"
	"github.com/towerops/fieldtrack/internal/session"
	"github.com/towerops/fieldtrack/internal/syncqueue"
)

// ReadOptions narrow read calls.
type ReadOptions struct {
	// Refresh bypasses the cache and forces a network read.
	Refresh bool

	// Params filter list reads.
	Params api.ListParams
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service composes the offline-capable resource operations.
type Service struct {
	session *session.Manager
	client  *api.Client
	cache   *cache.Cache
	offline *offline.Store
	queue   *syncqueue.Queue
	audit   *audit.Log
	now     func() time.Time
}

// New wires the façade.
func New(sess *session.Manager, client *api.Client, c *cache.Cache, off *offline.Store, queue *syncqueue.Queue, auditLog *audit.Log, opts ...Option) *Service {
	s := &Service{
		session: sess,
		client:  client,
		cache:   c,
		offline: off,
		queue:   queue,
		audit:   auditLog,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sitesListKey(p api.ListParams) string {
	return cache.Key("sites", fmt.Sprintf("page=%d", p.Page), "region="+p.Region, "status="+p.Status)
}

func siteKey(id string) string {
	return cache.Key("site", id)
}

func fuelKey(siteID string) string {
	return cache.Key("fuel", siteID)
}

func maintenanceKey(siteID string) string {
	return cache.Key("maintenance", siteID)
}

// filterSites applies the list params' region and status predicates to
// offline copies. Pagination does not apply to fallback reads; everything
// that matches is served.
func filterSites(sites []models.Site, p api.ListParams) []models.Site {
	if p.Region == "" && p.Status == "" {
		return sites
	}
	var out []models.Site
	for _, site := range sites {
		if p.Region != "" && site.Region != p.Region {
			continue
		}
		if p.Status != "" && site.Status != p.Status {
			continue
		}
		out = append(out, site)
	}
	return out
}

// userError attaches the boundary display text to a propagated error.
func userError(err error) error {
	return fmt.Errorf("%s: %w", api.UserMessage(err), err)
}

// Sites lists sites: cache first unless a refresh is forced, then network,
// then the offline store as fallback of last resort.
func (s *Service) Sites(ctx context.Context, opts ReadOptions) ([]models.Site, error) {
	key := sitesListKey(opts.Params)

	if !opts.Refresh {
		var sites []models.Site
		if s.cache.Get(key, &sites) {
			return sites, nil
		}
	}

	var sites []models.Site
	err := s.session.Do(ctx, func(ctx context.Context) error {
		var callErr error
		sites, callErr = s.client.ListSites(ctx, opts.Params)
		return callErr
	})
	if err == nil {
		s.cache.Put(key, sites)
		for _, site := range sites {
			s.offline.UpsertSite(site)
		}
		return sites, nil
	}

	if fallback := filterSites(s.offline.Sites(), opts.Params); len(fallback) > 0 {
		log.Debug().Err(err).Int("records", len(fallback)).Msg("serving sites from offline store")
		return fallback, nil
	}

	return nil, userError(err)
}

// Site fetches one site by id with the same cache/network/offline path.
func (s *Service) Site(ctx context.Context, id string, opts ReadOptions) (*models.Site, error) {
	key := siteKey(id)

	if !opts.Refresh {
		var site models.Site
		if s.cache.Get(key, &site) {
			return &site, nil
		}
	}

	var site *models.Site
	err := s.session.Do(ctx, func(ctx context.Context) error {
		var callErr error
		site, callErr = s.client.GetSite(ctx, id)
		return callErr
	})
	if err == nil {
		s.cache.Put(key, site)
		s.offline.UpsertSite(*site)
		return site, nil
	}

	if fallback, fbErr := s.offline.Site(id); fbErr == nil {
		log.Debug().Err(err).Str("site_id", id).Msg("serving site from offline store")
		return fallback, nil
	}

	return nil, userError(err)
}

// FuelLogs lists fuel logs for a site.
func (s *Service) FuelLogs(ctx context.Context, siteID string, opts ReadOptions) ([]models.FuelLog, error) {
	key := fuelKey(siteID)

	if !opts.Refresh {
		var logs []models.FuelLog
		if s.cache.Get(key, &logs) {
			return logs, nil
		}
	}

	var logs []models.FuelLog
	err := s.session.Do(ctx, func(ctx context.Context) error {
		var callErr error
		logs, callErr = s.client.ListFuelLogs(ctx, siteID)
		return callErr
	})
	if err == nil {
		s.cache.Put(key, logs)
		for _, entry := range logs {
			s.offline.UpsertFuelLog(entry)
		}
		return logs, nil
	}

	if fallback := s.offline.FuelLogsBySite(siteID); len(fallback) > 0 {
		log.Debug().Err(err).Str("site_id", siteID).Msg("serving fuel logs from offline store")
		return fallback, nil
	}

	return nil, userError(err)
}

// MaintenanceLogs lists maintenance logs for a site.
func (s *Service) MaintenanceLogs(ctx context.Context, siteID string, opts ReadOptions) ([]models.MaintenanceLog, error) {
	key := maintenanceKey(siteID)

	if !opts.Refresh {
		var logs []models.MaintenanceLog
		if s.cache.Get(key, &logs) {
			return logs, nil
		}
	}

	var logs []models.MaintenanceLog
	err := s.session.Do(ctx, func(ctx context.Context) error {
		var callErr error
		logs, callErr = s.client.ListMaintenanceLogs(ctx, siteID)
		return callErr
	})
	if err == nil {
		s.cache.Put(key, logs)
		for _, entry := range logs {
			s.offline.UpsertMaintenanceLog(entry)
		}
		return logs, nil
	}

	if fallback := s.offline.MaintenanceLogsBySite(siteID); len(fallback) > 0 {
		log.Debug().Err(err).Str("site_id", siteID).Msg("serving maintenance logs from offline store")
		return fallback, nil
	}

	return nil, userError(err)
}

// CreateSite creates a site. Offline, the site is queued and an optimistic
// local copy with a generated id is returned as pending.
func (s *Service) CreateSite(ctx context.Context, site models.Site) (Result[models.Site], error) {
	if fields := site.Validate(); len(fields) > 0 {
		return rejected[models.Site](fields), nil
	}

	var created *models.Site
	err := s.session.Do(ctx, func(ctx context.Context) error {
		var callErr error
		created, callErr = s.client.CreateSite(ctx, &site)
		return callErr
	})
	if err == nil {
		s.cache.InvalidateAll()
		s.offline.UpsertSite(*created)
		s.audit.Activity("site_created", "site", created.ID)
		return confirmed(*created), nil
	}

	if !api.IsRetryable(err) {
		return Result[models.Site]{}, userError(err)
	}

	local := site
	local.ID = uuid.NewString()
	local.Sync = models.SyncStatusPending
	local.CreatedAt = s.now()

	if qErr := s.queue.Enqueue(syncqueue.OpCreateSite, site, local.ID); qErr != nil {
		return Result[models.Site]{}, qErr
	}
	// Cached lists no longer reflect local state; evict so reads fall
	// through to the offline store.
	s.cache.InvalidateAll()
	s.offline.UpsertSite(local)
	s.audit.Activity("site_created_offline", "site", local.ID)

	return pendingSync(local), nil
}

// UpdateSite updates a site, degrading to a queued optimistic update when
// the backend is unreachable.
func (s *Service) UpdateSite(ctx context.Context, site models.Site) (Result[models.Site], error) {
	fields := site.Validate()
	if site.ID == "" {
		fields = append(fields, models.FieldError{Field: "id", Message: "id is required"})
	}
	if len(fields) > 0 {
		return rejected[models.Site](fields), nil
	}

	var updated *models.Site
	err := s.session.Do(ctx, func(ctx context.Context) error {
		var callErr error
		updated, callErr = s.client.UpdateSite(ctx, &site)
		return callErr
	})
	if err == nil {
		// Both the item and every list read may now be stale.
		s.cache.InvalidateAll()
		s.offline.UpsertSite(*updated)
		s.audit.Activity("site_updated", "site", updated.ID)
		return confirmed(*updated), nil
	}

	if !api.IsRetryable(err) {
		return Result[models.Site]{}, userError(err)
	}

	local := site
	local.Sync = models.SyncStatusPending
	local.UpdatedAt = s.now()

	if qErr := s.queue.Enqueue(syncqueue.OpUpdateSite, site, local.ID); qErr != nil {
		return Result[models.Site]{}, qErr
	}
	s.cache.InvalidateAll()
	s.offline.UpsertSite(local)
	s.audit.Activity("site_updated_offline", "site", local.ID)

	return pendingSync(local), nil
}

// AddFuelLog records a refuelling, degrading to a queued optimistic entry
// when the backend is unreachable. Callers treat a pending result as
// accepted locally, not yet confirmed.
func (s *Service) AddFuelLog(ctx context.Context, entry models.FuelLog) (Result[models.FuelLog], error) {
	if fields := entry.Validate(); len(fields) > 0 {
		return rejected[models.FuelLog](fields), nil
	}

	var created *models.FuelLog
	err := s.session.Do(ctx, func(ctx context.Context) error {
		var callErr error
		created, callErr = s.client.AddFuelLog(ctx, &entry)
		return callErr
	})
	if err == nil {
		s.cache.Invalidate(fuelKey(entry.SiteID))
		s.offline.UpsertFuelLog(*created)
		s.audit.Activity("fuel_log_added", "fuel_log", created.ID)
		return confirmed(*created), nil
	}

	if !api.IsRetryable(err) {
		return Result[models.FuelLog]{}, userError(err)
	}

	local := entry
	local.ID = uuid.NewString()
	local.Sync = models.SyncStatusPending
	local.CreatedAt = s.now()

	if qErr := s.queue.Enqueue(syncqueue.OpAddFuelLog, entry, local.ID); qErr != nil {
		return Result[models.FuelLog]{}, qErr
	}
	s.cache.Invalidate(fuelKey(entry.SiteID))
	s.offline.UpsertFuelLog(local)
	s.audit.Activity("fuel_log_added_offline", "fuel_log", local.ID)

	return pendingSync(local), nil
}

// AddMaintenanceLog records maintenance work with the same offline
// degradation as AddFuelLog.
func (s *Service) AddMaintenanceLog(ctx context.Context, entry models.MaintenanceLog) (Result[models.MaintenanceLog], error) {
	if fields := entry.Validate(); len(fields) > 0 {
		return rejected[models.MaintenanceLog](fields), nil
	}

	var created *models.MaintenanceLog
	err := s.session.Do(ctx, func(ctx context.Context) error {
		var callErr error
		created, callErr = s.client.AddMaintenanceLog(ctx, &entry)
		return callErr
	})
	if err == nil {
		s.cache.Invalidate(maintenanceKey(entry.SiteID))
		s.offline.UpsertMaintenanceLog(*created)
		s.audit.Activity("maintenance_log_added", "maintenance_log", created.ID)
		return confirmed(*created), nil
	}

	if !api.IsRetryable(err) {
		return Result[models.MaintenanceLog]{}, userError(err)
	}

	local := entry
	local.ID = uuid.NewString()
	local.Sync = models.SyncStatusPending
	local.CreatedAt = s.now()

	if qErr := s.queue.Enqueue(syncqueue.OpAddMaintenanceLog, entry, local.ID); qErr != nil {
		return Result[models.MaintenanceLog]{}, qErr
	}
	s.cache.Invalidate(maintenanceKey(entry.SiteID))
	s.offline.UpsertMaintenanceLog(local)
	s.audit.Activity("maintenance_log_added_offline", "maintenance_log", local.ID)

	return pendingSync(local), nil
}

// Pending returns the number of operations awaiting sync.
func (s *Service) Pending() int {
	return s.queue.Count()
}

// SyncNow drains the queue immediately.
func (s *Service) SyncNow(ctx context.Context) (*api.SyncResult, error) {
	return s.queue.Drain(ctx)
}
