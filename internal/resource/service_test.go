package resource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/towerops/fieldtrack/internal/api"
	"github.com/towerops/fieldtrack/internal/audit"
	"github.com/towerops/fieldtrack/internal/cache"
	"github.com/towerops/fieldtrack/internal/models"
	"github.com/towerops/fieldtrack/internal/offline"
	"github.com/towerops/fieldtrack/internal/session"
	"github.com/towerops/fieldtrack/internal/storage"
	"github.com/towerops/fieldtrack/internal/syncqueue"
)

// testEnv is a full client stack over a switchable fake backend. Setting
// offline short-circuits every non-auth route with a connection reset,
// simulating a network outage without tearing the server down.
type testEnv struct {
	svc     *Service
	sess    *session.Manager
	cache   *cache.Cache
	offline *offline.Store
	queue   *syncqueue.Queue
	store   storage.Store

	offlineMode atomic.Bool
	siteCalls   atomic.Int32
}

func authResponse(w http.ResponseWriter) {
	_ = json.NewEncoder(w).Encode(api.AuthResponse{
		Token:        "access-1",
		RefreshToken: "refresh-1",
		ExpiresIn:    900,
		User:         models.User{ID: "u1", Email: "tech@example.com", Role: models.RoleTechnician},
	})
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/verify", func(w http.ResponseWriter, r *http.Request) { authResponse(w) })
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) { authResponse(w) })
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {})

	mux.HandleFunc("GET /sites", func(w http.ResponseWriter, r *http.Request) {
		env.siteCalls.Add(1)
		_ = json.NewEncoder(w).Encode([]models.Site{{ID: "srv-1", Name: "Alpha", Region: "north", Status: "active"}})
	})
	mux.HandleFunc("GET /sites/{id}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.Site{ID: r.PathValue("id"), Name: "Alpha", Region: "north", Status: "active"})
	})
	mux.HandleFunc("POST /sites", func(w http.ResponseWriter, r *http.Request) {
		var site models.Site
		_ = json.NewDecoder(r.Body).Decode(&site)
		site.ID = "srv-new"
		_ = json.NewEncoder(w).Encode(site)
	})
	mux.HandleFunc("PUT /sites/{id}", func(w http.ResponseWriter, r *http.Request) {
		var site models.Site
		_ = json.NewDecoder(r.Body).Decode(&site)
		site.ID = r.PathValue("id")
		_ = json.NewEncoder(w).Encode(site)
	})
	mux.HandleFunc("GET /fuel/site/{id}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]models.FuelLog{{ID: "f-1", SiteID: r.PathValue("id"), Liters: 100}})
	})
	mux.HandleFunc("POST /fuel", func(w http.ResponseWriter, r *http.Request) {
		var entry models.FuelLog
		_ = json.NewDecoder(r.Body).Decode(&entry)
		entry.ID = "f-new"
		_ = json.NewEncoder(w).Encode(entry)
	})
	mux.HandleFunc("GET /maintenance/site/{id}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]models.MaintenanceLog{{ID: "m-1", SiteID: r.PathValue("id"), Category: "preventive"}})
	})
	mux.HandleFunc("POST /maintenance", func(w http.ResponseWriter, r *http.Request) {
		var entry models.MaintenanceLog
		_ = json.NewDecoder(r.Body).Decode(&entry)
		entry.ID = "m-new"
		_ = json.NewEncoder(w).Encode(entry)
	})
	mux.HandleFunc("POST /sync", func(w http.ResponseWriter, r *http.Request) {
		var req api.SyncRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		n := len(req.Operations)
		_ = json.NewEncoder(w).Encode(api.SyncResult{Success: n, Processed: n})
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if env.offlineMode.Load() && r.URL.Path != "/auth/logout" {
			// Drop the connection so the client sees a transport failure.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	store := storage.NewMemoryStore()
	client := api.New(api.Config{BaseURL: server.URL, Version: "test"})
	auditLog := audit.New(store, 100)

	cfg := session.DefaultConfig()
	cfg.RefreshCheckInterval = time.Hour
	sess := session.NewManager(client, store, auditLog, cfg)

	c := cache.New(store, time.Hour)
	off := offline.New(store, 10)
	queue := syncqueue.New(store, client, c, off)

	env.store = store
	env.sess = sess
	env.cache = c
	env.offline = off
	env.queue = queue
	env.svc = New(sess, client, c, off, queue, auditLog)

	_, err := sess.Login(context.Background(), "tech@example.com", "password123")
	require.NoError(t, err)

	return env
}

func TestSitesRead(t *testing.T) {
	t.Run("network read populates cache and offline store", func(t *testing.T) {
		env := newTestEnv(t)

		sites, err := env.svc.Sites(context.Background(), ReadOptions{})
		require.NoError(t, err)
		require.Len(t, sites, 1)
		assert.Equal(t, "srv-1", sites[0].ID)

		// Second read is served from cache.
		_, err = env.svc.Sites(context.Background(), ReadOptions{})
		require.NoError(t, err)
		assert.Equal(t, int32(1), env.siteCalls.Load())

		// The offline store picked up a copy.
		assert.Len(t, env.offline.Sites(), 1)
	})

	t.Run("refresh bypasses the cache", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.Sites(context.Background(), ReadOptions{})
		require.NoError(t, err)

		_, err = env.svc.Sites(context.Background(), ReadOptions{Refresh: true})
		require.NoError(t, err)
		assert.Equal(t, int32(2), env.siteCalls.Load())
	})

	t.Run("offline falls back to the last known copies", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.Sites(context.Background(), ReadOptions{})
		require.NoError(t, err)

		env.offlineMode.Store(true)
		env.cache.InvalidateAll()

		sites, err := env.svc.Sites(context.Background(), ReadOptions{})
		require.NoError(t, err)
		require.Len(t, sites, 1)
		assert.Equal(t, "srv-1", sites[0].ID)
	})

	t.Run("offline fallback honours list filters", func(t *testing.T) {
		env := newTestEnv(t)
		env.offline.UpsertSite(models.Site{ID: "n1", Name: "North Ridge", Region: "north", Status: "active"})
		env.offline.UpsertSite(models.Site{ID: "s1", Name: "South Gate", Region: "south", Status: "inactive"})
		env.offlineMode.Store(true)

		byRegion, err := env.svc.Sites(context.Background(), ReadOptions{Params: api.ListParams{Region: "north"}})
		require.NoError(t, err)
		require.Len(t, byRegion, 1)
		assert.Equal(t, "n1", byRegion[0].ID)

		byStatus, err := env.svc.Sites(context.Background(), ReadOptions{Params: api.ListParams{Status: "inactive"}})
		require.NoError(t, err)
		require.Len(t, byStatus, 1)
		assert.Equal(t, "s1", byStatus[0].ID)

		// A filter nothing matches is an error, not an empty success.
		_, err = env.svc.Sites(context.Background(), ReadOptions{Params: api.ListParams{Region: "east"}})
		require.Error(t, err)
	})

	t.Run("offline with nothing stored surfaces a user-facing error", func(t *testing.T) {
		env := newTestEnv(t)
		env.offlineMode.Store(true)

		_, err := env.svc.Sites(context.Background(), ReadOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Network unavailable")
	})

	t.Run("distinct list params get distinct cache entries", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.Sites(context.Background(), ReadOptions{Params: api.ListParams{Region: "north"}})
		require.NoError(t, err)
		_, err = env.svc.Sites(context.Background(), ReadOptions{Params: api.ListParams{Region: "south"}})
		require.NoError(t, err)

		assert.Equal(t, int32(2), env.siteCalls.Load())
	})
}

func TestSiteRead(t *testing.T) {
	env := newTestEnv(t)

	site, err := env.svc.Site(context.Background(), "srv-1", ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "srv-1", site.ID)

	t.Run("offline fallback for a single site", func(t *testing.T) {
		env.offlineMode.Store(true)
		env.cache.InvalidateAll()

		got, err := env.svc.Site(context.Background(), "srv-1", ReadOptions{})
		require.NoError(t, err)
		assert.Equal(t, "Alpha", got.Name)
	})

	t.Run("unknown site while offline", func(t *testing.T) {
		_, err := env.svc.Site(context.Background(), "zzz", ReadOptions{})
		require.Error(t, err)
	})
}

func TestCreateSite(t *testing.T) {
	site := models.Site{Name: "Bravo", Region: "south", Status: "active"}

	t.Run("confirmed when the backend is reachable", func(t *testing.T) {
		env := newTestEnv(t)

		res, err := env.svc.CreateSite(context.Background(), site)
		require.NoError(t, err)
		assert.Equal(t, StateConfirmed, res.State)
		assert.Equal(t, "srv-new", res.Entity.ID)
		assert.Empty(t, res.Entity.Sync)
		assert.Zero(t, env.svc.Pending())
	})

	t.Run("rejected on validation failure without touching the network", func(t *testing.T) {
		env := newTestEnv(t)

		res, err := env.svc.CreateSite(context.Background(), models.Site{Latitude: 200})
		require.NoError(t, err)
		assert.Equal(t, StateRejected, res.State)
		assert.NotEmpty(t, res.Fields)
		assert.Zero(t, env.svc.Pending())
	})

	t.Run("pending when the backend is unreachable", func(t *testing.T) {
		env := newTestEnv(t)
		env.offlineMode.Store(true)

		res, err := env.svc.CreateSite(context.Background(), site)
		require.NoError(t, err)
		assert.Equal(t, StatePendingSync, res.State)
		assert.NotEmpty(t, res.Entity.ID)
		assert.Equal(t, models.SyncStatusPending, res.Entity.Sync)
		assert.Equal(t, 1, env.svc.Pending())

		// The optimistic record is visible in a subsequent read.
		sites, err := env.svc.Sites(context.Background(), ReadOptions{})
		require.NoError(t, err)
		require.Len(t, sites, 1)
		assert.Equal(t, res.Entity.ID, sites[0].ID)
		assert.Equal(t, models.SyncStatusPending, sites[0].Sync)
	})

	t.Run("queued operation drains once back online", func(t *testing.T) {
		env := newTestEnv(t)
		env.offlineMode.Store(true)

		res, err := env.svc.CreateSite(context.Background(), site)
		require.NoError(t, err)
		require.Equal(t, StatePendingSync, res.State)

		env.offlineMode.Store(false)

		result, err := env.svc.SyncNow(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, result.Success)
		assert.Zero(t, env.svc.Pending())

		// The pending local record was reconciled away.
		assert.Empty(t, env.offline.Sites())
	})
}

func TestUpdateSite(t *testing.T) {
	t.Run("missing id rejected", func(t *testing.T) {
		env := newTestEnv(t)

		res, err := env.svc.UpdateSite(context.Background(), models.Site{Name: "Alpha", Region: "north"})
		require.NoError(t, err)
		assert.Equal(t, StateRejected, res.State)
	})

	t.Run("pending update keeps the site id", func(t *testing.T) {
		env := newTestEnv(t)
		env.offlineMode.Store(true)

		res, err := env.svc.UpdateSite(context.Background(), models.Site{ID: "srv-1", Name: "Alpha v2", Region: "north"})
		require.NoError(t, err)
		assert.Equal(t, StatePendingSync, res.State)
		assert.Equal(t, "srv-1", res.Entity.ID)
		assert.Equal(t, 1, env.svc.Pending())
	})
}

func TestAddFuelLog(t *testing.T) {
	entry := models.FuelLog{SiteID: "srv-1", Liters: 250, Cost: 300}

	t.Run("confirmed online", func(t *testing.T) {
		env := newTestEnv(t)

		res, err := env.svc.AddFuelLog(context.Background(), entry)
		require.NoError(t, err)
		assert.Equal(t, StateConfirmed, res.State)
		assert.Equal(t, "f-new", res.Entity.ID)
	})

	t.Run("pending offline and visible per site", func(t *testing.T) {
		env := newTestEnv(t)
		env.offlineMode.Store(true)

		res, err := env.svc.AddFuelLog(context.Background(), entry)
		require.NoError(t, err)
		assert.Equal(t, StatePendingSync, res.State)

		logs, err := env.svc.FuelLogs(context.Background(), "srv-1", ReadOptions{})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, models.SyncStatusPending, logs[0].Sync)
	})

	t.Run("invalid entry rejected", func(t *testing.T) {
		env := newTestEnv(t)

		res, err := env.svc.AddFuelLog(context.Background(), models.FuelLog{SiteID: "srv-1"})
		require.NoError(t, err)
		assert.Equal(t, StateRejected, res.State)
	})
}

func TestAddMaintenanceLog(t *testing.T) {
	entry := models.MaintenanceLog{SiteID: "srv-1", Category: "corrective", Description: "replaced rectifier"}

	t.Run("confirmed online", func(t *testing.T) {
		env := newTestEnv(t)

		res, err := env.svc.AddMaintenanceLog(context.Background(), entry)
		require.NoError(t, err)
		assert.Equal(t, StateConfirmed, res.State)
		assert.Equal(t, "m-new", res.Entity.ID)
	})

	t.Run("pending offline", func(t *testing.T) {
		env := newTestEnv(t)
		env.offlineMode.Store(true)

		res, err := env.svc.AddMaintenanceLog(context.Background(), entry)
		require.NoError(t, err)
		assert.Equal(t, StatePendingSync, res.State)
		assert.Equal(t, 1, env.svc.Pending())
	})
}
