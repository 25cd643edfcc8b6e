package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/towerops/fieldtrack/internal/api"
	"github.com/towerops/fieldtrack/internal/audit"
	"github.com/towerops/fieldtrack/internal/cache"
	"github.com/towerops/fieldtrack/internal/config"
	"github.com/towerops/fieldtrack/internal/logger"
	"github.com/towerops/fieldtrack/internal/models"
	"github.com/towerops/fieldtrack/internal/offline"
	"github.com/towerops/fieldtrack/internal/resource"
	"github.com/towerops/fieldtrack/internal/session"
	"github.com/towerops/fieldtrack/internal/storage"
	"github.com/towerops/fieldtrack/internal/syncqueue"
)

type Globals struct {
	Debug   bool
	Server  string
	Version string
}

// App wires the client stack for a command invocation.
type App struct {
	Config    *config.Config
	Store     storage.Store
	Client    *api.Client
	Audit     *audit.Log
	Session   *session.Manager
	Cache     *cache.Cache
	Offline   *offline.Store
	Queue     *syncqueue.Queue
	Drainer   *syncqueue.Drainer
	Resources *resource.Service
}

func newApp(globals *Globals) (*App, error) {
	log.Logger = logger.Setup(globals.Debug)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if globals.Server != "" {
		cfg.ServerURL = globals.Server
	}

	store, err := storage.NewDiskStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open local storage: %w", err)
	}

	client := api.New(api.Config{
		BaseURL:           cfg.ServerURL,
		Timeout:           cfg.RequestTimeout,
		Version:           globals.Version,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.RequestBurst,
	})

	auditLog := audit.New(store, cfg.AuditCap)

	sess := session.NewManager(client, store, auditLog, session.Config{
		RefreshBuffer:        cfg.RefreshBuffer,
		RefreshCheckInterval: cfg.RefreshCheckInterval,
		SessionTimeout:       cfg.SessionTimeout,
		InactivityWarn:       cfg.InactivityWarn,
		InactivityGrace:      cfg.InactivityGrace,
		LoginAttemptWindow:   cfg.LoginAttemptWindow,
		LoginAttemptMax:      cfg.LoginAttemptMax,
	}, session.WithLogoutHandler(func(reason, message string) {
		fmt.Println(message)
	}))
	sess.Restore()

	c := cache.New(store, cfg.CacheTTL)
	off := offline.New(store, cfg.OfflineRecordCap)
	queue := syncqueue.New(store, client, c, off)
	drainer := syncqueue.NewDrainer(queue, syncqueue.DrainerConfig{
		Interval:       cfg.SyncInterval,
		InitialBackoff: cfg.SyncInitialBackoff,
		MaxBackoff:     cfg.SyncMaxBackoff,
		Multiplier:     2.0,
		MaxTries:       uint(cfg.SyncMaxTries),
	})
	svc := resource.New(sess, client, c, off, queue, auditLog)

	return &App{
		Config:    cfg,
		Store:     store,
		Client:    client,
		Audit:     auditLog,
		Session:   sess,
		Cache:     c,
		Offline:   off,
		Queue:     queue,
		Drainer:   drainer,
		Resources: svc,
	}, nil
}

// reportRejected prints field errors when a mutation was rejected locally,
// then returns the error for the exit status.
func reportRejected(fields []models.FieldError, err error) error {
	for _, f := range fields {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Field, f.Message)
	}
	return err
}

// reportResult prints a three-state mutation outcome.
func reportResult(state resource.State, entity string, id string) {
	switch state {
	case resource.StateConfirmed:
		fmt.Printf("%s %s saved.\n", entity, id)
	case resource.StatePendingSync:
		fmt.Printf("%s %s accepted locally; it will sync when the backend is reachable.\n", entity, id)
	}
}
