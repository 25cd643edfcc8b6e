// Package syncqueue records mutating operations that failed at the network
// layer and replays them against the backend as a single ordered batch.
package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/towerops/fieldtrack/internal/api"
	"github.com/towerops/fieldtrack/internal/cache"
	"github.com/towerops/fieldtrack/internal/offline"
	"github.com/towerops/fieldtrack/internal/storage"
)

// Operation types replayed through /sync.
const (
	OpCreateSite        = "create_site"
	OpUpdateSite        = "update_site"
	OpAddFuelLog        = "add_fuel_log"
	OpAddMaintenanceLog = "add_maintenance_log"
)

// Option configures a Queue.
type Option func(*Queue)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// Queue is the FIFO list of pending mutations. Operations are appended only
// after a real network failure and removed only once the backend confirms
// the batch. A stable per-device identifier accompanies every batch.
type Queue struct {
	mu      sync.Mutex
	store   storage.Store
	client  *api.Client
	cache   *cache.Cache
	offline *offline.Store
	now     func() time.Time

	// drainMu serializes whole drains. Snapshot, send, and trim must act
	// on the same batch, so a second drain waits rather than re-sending
	// operations already in flight.
	drainMu sync.Mutex

	ops      []api.SyncOperation
	deviceID string
}

// New loads any persisted queue from the store and resolves the device
// identifier, generating and persisting one on first use.
func New(store storage.Store, client *api.Client, c *cache.Cache, off *offline.Store, opts ...Option) *Queue {
	q := &Queue{
		store:   store,
		client:  client,
		cache:   c,
		offline: off,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}

	_ = storage.GetJSON(store, storage.KeyOfflineSyncQueue, &q.ops)
	q.deviceID = loadDeviceID(store)

	log.Debug().
		Int("pending", len(q.ops)).
		Str("device_id", q.deviceID).
		Msg("sync queue loaded")

	return q
}

func loadDeviceID(store storage.Store) string {
	if data, ok := store.Get(storage.KeyDeviceID); ok && len(data) > 0 {
		return string(data)
	}
	id := uuid.NewString()
	store.Set(storage.KeyDeviceID, []byte(id))
	return id
}

// DeviceID returns the stable per-device identifier.
func (q *Queue) DeviceID() string {
	return q.deviceID
}

// Enqueue appends an operation with its original payload. localID links the
// operation to the optimistic offline record created alongside it.
func (q *Queue) Enqueue(opType string, payload any, localID string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode operation payload: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	op := api.SyncOperation{
		ID:         uuid.NewString(),
		Type:       opType,
		Payload:    data,
		LocalID:    localID,
		EnqueuedAt: q.now(),
	}
	q.ops = append(q.ops, op)
	q.persistLocked()

	log.Info().
		Str("type", opType).
		Str("local_id", localID).
		Int("pending", len(q.ops)).
		Msg("operation queued for sync")

	return nil
}

// Count returns the number of pending operations.
func (q *Queue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Operations returns a snapshot of the pending operations in FIFO order.
func (q *Queue) Operations() []api.SyncOperation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]api.SyncOperation, len(q.ops))
	copy(out, q.ops)
	return out
}

// Clear discards every pending operation without replaying it. The caller
// owns cleaning up any optimistic records the operations referred to.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	dropped := len(q.ops)
	q.ops = nil
	q.persistLocked()
	if dropped > 0 {
		log.Warn().Int("dropped", dropped).Msg("pending operations discarded")
	}
}

// Drain sends the entire queue as one batch. On success the drained
// operations are removed, every cache entry is invalidated, and pending
// offline records are reconciled away. On failure the queue is left intact
// for a later attempt. A response reporting failed operations keeps the
// queue too: the backend does not identify which operations failed, so the
// batch is all-or-nothing from the client's perspective. Only one drain is
// ever in flight; a concurrent caller waits, then drains whatever remains.
func (q *Queue) Drain(ctx context.Context) (*api.SyncResult, error) {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	q.mu.Lock()
	batch := make([]api.SyncOperation, len(q.ops))
	copy(batch, q.ops)
	q.mu.Unlock()

	if len(batch) == 0 {
		return &api.SyncResult{}, nil
	}

	req := &api.SyncRequest{
		Operations: batch,
		DeviceID:   q.deviceID,
		Timestamp:  q.now(),
	}

	result, err := q.client.Sync(ctx, req)
	if err != nil {
		log.Warn().Err(err).Int("operations", len(batch)).Msg("sync batch failed")
		return nil, err
	}

	if result.Failed > 0 {
		log.Warn().
			Int("success", result.Success).
			Int("failed", result.Failed).
			Msg("sync batch reported failures, keeping queue")
		return result, fmt.Errorf("sync batch reported %d failed operations", result.Failed)
	}

	localIDs := make([]string, 0, len(batch))
	for _, op := range batch {
		if op.LocalID != "" {
			localIDs = append(localIDs, op.LocalID)
		}
	}

	q.mu.Lock()
	// Operations enqueued while the batch was in flight stay queued.
	q.ops = q.ops[len(batch):]
	q.persistLocked()
	remaining := len(q.ops)
	q.mu.Unlock()

	q.cache.InvalidateAll()
	q.offline.RemovePending(localIDs)

	log.Info().
		Int("processed", result.Processed).
		Int("remaining", remaining).
		Msg("sync batch drained")

	return result, nil
}

func (q *Queue) persistLocked() {
	if err := storage.PutJSON(q.store, storage.KeyOfflineSyncQueue, q.ops); err != nil {
		log.Warn().Err(err).Msg("failed to persist sync queue")
	}
}
