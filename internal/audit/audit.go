// Package audit keeps bounded append-only logs of auth and resource events.
// Pure side-channel for debugging and status displays.
package audit

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/towerops/fieldtrack/internal/storage"
)

// DefaultCap bounds each log; oldest entries beyond the cap are dropped.
const DefaultCap = 100

// Entry is one recorded event.
type Entry struct {
	At      time.Time         `json:"at"`
	Event   string            `json:"event"`
	Details map[string]string `json:"details,omitempty"`
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// Log records security events and resource activity, newest first,
// persisted through the durable store.
type Log struct {
	mu    sync.Mutex
	store storage.Store
	cap   int
	now   func() time.Time

	security   []Entry
	activities []Entry
}

// New loads any persisted entries from the store.
func New(store storage.Store, capacity int, opts ...Option) *Log {
	if capacity <= 0 {
		capacity = DefaultCap
	}

	l := &Log{store: store, cap: capacity, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}

	_ = storage.GetJSON(store, storage.KeySecurityLogs, &l.security)
	_ = storage.GetJSON(store, storage.KeyActivities, &l.activities)

	return l
}

// Security records an auth-related event.
func (l *Log) Security(event string, details map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.security = l.appendLocked(l.security, Entry{At: l.now(), Event: event, Details: details})
	l.persistLocked(storage.KeySecurityLogs, l.security)
}

// Activity records a resource event, e.g. a created entity.
func (l *Log) Activity(action, entity, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activities = l.appendLocked(l.activities, Entry{
		At:    l.now(),
		Event: action,
		Details: map[string]string{
			"entity": entity,
			"id":     id,
		},
	})
	l.persistLocked(storage.KeyActivities, l.activities)
}

// RecentSecurity returns up to n security entries, newest first.
func (l *Log) RecentSecurity(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return recent(l.security, n)
}

// RecentActivities returns up to n activity entries, newest first.
func (l *Log) RecentActivities(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return recent(l.activities, n)
}

func (l *Log) appendLocked(list []Entry, e Entry) []Entry {
	list = append([]Entry{e}, list...)
	if len(list) > l.cap {
		list = list[:l.cap]
	}
	return list
}

func recent(list []Entry, n int) []Entry {
	if n <= 0 || n > len(list) {
		n = len(list)
	}
	out := make([]Entry, n)
	copy(out, list[:n])
	return out
}

func (l *Log) persistLocked(key string, v any) {
	if err := storage.PutJSON(l.store, key, v); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to persist audit log")
	}
}
