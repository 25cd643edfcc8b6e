package session

import (
	"time"

	"github.com/towerops/fieldtrack/internal/storage"
)

// attemptLog tracks login attempt timestamps per email, persisted so the
// limit survives restarts.
type attemptLog map[string][]time.Time

func (m *Manager) loadAttempts() attemptLog {
	attempts := attemptLog{}
	_ = storage.GetJSON(m.store, storage.KeyLoginAttempts, &attempts)
	return attempts
}

func (m *Manager) saveAttempts(attempts attemptLog) {
	_ = storage.PutJSON(m.store, storage.KeyLoginAttempts, attempts)
}

// allowAttempt reports whether another login attempt for email is allowed:
// at most LoginAttemptMax attempts within the preceding window. The limit
// is per email, so attempts for other addresses are unaffected.
func (m *Manager) allowAttempt(email string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	attempts := m.loadAttempts()
	recent := m.pruneLocked(attempts[email])
	attempts[email] = recent
	m.saveAttempts(attempts)

	return len(recent) < m.cfg.LoginAttemptMax
}

// recordAttempt stores the attempt timestamp for email.
func (m *Manager) recordAttempt(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attempts := m.loadAttempts()
	attempts[email] = append(m.pruneLocked(attempts[email]), m.now())
	m.saveAttempts(attempts)
}

// clearAttempts drops the attempt history for email after a successful
// login.
func (m *Manager) clearAttempts(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attempts := m.loadAttempts()
	delete(attempts, email)
	m.saveAttempts(attempts)
}

func (m *Manager) pruneLocked(stamps []time.Time) []time.Time {
	cutoff := m.now().Add(-m.cfg.LoginAttemptWindow)
	out := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			out = append(out, ts)
		}
	}
	return out
}
