package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// timerSet owns the recurring session check loop. All timers are cancelled
// through a single stop channel so none can outlive the session that
// started them.
type timerSet struct {
	stopCh chan struct{}
}

// startTimersLocked (re)starts the check loop. Callers hold the mutex.
func (m *Manager) startTimersLocked() {
	m.stopTimersLocked()
	m.timers = &timerSet{stopCh: make(chan struct{})}
	go m.checkLoop(m.timers.stopCh)
}

// stopTimersLocked cancels the check loop without waiting for it; the loop
// may itself be the caller via a timeout logout.
func (m *Manager) stopTimersLocked() {
	if m.timers != nil {
		close(m.timers.stopCh)
		m.timers = nil
	}
}

// checkLoop runs the proactive refresh and timeout checks at a fixed short
// interval.
func (m *Manager) checkLoop(stopCh chan struct{}) {
	ticker := time.NewTicker(m.cfg.RefreshCheckInterval)
	defer ticker.Stop()

	log.Debug().Dur("interval", m.cfg.RefreshCheckInterval).Msg("session check loop started")

	for {
		select {
		case <-ticker.C:
			if done := m.checkOnce(); done {
				return
			}
		case <-stopCh:
			return
		}
	}
}

// checkOnce performs one round of checks. Returns true when the session
// ended and the loop should exit.
func (m *Manager) checkOnce() bool {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return true
	}
	now := m.now()
	idle := now.Sub(m.lastActivity)
	untilExpiry := m.session.ExpiresAt.Sub(now)
	warned := m.warned
	if idle >= m.cfg.InactivityWarn && !warned {
		m.warned = true
	}
	m.mu.Unlock()

	// Hard session timeout since last recorded activity.
	if idle >= m.cfg.SessionTimeout {
		log.Info().Dur("idle", idle).Msg("session timeout reached")
		m.Logout(context.Background(), false, ReasonSessionTimeout)
		return true
	}

	// Inactivity: warn first, then log out after the grace period unless
	// the user confirms presence.
	if idle >= m.cfg.InactivityWarn+m.cfg.InactivityGrace {
		log.Info().Dur("idle", idle).Msg("inactivity grace period elapsed")
		m.Logout(context.Background(), false, ReasonInactivity)
		return true
	}
	if idle >= m.cfg.InactivityWarn && !warned {
		log.Debug().Dur("idle", idle).Msg("inactivity warning")
		if m.onWarn != nil {
			m.onWarn()
		}
	}

	// Proactive refresh before the token enters the expiry buffer, so a
	// request is never served with an about-to-expire token.
	if untilExpiry <= m.cfg.RefreshBuffer {
		if err := m.Refresh(context.Background()); err != nil {
			log.Warn().Err(err).Msg("proactive refresh failed")
			return true
		}
	}

	return false
}

// Touch records user activity, resetting the inactivity clock and any
// pending warning.
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = m.now()
	m.warned = false
}

// ConfirmPresence acknowledges the inactivity warning.
func (m *Manager) ConfirmPresence() {
	m.Touch()
}
