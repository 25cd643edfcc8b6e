package session

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/towerops/fieldtrack/internal/api"
	"github.com/towerops/fieldtrack/internal/audit"
	"github.com/towerops/fieldtrack/internal/models"
	"github.com/towerops/fieldtrack/internal/storage"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const minPasswordLength = 8

// Logout reasons recorded in the security log and passed to the logout
// handler.
const (
	ReasonUserLogout     = "user_logout"
	ReasonRefreshFailed  = "refresh_failed"
	ReasonSessionExpired = "session_expired"
	ReasonSessionTimeout = "session_timeout"
	ReasonInactivity     = "inactivity"
)

var logoutMessages = map[string]string{
	ReasonUserLogout:     "You have been logged out.",
	ReasonRefreshFailed:  "Your session could not be renewed. Please log in again.",
	ReasonSessionExpired: "Your session has expired. Please log in again.",
	ReasonSessionTimeout: "You were logged out after an extended period.",
	ReasonInactivity:     "You were logged out due to inactivity.",
}

// Config holds the session manager's timing and throttling policy.
type Config struct {
	RefreshBuffer        time.Duration
	RefreshCheckInterval time.Duration
	SessionTimeout       time.Duration
	InactivityWarn       time.Duration
	InactivityGrace      time.Duration
	LoginAttemptWindow   time.Duration
	LoginAttemptMax      int
}

// DefaultConfig returns the default session policy.
func DefaultConfig() Config {
	return Config{
		RefreshBuffer:        5 * time.Minute,
		RefreshCheckInterval: 60 * time.Second,
		SessionTimeout:       24 * time.Hour,
		InactivityWarn:       30 * time.Minute,
		InactivityGrace:      5 * time.Minute,
		LoginAttemptWindow:   60 * time.Minute,
		LoginAttemptMax:      5,
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithWarnHandler installs the callback fired when the inactivity warning
// state is entered. The user confirms presence via ConfirmPresence.
func WithWarnHandler(fn func()) Option {
	return func(m *Manager) {
		m.onWarn = fn
	}
}

// WithLogoutHandler installs the callback fired on non-silent logouts with
// the reason and a user-facing message, signalling navigation to a login
// view.
func WithLogoutHandler(fn func(reason, message string)) Option {
	return func(m *Manager) {
		m.onLogout = fn
	}
}

// refreshCall is a single in-flight refresh shared by concurrent callers,
// so at most one refresh request is ever outstanding.
type refreshCall struct {
	done chan struct{}
	err  error
}

// Manager owns the session lifecycle. All mutable state sits behind one
// mutex: expiry checks, refresh, and teardown are read-modify-write
// sequences that must not interleave.
type Manager struct {
	mu     sync.Mutex
	client *api.Client
	store  storage.Store
	audit  *audit.Log
	cfg    Config
	now    func() time.Time

	session  *Session
	version  int
	inflight *refreshCall

	// generation invalidates in-flight refreshes: logout bumps it, and a
	// refresh that resolves against an older generation is discarded.
	generation int

	lastActivity time.Time
	warned       bool

	timers *timerSet

	onWarn   func()
	onLogout func(reason, message string)
}

// NewManager creates a session manager and installs itself as the client's
// token source. Call Restore to pick up a persisted session.
func NewManager(client *api.Client, store storage.Store, auditLog *audit.Log, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		client: client,
		store:  store,
		audit:  auditLog,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	client.SetTokenSource(m.currentToken)

	return m
}

func (m *Manager) currentToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || !m.now().Before(m.session.ExpiresAt) {
		return ""
	}
	return m.session.AccessToken
}

// Restore loads a persisted session at startup. An expired session is
// discarded silently.
func (m *Manager) Restore() bool {
	s := loadSession(m.store)
	if s == nil {
		return false
	}

	m.mu.Lock()
	if !m.now().Before(s.ExpiresAt) {
		clearSessionKeys(m.store)
		m.mu.Unlock()
		log.Debug().Msg("persisted session expired, discarded")
		return false
	}

	m.version++
	s.Version = m.version
	m.session = s
	m.lastActivity = m.now()
	m.warned = false
	m.startTimersLocked()
	m.mu.Unlock()

	log.Info().Str("user", s.User.Email).Msg("session restored")
	return true
}

// Login validates credentials locally, enforces the per-email attempt
// limit, and exchanges the credentials for a session. The rate limit check
// runs before any network call.
func (m *Manager) Login(ctx context.Context, email, password string) (*models.User, error) {
	var fields []models.FieldError
	if !emailRegex.MatchString(email) {
		fields = append(fields, models.FieldError{Field: "email", Message: "email format is invalid"})
	}
	if len(password) < minPasswordLength {
		fields = append(fields, models.FieldError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)})
	}
	if len(fields) > 0 {
		return nil, api.ValidationError(fields)
	}

	if !m.allowAttempt(email) {
		m.audit.Security("login_rate_limited", map[string]string{"email": email})
		return nil, api.NewError(api.KindRateLimited, "too many login attempts for this email")
	}
	m.recordAttempt(email)

	resp, err := m.client.VerifyAuth(ctx, email, password)
	if err != nil {
		m.audit.Security("login_failed", map[string]string{"email": email})
		return nil, err
	}

	m.mu.Lock()
	m.version++
	m.session = sessionFromResponse(resp, m.now(), m.version)
	persistSession(m.store, m.session)
	m.lastActivity = m.now()
	m.warned = false
	m.startTimersLocked()
	user := m.session.User
	m.mu.Unlock()

	m.clearAttempts(email)
	m.audit.Security("login_success", map[string]string{"email": email})
	log.Info().Str("user", email).Msg("logged in")

	return &user, nil
}

// IsAuthenticated reports whether an access token exists and its expiry is
// strictly in the future.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil && m.now().Before(m.session.ExpiresAt)
}

// CurrentUser returns the session's user profile.
func (m *Manager) CurrentUser() (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return models.User{}, false
	}
	return m.session.User, true
}

// ExpiresAt returns the session expiry, zero when no session exists.
func (m *Manager) ExpiresAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return time.Time{}
	}
	return m.session.ExpiresAt
}

// Refresh exchanges the refresh token for a new session. Concurrent callers
// share a single in-flight refresh. On failure the session is cleared
// silently and the error re-raised: a session that cannot be renewed must
// not continue to be used.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	if call := m.inflight; call != nil {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.session == nil {
		m.mu.Unlock()
		return api.NewError(api.KindNotAuthenticated, "no session to refresh")
	}

	call := &refreshCall{done: make(chan struct{})}
	m.inflight = call
	gen := m.generation
	refreshToken := m.session.RefreshToken
	m.mu.Unlock()

	resp, err := m.client.RefreshAuth(ctx, refreshToken)

	m.mu.Lock()
	m.inflight = nil

	if m.generation != gen {
		// The session was torn down while this refresh was in flight;
		// its result must not resurrect state.
		m.mu.Unlock()
		call.err = api.NewError(api.KindSessionExpired, "session ended during refresh")
		close(call.done)
		return call.err
	}

	if err != nil {
		m.teardownLocked()
		m.mu.Unlock()

		m.audit.Security("refresh_failed", nil)
		log.Warn().Err(err).Msg("token refresh failed, session cleared")

		call.err = api.NewError(api.KindSessionExpired, "token refresh failed")
		close(call.done)
		return call.err
	}

	m.version++
	m.session = sessionFromResponse(resp, m.now(), m.version)
	persistSession(m.store, m.session)
	expiresAt := m.session.ExpiresAt
	m.mu.Unlock()

	log.Debug().Time("expires_at", expiresAt).Msg("session refreshed")

	call.err = nil
	close(call.done)
	return nil
}

// Do runs an authenticated API call. A 401 triggers exactly one refresh and
// one retry; a second 401 clears the session and surfaces SessionExpired.
func (m *Manager) Do(ctx context.Context, fn func(context.Context) error) error {
	if !m.IsAuthenticated() {
		return api.NewError(api.KindNotAuthenticated, "not logged in")
	}

	err := fn(ctx)
	if !api.IsKind(err, api.KindNotAuthenticated) {
		return err
	}

	if rerr := m.Refresh(ctx); rerr != nil {
		return rerr
	}

	err = fn(ctx)
	if api.IsKind(err, api.KindNotAuthenticated) {
		m.Logout(ctx, true, ReasonSessionExpired)
		return api.NewError(api.KindSessionExpired, "session rejected after refresh")
	}
	return err
}

// Logout clears session state, timers, and storage. The backend is notified
// best-effort; a notify failure never blocks logout. Cache and offline data
// are deliberately left intact.
func (m *Manager) Logout(ctx context.Context, silent bool, reason string) {
	if reason == "" {
		reason = ReasonUserLogout
	}

	if m.IsAuthenticated() {
		if err := m.client.Logout(ctx); err != nil {
			log.Debug().Err(err).Msg("backend logout notification failed")
		}
	}

	m.mu.Lock()
	hadSession := m.session != nil
	m.teardownLocked()
	m.mu.Unlock()

	if hadSession {
		m.audit.Security("logout", map[string]string{"reason": reason})
		log.Info().Str("reason", reason).Msg("logged out")
	}

	if !silent && m.onLogout != nil {
		msg, ok := logoutMessages[reason]
		if !ok {
			msg = logoutMessages[ReasonUserLogout]
		}
		m.onLogout(reason, msg)
	}
}

// teardownLocked clears the session, invalidates in-flight refreshes, and
// stops timers. Callers hold the mutex.
func (m *Manager) teardownLocked() {
	m.generation++
	m.session = nil
	m.warned = false
	clearSessionKeys(m.store)
	m.stopTimersLocked()
}
