// Package session manages the authenticated user's token material, its
// proactive and reactive refresh, login throttling, and the activity
// timeouts that end a session.
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/towerops/fieldtrack/internal/api"
	"github.com/towerops/fieldtrack/internal/models"
	"github.com/towerops/fieldtrack/internal/storage"
)

// Session holds the access token, refresh token, user profile, and expiry.
// While a manager reports IsAuthenticated, ExpiresAt is strictly in the
// future; once past, the session is treated as absent.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         models.User
	ExpiresAt    time.Time
	Version      int
}

// sessionFromResponse builds a session from an auth response. When the
// backend omits expiresIn, the access token's own exp claim is used; a
// token carrying neither gets a conservative one-hour expiry.
func sessionFromResponse(resp *api.AuthResponse, now time.Time, version int) *Session {
	expiresAt := now.Add(time.Hour)
	if resp.ExpiresIn > 0 {
		expiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	} else if exp, ok := tokenExpiry(resp.Token); ok {
		expiresAt = exp
	}

	return &Session{
		AccessToken:  resp.Token,
		RefreshToken: resp.RefreshToken,
		User:         resp.User,
		ExpiresAt:    expiresAt,
		Version:      version,
	}
}

// tokenExpiry extracts the exp claim from a JWT access token without
// verifying the signature; verification is the backend's job, the client
// only needs the expiry.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// persistSession writes the session's parts under the auth keys.
func persistSession(store storage.Store, s *Session) {
	store.Set(storage.KeyAuthToken, []byte(s.AccessToken))
	store.Set(storage.KeyAuthRefresh, []byte(s.RefreshToken))
	store.Set(storage.KeyAuthExpiry, []byte(s.ExpiresAt.Format(time.RFC3339Nano)))
	_ = storage.PutJSON(store, storage.KeyAuthUser, s.User)
}

// clearSessionKeys removes only the auth namespace. Cache and offline data
// survive logout so queued records outlive re-authentication.
func clearSessionKeys(store storage.Store) {
	store.Delete(storage.KeyAuthToken)
	store.Delete(storage.KeyAuthRefresh)
	store.Delete(storage.KeyAuthExpiry)
	store.Delete(storage.KeyAuthUser)
}

// loadSession reads a persisted session, returning nil when absent or
// incomplete.
func loadSession(store storage.Store) *Session {
	token, ok := store.Get(storage.KeyAuthToken)
	if !ok || len(token) == 0 {
		return nil
	}
	refresh, ok := store.Get(storage.KeyAuthRefresh)
	if !ok {
		return nil
	}
	expiryRaw, ok := store.Get(storage.KeyAuthExpiry)
	if !ok {
		return nil
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, string(expiryRaw))
	if err != nil {
		return nil
	}

	var user models.User
	if err := storage.GetJSON(store, storage.KeyAuthUser, &user); err != nil {
		return nil
	}

	return &Session{
		AccessToken:  string(token),
		RefreshToken: string(refresh),
		User:         user,
		ExpiresAt:    expiresAt,
	}
}
