package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/towerops/fieldtrack/internal/api"
	"github.com/towerops/fieldtrack/internal/models"
	"github.com/towerops/fieldtrack/internal/storage"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func TestSessionFromResponse(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := models.User{ID: "u1", Email: "tech@example.com", Role: models.RoleTechnician}

	t.Run("expiresIn wins when present", func(t *testing.T) {
		s := sessionFromResponse(&api.AuthResponse{
			Token:        "opaque-token",
			RefreshToken: "r",
			ExpiresIn:    900,
			User:         user,
		}, now, 1)

		assert.Equal(t, now.Add(15*time.Minute), s.ExpiresAt)
		assert.Equal(t, 1, s.Version)
	})

	t.Run("falls back to the token exp claim", func(t *testing.T) {
		exp := now.Add(40 * time.Minute)
		s := sessionFromResponse(&api.AuthResponse{
			Token:        signedToken(t, exp),
			RefreshToken: "r",
			User:         user,
		}, now, 1)

		assert.WithinDuration(t, exp, s.ExpiresAt, time.Second)
	})

	t.Run("opaque token without expiresIn gets one hour", func(t *testing.T) {
		s := sessionFromResponse(&api.AuthResponse{
			Token:        "opaque-token",
			RefreshToken: "r",
			User:         user,
		}, now, 1)

		assert.Equal(t, now.Add(time.Hour), s.ExpiresAt)
	})
}

func TestSessionPersistence(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := models.User{ID: "u1", Email: "tech@example.com", Role: models.RoleSupervisor}

	t.Run("round trip", func(t *testing.T) {
		store := storage.NewMemoryStore()
		persistSession(store, &Session{
			AccessToken:  "a",
			RefreshToken: "r",
			User:         user,
			ExpiresAt:    now,
		})

		s := loadSession(store)
		require.NotNil(t, s)
		assert.Equal(t, "a", s.AccessToken)
		assert.Equal(t, "r", s.RefreshToken)
		assert.Equal(t, user, s.User)
		assert.True(t, s.ExpiresAt.Equal(now))
	})

	t.Run("missing token means no session", func(t *testing.T) {
		assert.Nil(t, loadSession(storage.NewMemoryStore()))
	})

	t.Run("clear removes only auth keys", func(t *testing.T) {
		store := storage.NewMemoryStore()
		persistSession(store, &Session{AccessToken: "a", RefreshToken: "r", User: user, ExpiresAt: now})
		store.Set(storage.KeyOfflineSites, []byte(`[]`))

		clearSessionKeys(store)

		assert.Nil(t, loadSession(store))
		_, ok := store.Get(storage.KeyOfflineSites)
		assert.True(t, ok)
	})

	t.Run("corrupt expiry means no session", func(t *testing.T) {
		store := storage.NewMemoryStore()
		persistSession(store, &Session{AccessToken: "a", RefreshToken: "r", User: user, ExpiresAt: now})
		store.Set(storage.KeyAuthExpiry, []byte("garbage"))

		assert.Nil(t, loadSession(store))
	})
}
