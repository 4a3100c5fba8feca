package session

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "user-1", "exp": exp.Unix()}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	assert.NoError(t, err)
	return signed
}

func TestSetAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	t.Run("Empty Store", func(t *testing.T) {
		store := NewStore(path, testLogger())
		_, ok := store.Get()
		assert.False(t, ok)
	})

	t.Run("Persists Across Restart", func(t *testing.T) {
		token := signedToken(t, time.Now().Add(time.Hour))

		store := NewStore(path, testLogger())
		assert.NoError(t, store.Set(token))

		reopened := NewStore(path, testLogger())
		got, ok := reopened.Get()
		assert.True(t, ok)
		assert.Equal(t, token, got)
	})
}

func TestIsExpired(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "token.json"), testLogger())

	t.Run("Valid Token", func(t *testing.T) {
		assert.False(t, store.IsExpired(signedToken(t, time.Now().Add(time.Hour))))
	})

	t.Run("Expired Token", func(t *testing.T) {
		assert.True(t, store.IsExpired(signedToken(t, time.Now().Add(-time.Minute))))
	})

	t.Run("Malformed Token Fails Closed", func(t *testing.T) {
		assert.True(t, store.IsExpired("not-a-jwt"))
	})

	t.Run("Token Without Expiry Claim Fails Closed", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"}).SignedString([]byte("test-secret"))
		assert.NoError(t, err)
		assert.True(t, store.IsExpired(signed))
	})
}

func TestClearCascade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewStore(path, testLogger())
	assert.NoError(t, store.Set(signedToken(t, time.Now().Add(time.Hour))))

	var torndown []string
	store.OnClear(func() { torndown = append(torndown, "timers") })
	store.OnClear(func() { torndown = append(torndown, "sessions") })

	store.Clear()

	_, ok := store.Get()
	assert.False(t, ok)
	assert.Equal(t, []string{"timers", "sessions"}, torndown)

	// The persisted token is gone too.
	reopened := NewStore(path, testLogger())
	_, ok = reopened.Get()
	assert.False(t, ok)
}

func TestCheckOnStartup(t *testing.T) {
	t.Run("Expired Token Cleared And Signalled Once", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.json")
		seed := NewStore(path, testLogger())
		assert.NoError(t, seed.Set(signedToken(t, time.Now().Add(-time.Minute))))

		store := NewStore(path, testLogger())
		cascaded := 0
		store.OnClear(func() { cascaded++ })

		assert.True(t, store.CheckOnStartup())
		_, ok := store.Get()
		assert.False(t, ok)
		assert.Equal(t, 1, cascaded)

		select {
		case <-store.Expired():
		default:
			t.Fatal("expected an expiry signal")
		}

		// Repeated failures never produce a second notice.
		store.HandleAuthFailure()
		select {
		case <-store.Expired():
			t.Fatal("expiry must be signalled exactly once")
		default:
		}
	})

	t.Run("Valid Token Untouched", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.json")
		token := signedToken(t, time.Now().Add(time.Hour))
		seed := NewStore(path, testLogger())
		assert.NoError(t, seed.Set(token))

		store := NewStore(path, testLogger())
		assert.False(t, store.CheckOnStartup())
		got, ok := store.Get()
		assert.True(t, ok)
		assert.Equal(t, token, got)
	})

	t.Run("No Token", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "token.json"), testLogger())
		assert.False(t, store.CheckOnStartup())
	})
}

func TestHandleAuthFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewStore(path, testLogger())
	assert.NoError(t, store.Set(signedToken(t, time.Now().Add(time.Hour))))

	cascaded := 0
	store.OnClear(func() { cascaded++ })

	store.HandleAuthFailure()

	_, ok := store.Get()
	assert.False(t, ok)
	assert.Equal(t, 1, cascaded)

	select {
	case <-store.Expired():
	default:
		t.Fatal("expected an expiry signal")
	}
}
