package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Store holds the current authentication token for the whole process. Every
// authenticated call reads from it; only the store itself writes it. The
// token is the single piece of state that survives a restart, persisted as a
// small key-value file.
type Store struct {
	mu     sync.Mutex
	path   string
	token  string
	hooks  []func()
	logger *slog.Logger

	expired     chan struct{}
	expiredOnce sync.Once

	// now is swappable for tests.
	now func() time.Time
}

// persistedToken is the on-disk shape of the stored credential.
type persistedToken struct {
	Token string `json:"token"`
}

// NewStore creates a Store backed by the token file at path, loading any
// previously persisted token. A missing or unreadable file just means no
// session.
func NewStore(path string, logger *slog.Logger) *Store {
	s := &Store{
		path:    path,
		logger:  logger,
		expired: make(chan struct{}, 1),
		now:     time.Now,
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var p persistedToken
	if err := json.Unmarshal(raw, &p); err != nil {
		logger.Warn("discarding unreadable token file", slog.String("path", path), slog.String("error", err.Error()))
		return s
	}
	s.token = p.Token
	return s
}

// Set stores and persists a new token.
func (s *Store) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	raw, err := json.Marshal(persistedToken{Token: token})
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}

// Get returns the current token, if any.
func (s *Store) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", false
	}
	return s.token, true
}

// IsExpired decodes the token's embedded expiry claim and compares it to the
// current time. The client holds no signing secret, so the claim is read
// without signature verification. A malformed token, or one without an
// expiry claim, is treated as expired: the check fails closed.
func (s *Store) IsExpired(token string) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return true
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return !exp.Time.After(s.now())
}

// OnClear registers a teardown hook run whenever the session is cleared.
// The composition root uses it to cancel running hold timers and discard
// in-flight checkout sessions, since neither is meaningful without a subject.
func (s *Store) OnClear(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Clear evicts the cached and persisted token and cascades to the registered
// teardown hooks.
func (s *Store) Clear() {
	s.mu.Lock()
	s.token = ""
	hooks := make([]func(), len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove token file", slog.String("path", s.path), slog.String("error", err.Error()))
	}
	for _, fn := range hooks {
		fn()
	}
}

// CheckOnStartup clears an expired stored token and signals session expiry.
// It reports whether the session was expired. The expiry notice fires at
// most once per store lifetime, not on every check.
func (s *Store) CheckOnStartup() bool {
	token, ok := s.Get()
	if !ok {
		return false
	}
	if !s.IsExpired(token) {
		return false
	}
	s.Clear()
	s.signalExpired()
	return true
}

// HandleAuthFailure reacts to the backend rejecting the current token
// mid-flight: clear, cascade, and surface the single "sign in again" notice.
func (s *Store) HandleAuthFailure() {
	s.logger.Info("backend rejected session token, clearing session")
	s.Clear()
	s.signalExpired()
}

// Expired delivers at most one signal that the session expired and the user
// must sign in again. The UI layer consumes it; no raw network error is
// surfaced for this case.
func (s *Store) Expired() <-chan struct{} {
	return s.expired
}

func (s *Store) signalExpired() {
	s.expiredOnce.Do(func() {
		s.expired <- struct{}{}
	})
}
