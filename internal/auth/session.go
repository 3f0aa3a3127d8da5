package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"time"
)

// SessionStore is the keyed store sessions live in. Entries carry their own
// expiry so a stale entry read back (e.g. from a store without eviction) is
// still rejected.
type SessionStore interface {
	SaveSession(ctx context.Context, tokenHash string, payload []byte, ttl time.Duration) error
	GetSession(ctx context.Context, tokenHash string) ([]byte, error)
	DeleteSession(ctx context.Context, tokenHash string) error
}

type Session struct {
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Manager struct {
	store      SessionStore
	password   string
	sessionTTL time.Duration
}

func NewManager(store SessionStore, password string, sessionTTL time.Duration) *Manager {
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &Manager{store: store, password: password, sessionTTL: sessionTTL}
}

func (m *Manager) TTL() time.Duration {
	return m.sessionTTL
}

// Login checks the admin password and, on success, creates a session and
// returns the raw token for the cookie. Only the sha256 of the token is
// stored.
func (m *Manager) Login(ctx context.Context, password string) (string, bool, error) {
	if m.password == "" {
		return "", false, nil
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(m.password)) != 1 {
		return "", false, nil
	}

	token, err := newToken()
	if err != nil {
		return "", false, err
	}

	now := time.Now()
	payload, err := json.Marshal(Session{CreatedAt: now, ExpiresAt: now.Add(m.sessionTTL)})
	if err != nil {
		return "", false, err
	}
	if err := m.store.SaveSession(ctx, hashToken(token), payload, m.sessionTTL); err != nil {
		return "", false, err
	}
	return token, true, nil
}

// Verify reports whether the token maps to a live session. Expired entries
// are deleted on read.
func (m *Manager) Verify(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	hash := hashToken(token)
	payload, err := m.store.GetSession(ctx, hash)
	if err != nil {
		return false, err
	}
	if payload == nil {
		return false, nil
	}

	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return false, err
	}
	if time.Now().After(s.ExpiresAt) {
		_ = m.store.DeleteSession(ctx, hash)
		return false, nil
	}
	return true, nil
}

func (m *Manager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.store.DeleteSession(ctx, hashToken(token))
}

func newToken() (string, error) {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
