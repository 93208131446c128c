// Package auth manages API keys: static keys from configuration and
// session keys issued by login with a sliding expiry.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// SessionTTL is the sliding idle expiry for session keys.
const SessionTTL = 30 * time.Minute

// sessionKeyBytes is the entropy of a generated session key.
const sessionKeyBytes = 32

// ErrInvalidCredentials is returned by Login on a bad username/password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Manager validates API keys. Static keys never expire; session keys
// expire after SessionTTL of inactivity, and every successful validation
// renews them. All methods are safe for concurrent use.
type Manager struct {
	username   string
	password   string
	staticKeys map[string]bool
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]time.Time
}

// Option is a functional option for Manager.
type Option func(*Manager)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager with the given login credentials and
// static keys.
func NewManager(username, password string, staticKeys []string, opts ...Option) *Manager {
	m := &Manager{
		username:   username,
		password:   password,
		staticKeys: make(map[string]bool, len(staticKeys)),
		now:        time.Now,
		sessions:   map[string]time.Time{},
	}
	for _, k := range staticKeys {
		if k != "" {
			m.staticKeys[k] = true
		}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login checks the credentials and issues a fresh session key.
func (m *Manager) Login(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.password)) == 1
	if !userOK || !passOK {
		return "", ErrInvalidCredentials
	}

	key, err := generateKey()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.pruneLocked()
	m.sessions[key] = m.now().Add(SessionTTL)
	m.mu.Unlock()
	return key, nil
}

// Validate reports whether key is a valid static or session key. A valid
// session key has its expiry renewed.
func (m *Manager) Validate(key string) bool {
	if key == "" {
		return false
	}
	if m.staticKeys[key] {
		return true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.sessions[key]
	if !ok {
		return false
	}
	now := m.now()
	if now.After(expiry) {
		delete(m.sessions, key)
		return false
	}
	m.sessions[key] = now.Add(SessionTTL)
	return true
}

// Revoke invalidates a session key. Static keys cannot be revoked.
func (m *Manager) Revoke(key string) {
	m.mu.Lock()
	delete(m.sessions, key)
	m.mu.Unlock()
}

// ActiveSessions returns the number of unexpired session keys.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	return len(m.sessions)
}

func (m *Manager) pruneLocked() {
	now := m.now()
	for key, expiry := range m.sessions {
		if now.After(expiry) {
			delete(m.sessions, key)
		}
	}
}

func generateKey() (string, error) {
	buf := make([]byte, sessionKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
