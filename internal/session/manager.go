package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flexyearn/flexyearn/internal/identity"
)

// Manager keeps one live session per identity.
type Manager struct {
	deps *Deps

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewManager builds a manager. deps.Accounts is required.
func NewManager(deps Deps) *Manager {
	d := deps.withDefaults()
	return &Manager{deps: &d, sessions: make(map[string]*Session)}
}

// Settings returns the rules the sessions enforce.
func (m *Manager) Settings() Settings { return m.deps.Settings }

// Acquire returns the live session for user, bootstrapping it on first use.
// An existing session is returned as is, so its cooldown survives.
func (m *Manager) Acquire(ctx context.Context, user identity.User) (*Session, error) {
	s, _, _, err := m.acquire(ctx, user)
	return s, err
}

// Bootstrap ensures the account exists and refreshes the session snapshot
// from the store. The bool reports whether the account was created.
func (m *Manager) Bootstrap(ctx context.Context, user identity.User) (*Session, bool, error) {
	s, created, existed, err := m.acquire(ctx, user)
	if err != nil || !existed {
		return s, created, err
	}
	if err := s.Reload(ctx); err != nil {
		return nil, false, err
	}
	return s, false, nil
}

// acquire reports whether the account was created and whether the session
// was already live before the call.
func (m *Manager) acquire(ctx context.Context, user identity.User) (s *Session, created, existed bool, err error) {
	if user.ID == "" {
		return nil, false, false, ErrNoIdentity
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, false, false, ErrClosed
	}
	if live, ok := m.sessions[user.ID]; ok {
		m.mu.Unlock()
		return live, false, true, live.touch()
	}
	m.mu.Unlock()

	acc, created, err := m.deps.Accounts.Bootstrap(ctx, user)
	if err != nil {
		m.deps.Logger.Error("bootstrap account failed", "account_id", user.ID, "op", "bootstrap", "error", err)
		return nil, false, false, fmt.Errorf("%w: %w", ErrBootstrap, err)
	}

	fresh := newSession(m.deps, user, acc)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		fresh.Close()
		return nil, false, false, ErrClosed
	}
	if live, ok := m.sessions[user.ID]; ok {
		fresh.Close()
		return live, false, false, live.touch()
	}
	m.sessions[user.ID] = fresh
	if created {
		m.deps.Logger.Info("account created", "account_id", user.ID)
	}
	return fresh, created, false, nil
}

// Get returns the live session for id, if any.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle closes sessions idle for longer than the configured TTL. Busy
// sessions and sessions with a running cooldown are kept.
func (m *Manager) EvictIdle(now time.Time) int {
	ttl := m.deps.Settings.IdleTTL
	if ttl <= 0 {
		return 0
	}

	m.mu.Lock()
	var evicted []*Session
	for id, s := range m.sessions {
		if s.idle(now, ttl) {
			delete(m.sessions, id)
			evicted = append(evicted, s)
		}
	}
	m.mu.Unlock()

	for _, s := range evicted {
		s.Close()
	}
	if len(evicted) > 0 {
		m.deps.Logger.Info("evicted idle sessions", "count", len(evicted))
	}
	return len(evicted)
}

// Close tears down every session.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
