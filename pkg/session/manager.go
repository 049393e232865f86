package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/mbaleeiro/chatvine/internal/logging"
	"github.com/mbaleeiro/chatvine/pkg/domain"
	"github.com/mbaleeiro/chatvine/pkg/ports"
)

// distributedLockTTL bounds how long a replica may hold a session lock.
const distributedLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session store access, ensuring safe concurrent
// operations per (contact, flow) key. It uses reference counting to garbage
// collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker ports.DistributedLocker // Optional distributed locker
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new session manager over the given store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  make(map[string]*lockEntry),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// Get retrieves the session for a pair under its lock.
func (m *Manager) Get(ctx context.Context, contactID, flowID string) (*domain.Session, error) {
	var session *domain.Session
	err := m.WithLock(ctx, domain.SessionKey(contactID, flowID), func(ctx context.Context) error {
		var err error
		session, err = m.store.Get(ctx, contactID, flowID)
		return err
	})
	return session, err
}

// Put persists the session under its lock.
func (m *Manager) Put(ctx context.Context, session *domain.Session) error {
	return m.WithLock(ctx, session.Key(), func(ctx context.Context) error {
		return m.store.Put(ctx, session)
	})
}

// Delete removes the session under its lock.
func (m *Manager) Delete(ctx context.Context, contactID, flowID string) error {
	return m.WithLock(ctx, domain.SessionKey(contactID, flowID), func(ctx context.Context) error {
		return m.store.Delete(ctx, contactID, flowID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// WithLock executes fn while holding the lock for the session key. This is
// the serialization point for the trigger engine's read-modify-write cycle.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, distributedLockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
