// Package memory provides in-process adapters for the session and flow
// stores, used in tests and single-instance deployments.
package memory

import (
	"context"
	"sync"

	"github.com/mbaleeiro/chatvine/pkg/domain"
)

// Store implements ports.SessionStore in memory. Safe for concurrent use.
type Store struct {
	data map[string]*domain.Session
	mu   sync.RWMutex
}

// NewStore creates a new in-memory session store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Session),
	}
}

// Put persists the session in memory.
func (s *Store) Put(ctx context.Context, session *domain.Session) error {
	// Copy on write so the caller can't mutate stored state by pointer.
	copied := *session

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[session.Key()] = &copied
	return nil
}

// Get retrieves the session from memory.
func (s *Store) Get(ctx context.Context, contactID, flowID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.data[domain.SessionKey(contactID, flowID)]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	ret := *session
	return &ret, nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, contactID, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, domain.SessionKey(contactID, flowID))
	return nil
}

// List returns the keys of all stored sessions.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	return keys, nil
}
