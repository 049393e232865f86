package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbaleeiro/chatvine/pkg/domain"
	"github.com/mbaleeiro/chatvine/pkg/ports"
	"github.com/mbaleeiro/chatvine/pkg/session"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.Session
	mu   sync.Mutex
}

func (s *SlowStore) Put(ctx context.Context, sess *domain.Session) error {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.Session)
	}
	copied := *sess
	s.data[sess.Key()] = &copied
	return nil
}

func (s *SlowStore) Get(ctx context.Context, contactID, flowID string) (*domain.Session, error) {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.data[domain.SessionKey(contactID, flowID)]; ok {
		copied := *sess
		return &copied, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, contactID, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, domain.SessionKey(contactID, flowID))
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	return keys, nil
}

func TestManager_WithLock_Serializes(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	key := domain.SessionKey("c1", "f1")

	require.NoError(t, store.Put(ctx, &domain.Session{
		ContactID:    "c1",
		FlowID:       "f1",
		TimeoutValue: 0,
		TimeoutUnit:  domain.TimeoutMinutes,
	}))

	// Concurrent read-modify-write cycles on the same key. Without the lock
	// the increments would race and some would be lost.
	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, key, func(ctx context.Context) error {
				sess, err := store.Get(ctx, "c1", "f1")
				if err != nil {
					return err
				}
				sess.TimeoutValue++
				return store.Put(ctx, sess)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := manager.Get(ctx, "c1", "f1")
	require.NoError(t, err)
	assert.Equal(t, workers, sess.TimeoutValue)
}

func TestManager_CRUD(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()

	sess := &domain.Session{
		ContactID:   "c1",
		FlowID:      "f1",
		ChannelType: "whatsapp",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, manager.Put(ctx, sess))

	loaded, err := manager.Get(ctx, "c1", "f1")
	require.NoError(t, err)
	assert.Equal(t, "whatsapp", loaded.ChannelType)

	keys, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, sess.Key())

	require.NoError(t, manager.Delete(ctx, "c1", "f1"))
	_, err = manager.Get(ctx, "c1", "f1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

// recordingLocker counts lock/unlock pairs to verify the distributed path.
type recordingLocker struct {
	mu       sync.Mutex
	locked   int
	unlocked int
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	l.locked++
	l.mu.Unlock()
	return func(ctx context.Context) error {
		l.mu.Lock()
		l.unlocked++
		l.mu.Unlock()
		return nil
	}, nil
}

func TestManager_WithDistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(&SlowStore{}, session.WithLocker(locker))
	ctx := context.Background()

	err := manager.WithLock(ctx, "c1:f1", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	err = manager.WithLock(ctx, "c1:f1", func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	assert.Equal(t, 2, locker.locked)
	assert.Equal(t, 2, locker.unlocked, "every acquired lock must be released")
}
