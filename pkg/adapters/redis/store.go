// Package redis provides Redis-backed adapters: the session store and the
// distributed locker used when several instances share routing state.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mbaleeiro/chatvine/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.SessionStore using Redis. Each session key expires
// with the session itself, and a ZSET index scored by expiry supports
// listing with lazy cleanup.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "chatvine:session:",
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(sessionKey string) string {
	return s.prefix + sessionKey
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Put persists the session. The Redis TTL mirrors the session's own expiry
// so stale records disappear even without a sweep.
func (s *Store) Put(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		// Already past its deadline: persist briefly so the lazy-expiry
		// path can still observe and delete it.
		ttl = time.Minute
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(session.Key()), data, ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(session.ExpiresAt.Unix()),
		Member: session.Key(),
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Get retrieves the session.
func (s *Store) Get(ctx context.Context, contactID, flowID string) (*domain.Session, error) {
	sessionKey := domain.SessionKey(contactID, flowID)
	val, err := s.client.Get(ctx, s.key(sessionKey)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, contactID, flowID string) error {
	sessionKey := domain.SessionKey(contactID, flowID)

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(sessionKey))
	pipe.ZRem(ctx, s.indexKey(), sessionKey)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns live session keys, pruning expired index entries first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	keys, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return keys, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
