// Package redisstore keeps a conversation thread id in Redis so a conversation
// survives process restarts and can be shared between replicas.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skosovsky/agentrun"
	"github.com/skosovsky/agentrun/guard"
)

// DefaultKeyPrefix namespaces conversation keys.
const DefaultKeyPrefix = "agentrun:thread:"

// Store maps one conversation key to a thread id.
type Store struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires the stored thread id after d. Zero keeps it forever.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		s.ttl = d
	}
}

// New returns a Store for the conversation identified by key, stored under
// DefaultKeyPrefix+key.
func New(client redis.Cmdable, key string, opts ...Option) (*Store, error) {
	if err := guard.First(
		guard.NotNil(client, "redis client is required"),
		guard.NotEmpty(key, "conversation key is required"),
	); err != nil {
		return nil, err
	}
	s := &Store{client: client, key: DefaultKeyPrefix + key}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Key returns the Redis key holding the thread id.
func (s *Store) Key() string { return s.key }

// Get returns the stored thread id; ok is false when the key is missing or expired.
func (s *Store) Get(ctx context.Context) (string, bool, error) {
	id, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return id, id != "", nil
}

// Set stores threadID, replacing any previous value and resetting the TTL.
func (s *Store) Set(ctx context.Context, threadID string) error {
	if err := s.client.Set(ctx, s.key, threadID, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

var _ agentrun.ThreadStore = (*Store)(nil)
