// Package redis stores keys in Redis. Useful when several processes on one
// host share the same auth state, e.g. workers behind a supervisor.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/stitch/pkg/storage"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	db redis.UniversalClient
}

// New wraps an existing client. The caller keeps ownership of it.
func New(client redis.UniversalClient) *Store {
	return &Store{db: client}
}

// Connect parses url (redis://...) and pings the server.
func Connect(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &Store{db: client}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.db.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis: get %q: %w", key, err)
	}
	return v, nil
}

// Set stores value without expiry; token lifetimes are the server's concern.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.db.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.db.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: remove %q: %w", key, err)
	}
	return nil
}
