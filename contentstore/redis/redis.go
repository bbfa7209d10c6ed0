// Package redis implements contentstore.Store on top of Redis.
// Grounded on blueberrycongee-llmux/caches/redis/redis.go: a
// UniversalClient wired from a single address, namespaced keys, pinged
// at construction time. TTL/cluster/sentinel support from that file is
// dropped here since cache invalidation and multi-tenant deployment are
// explicit non-goals of this system.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"semcache/internal/cacheerr"
)

// Store implements contentstore.Store using a single Redis node.
type Store struct {
	client    goredis.UniversalClient
	namespace string
}

// New dials addr and verifies the connection with a Ping.
func New(addr string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("fail to connect to redis at %s: %w", addr, err)
	}
	return &Store{client: client, namespace: "semcache:content"}, nil
}

func (s *Store) key(id string) string {
	return s.namespace + ":" + id
}

// Get implements contentstore.Store.
func (s *Store) Get(ctx context.Context, id string) (string, bool, error) {
	text, err := s.client.Get(ctx, s.key(id)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %s", cacheerr.ErrStoreUnavailable, err)
	}
	return text, true, nil
}

// Put implements contentstore.Store.
func (s *Store) Put(ctx context.Context, id string, text string) error {
	if err := s.client.Set(ctx, s.key(id), text, 0).Err(); err != nil {
		return fmt.Errorf("%w: %s", cacheerr.ErrStoreUnavailable, err)
	}
	return nil
}
