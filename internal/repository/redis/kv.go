// Package redis implements repository.KVStore on top of a Redis server.
//
// Values are stored as plain string keys with no expiry. The key layout is
// decided by the gateway; this package never interprets it.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/mentor/internal/repository"
)

var _ repository.KVStore = (*Store)(nil)

// Store is a KVStore backed by a go-redis client.
type Store struct {
	client *goredis.Client
}

// Open parses url, connects and pings before returning.
func Open(url string) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parsing URL: %w", err)
	}

	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: pinging: %w", err)
	}

	return New(client), nil
}

// New wraps an existing client. The Store takes ownership: Close closes it.
func New(client *goredis.Client) *Store {
	return &Store{client: client}
}

// Get returns (nil, false, nil) when the key does not exist.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis: reading %s: %w", key, err)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis: writing %s: %w", key, err)
	}
	return nil
}

// Ping reports whether the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
