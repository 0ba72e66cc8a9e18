package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMirror keeps one JSON blob per collection under library:<name>.
// It plays the role the browser's local storage played for the original
// system: the fastest recovery source after a restart.
type RedisMirror struct {
	client *redis.Client
}

// NewRedisMirror connects to Redis and verifies the connection.
func NewRedisMirror(redisURL string) (*RedisMirror, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisMirror{client: rdb}, nil
}

func (m *RedisMirror) key(c Collection) string {
	return fmt.Sprintf("library:%s", c)
}

func (m *RedisMirror) SaveCollection(ctx context.Context, c Collection, data []byte) error {
	if m == nil || m.client == nil {
		// No-op for testing/mock mode - return success
		return nil
	}
	return m.client.Set(ctx, m.key(c), data, 0).Err()
}

// LoadCollection returns nil (no error) when the collection was never saved.
func (m *RedisMirror) LoadCollection(ctx context.Context, c Collection) ([]byte, error) {
	if m == nil || m.client == nil {
		return nil, nil
	}
	raw, err := m.client.Get(ctx, m.key(c)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (m *RedisMirror) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Close()
}
