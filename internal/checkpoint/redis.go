package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps entries in one redis hash per kind:
// "<prefix>:checkpoint:<kind>" maps key -> value.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// OpenRedis connects to the redis:// URL and checks the connection.
func OpenRedis(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("checkpoint: connect redis: %w", err)
	}
	return NewRedisStore(client, prefix), nil
}

func (s *RedisStore) hashKey(kind string) string {
	return s.prefix + ":checkpoint:" + kind
}

func (s *RedisStore) Lookup(ctx context.Context, kind, key string) (string, bool, error) {
	value, err := s.client.HGet(ctx, s.hashKey(kind), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("checkpoint: lookup %s %s: %w", kind, key, err)
	}
	return value, true, nil
}

func (s *RedisStore) Record(ctx context.Context, kind, key, value string) error {
	if err := s.client.HSet(ctx, s.hashKey(kind), key, value).Err(); err != nil {
		return fmt.Errorf("checkpoint: record %s %s: %w", kind, key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
