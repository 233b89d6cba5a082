package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"freightlink-client/pkg/config"
	appErrors "freightlink-client/pkg/errors"
)

// RedisStore is the production Store: a local Redis instance keeps the
// cache durable across process restarts
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the configured Redis instance
func NewRedisStore(cfg config.CacheConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, appErrors.Wrap(appErrors.ErrCodeCache, "failed to connect to cache store", err)
	}

	return &RedisStore{client: client}, nil
}

// Get retrieves a value, mapping missing keys to ErrKeyNotFound
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", appErrors.Wrap(appErrors.ErrCodeCache, "cache read failed", err)
	}
	return value, nil
}

// Set stores a value without expiration; the cache is cleared explicitly
// on logout, never by TTL
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return appErrors.Wrap(appErrors.ErrCodeCache, "cache write failed", err)
	}
	return nil
}

// Delete removes keys
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return appErrors.Wrap(appErrors.ErrCodeCache, "cache delete failed", err)
	}
	return nil
}

// Keys lists keys matching a pattern
func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, appErrors.Wrap(appErrors.ErrCodeCache, "cache scan failed", err)
	}
	return keys, nil
}

// Close closes the underlying connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
