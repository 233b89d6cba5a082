// Package chat implements the local durable conversation/message cache
// with optimistic-send reconciliation.
package chat

import (
	"context"

	"freightlink-client/pkg/errors"
)

// ErrKeyNotFound is returned by Store.Get for missing keys
var ErrKeyNotFound = errors.New(errors.ErrCodeCache, "cache key not found")

// Store is the durable key-value store under the cache. Keys are already
// namespaced by the repository.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Close() error
}
