// Package cache is a small key/value store with expiry kept next to the
// records, used for derived values that are costly to recompute.
package cache

import (
	"context"
	"time"
)

type Repository interface {
	// Get returns (nil, nil) when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Purge drops expired keys and returns how many were removed.
	Purge(ctx context.Context) (int64, error)
}
