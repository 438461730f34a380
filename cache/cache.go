// Package cache provides a small key-value abstraction in front of the
// standings/leaderboard read path, backed by Redis in production and an
// in-memory map in tests.
package cache

import (
	"context"
	"time"
)

// Store is the cache contract consumed by the standings engine. Keys are
// plain strings; values are pre-serialized JSON payloads so callers control
// the encoding.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}
