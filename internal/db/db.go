// Package db declares the Valkey/Redis operations the record and cache
// repositories consume. Implementations live in subpackages.
package db

import (
	"context"
	"time"
)

// Store is everything the rueidis-backed store offers.
type Store interface {
	Pinger
	HashStore
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore keeps one collection per hash and one encoded record per field.
type HashStore interface {
	HGet(ctx context.Context, key, field string) ([]byte, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HSetNX writes field only when absent and reports whether it did.
	HSetNX(ctx context.Context, key, field, value string) (bool, error)
	// HReplace writes field only when present and reports whether it did.
	HReplace(ctx context.Context, key, field, value string) (bool, error)
	HDel(ctx context.Context, key string, fields ...string) (int64, error)
}

// KVStore holds expiring string values.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
