package enrichcache

import (
	"context"
	"time"

	"github.com/tripnote/tripnote/internal/db"
	"github.com/tripnote/tripnote/internal/domain/enrichment"
)

type mockEnricher struct {
	resp  enrichment.Response
	err   error
	calls int
}

func (m *mockEnricher) Enrich(_ context.Context, _ enrichment.Request) (enrichment.Response, error) {
	m.calls++
	return m.resp, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}
