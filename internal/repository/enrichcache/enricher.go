// Package enrichcache memoizes successful enrichment answers, in process
// and optionally in Valkey/Redis so they survive restarts.
package enrichcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tripnote/tripnote/internal/db"
	"github.com/tripnote/tripnote/internal/domain"
	"github.com/tripnote/tripnote/internal/domain/enrichment"
)

// Defaults for New.
const (
	DefaultSize = 512
	DefaultTTL  = 24 * time.Hour
)

var cacheKeyPrefix = domain.KeyPrefix + "enrich_cache:"

// enricher is the decorated call.
type enricher interface {
	Enrich(ctx context.Context, req enrichment.Request) (enrichment.Response, error)
}

// store is the consumer interface for the shared cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEnricher caches successful responses keyed by the normalized query
// and the ids of the context records. Failures are never cached.
type CachedEnricher struct {
	inner      enricher
	local      *expirable.LRU[string, enrichment.Response]
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. s may be nil for a process-local cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner enricher,
	s store,
	size int,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEnricher {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedEnricher{
		inner:      inner,
		local:      expirable.NewLRU[string, enrichment.Response](size, nil, ttl),
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Enrich returns a cached response or calls the inner enricher.
func (c *CachedEnricher) Enrich(ctx context.Context, req enrichment.Request) (enrichment.Response, error) {
	key := cacheKey(req)

	if resp, ok := c.local.Get(key); ok {
		c.incCache("hit")
		enrichment.UsageFromContext(ctx).Add(0)
		return resp, nil
	}
	if resp, ok := c.getFromStore(ctx, key); ok {
		c.incCache("hit")
		enrichment.UsageFromContext(ctx).Add(0)
		c.local.Add(key, resp)
		return resp, nil
	}

	c.incCache("miss")

	resp, err := c.inner.Enrich(ctx, req)
	if err != nil {
		return enrichment.Response{}, fmt.Errorf("enrich query: %w", err)
	}

	c.local.Add(key, resp)
	c.putToStore(ctx, key, resp)
	return resp, nil
}

func (c *CachedEnricher) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func cacheKey(req enrichment.Request) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(req.Query))))
	for i := range req.Context {
		h.Write([]byte{0})
		h.Write([]byte(req.Context[i].Key()))
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedEnricher) getFromStore(ctx context.Context, key string) (enrichment.Response, bool) {
	if c.store == nil {
		return enrichment.Response{}, false
	}
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached enrichment", zap.String("key", key), zap.Error(err))
		}
		return enrichment.Response{}, false
	}

	var resp enrichment.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("Failed to parse cached enrichment", zap.String("key", key), zap.Error(err))
		return enrichment.Response{}, false
	}
	return resp, true
}

func (c *CachedEnricher) putToStore(ctx context.Context, key string, resp enrichment.Response) {
	if c.store == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("Failed to encode enrichment", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache enrichment", zap.String("key", key), zap.Error(err))
	}
}
