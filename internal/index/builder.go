// Package index builds immutable search snapshots of every record
// collection: a weighted fuzzy index per collection and one token index
// across all of them.
package index

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tripnote/tripnote/internal/domain/record"
	"github.com/tripnote/tripnote/internal/fuzzy"
	"github.com/tripnote/tripnote/internal/metrics"
)

// DefaultRefreshInterval is how long a snapshot stays fresh.
const DefaultRefreshInterval = 5 * time.Minute

// Source reads whole collections. It is the only store access the index needs.
type Source interface {
	GetAll(ctx context.Context, collection string) ([]record.Record, error)
}

// Config tunes index building.
type Config struct {
	RefreshInterval time.Duration
	// MatchThreshold is the fuzzy matcher's normalized distance cutoff,
	// independent of the caller-facing score threshold.
	MatchThreshold float64
	MinMatchLength int
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.MatchThreshold <= 0 {
		c.MatchThreshold = fuzzy.DefaultThreshold
	}
	if c.MinMatchLength <= 0 {
		c.MinMatchLength = fuzzy.DefaultMinMatchCharLength
	}
}

// Builder owns the current snapshot and replaces it wholesale on rebuild.
// Readers never observe a partially built index.
type Builder struct {
	src    Source
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	current atomic.Pointer[Snapshot]
	gen     atomic.Uint64
	group   singleflight.Group
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the clock used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a Builder. Until the first build, Snapshot returns an empty index.
func NewBuilder(src Source, cfg Config, logger *zap.Logger, opts ...Option) *Builder {
	cfg.ApplyDefaults()
	b := &Builder{src: src, cfg: cfg, logger: logger, now: time.Now}
	for _, o := range opts {
		o(b)
	}
	b.current.Store(emptySnapshot())
	return b
}

// Snapshot returns the current snapshot. It is never nil.
func (b *Builder) Snapshot() *Snapshot { return b.current.Load() }

// Built reports whether at least one build has completed.
func (b *Builder) Built() bool { return b.current.Load().generation > 0 }

// NeedsRefresh reports whether the snapshot is older than the refresh interval
// or was never built.
func (b *Builder) NeedsRefresh() bool {
	s := b.current.Load()
	if s.generation == 0 {
		return true
	}
	return b.now().Sub(s.builtAt) > b.cfg.RefreshInterval
}

// Initialize builds the index once. Later calls are no-ops.
func (b *Builder) Initialize(ctx context.Context) error {
	if b.Built() {
		return nil
	}
	return b.Build(ctx)
}

// Rebuild forces a new build regardless of freshness.
func (b *Builder) Rebuild(ctx context.Context) error {
	return b.Build(ctx)
}

// RefreshIfStale rebuilds when NeedsRefresh reports true.
func (b *Builder) RefreshIfStale(ctx context.Context) error {
	if !b.NeedsRefresh() {
		return nil
	}
	return b.Build(ctx)
}

// Build loads every collection and swaps in a new snapshot. Concurrent
// calls share one build. A collection that fails to load is logged and
// indexed as empty; only context cancellation fails the build.
func (b *Builder) Build(ctx context.Context) error {
	_, err, _ := b.group.Do("build", func() (any, error) {
		return nil, b.build(ctx)
	})
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	return nil
}

func (b *Builder) build(ctx context.Context) error {
	start := time.Now()
	cols := record.Collections()
	loaded := make([][]record.Record, len(cols))
	failures := make([]error, len(cols))

	g, gctx := errgroup.WithContext(ctx)
	for i, col := range cols {
		g.Go(func() error {
			loaded[i], failures[i] = b.load(gctx, col)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	byCol := make(map[string][]record.Record, len(cols))
	var failed []string
	for i, col := range cols {
		if failures[i] != nil {
			failed = append(failed, col)
			metrics.CollectionLoadFailuresTotal.WithLabelValues(col).Inc()
			b.logger.Warn("collection load failed, indexing as empty",
				zap.String("collection", col), zap.Error(failures[i]))
			continue
		}
		byCol[col] = loaded[i]
	}

	snap := newSnapshot(b.gen.Add(1), b.now(), byCol, failed, fuzzy.Config{
		Threshold:          b.cfg.MatchThreshold,
		MinMatchCharLength: b.cfg.MinMatchLength,
	})
	b.current.Store(snap)

	for _, col := range cols {
		metrics.IndexEntries.WithLabelValues(col).Set(float64(len(snap.entries[col])))
	}
	metrics.IndexRebuildDuration.Observe(time.Since(start).Seconds())
	b.logger.Info("index rebuilt",
		zap.Uint64("generation", snap.generation),
		zap.Int("entries", snap.Len()),
		zap.Int("tokens", snap.tokens.Len()),
		zap.Strings("failed", failed),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// load reads one collection, turning a panicking store into an error.
func (b *Builder) load(ctx context.Context, col string) (recs []record.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic loading %s: %v", col, r)
		}
	}()
	return b.src.GetAll(ctx, col)
}
