package tripnote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tripnote/tripnote/internal/analyzer"
	"github.com/tripnote/tripnote/internal/config"
	dbRedis "github.com/tripnote/tripnote/internal/db/redis"
	"github.com/tripnote/tripnote/internal/domain/record/patch"
	"github.com/tripnote/tripnote/internal/index"
	"github.com/tripnote/tripnote/internal/metrics"
	"github.com/tripnote/tripnote/internal/planner"
	"github.com/tripnote/tripnote/internal/repository/enrichcache"
	"github.com/tripnote/tripnote/internal/repository/filestore"
	"github.com/tripnote/tripnote/internal/repository/memstore"
	recordrepo "github.com/tripnote/tripnote/internal/repository/record"
	"github.com/tripnote/tripnote/internal/repository/sqlstore"
	chiTransport "github.com/tripnote/tripnote/internal/transport/chi"
	openaiEnr "github.com/tripnote/tripnote/internal/transport/openai"
	healthuc "github.com/tripnote/tripnote/internal/usecase/health"
	recorduc "github.com/tripnote/tripnote/internal/usecase/record"
	searchuc "github.com/tripnote/tripnote/internal/usecase/search"
	"github.com/tripnote/tripnote/internal/watch"
)

const defaultReadinessTimeout = 10 * time.Second

// sharedCache is the slice of a key-value store the enrichment cache uses.
type sharedCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Client is the tripnote entry point: record management plus search.
// It is safe for concurrent use.
type Client struct {
	store   RecordStore
	pinger  healthuc.StorePinger
	cache   sharedCache
	closers []func()

	index    *index.Builder
	analyzer *analyzer.Analyzer
	search   *searchuc.Service
	records  *recorduc.Service
	health   *healthuc.Service
	watcher  *watch.Watcher
	limits   chiTransport.Limits

	obs       *observer
	logger    *zap.Logger
	closeOnce sync.Once
}

// New creates a Client. Without a store option records live in memory.
// The index is built lazily; call Initialize to build it up front.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{driver: config.DriverMemory}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	c := &Client{obs: obs, logger: cfg.logger}

	if err := c.openStore(ctx, cfg); err != nil {
		return nil, err
	}
	c.wire(cfg)

	if cfg.watch {
		if err := c.startWatcher(ctx, cfg); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// NewFromConfig creates a Client from a loaded configuration file.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger, extra ...Option) (*Client, error) {
	opts := append(FromConfig(cfg), WithLogger(logger))
	return New(ctx, append(opts, extra...)...)
}

func (c *Client) openStore(ctx context.Context, cfg *clientConfig) error {
	switch cfg.driver {
	case config.DriverMemory:
		c.store = memstore.New()

	case config.DriverFile:
		s, err := filestore.New(cfg.path)
		if err != nil {
			return fmt.Errorf("tripnote: open file store: %w", err)
		}
		c.store = s

	case config.DriverSQLite:
		s, err := sqlstore.Open(ctx, cfg.path)
		if err != nil {
			return fmt.Errorf("tripnote: open sqlite store: %w", err)
		}
		c.store, c.pinger = s, s
		c.closers = append(c.closers, func() { _ = s.Close() })

	case config.DriverValkey, config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password})
		if err != nil {
			return fmt.Errorf("tripnote: create %s store: %w", cfg.driver, err)
		}
		timeout := cfg.readinessTimeout
		if timeout <= 0 {
			timeout = defaultReadinessTimeout
		}
		if err := s.WaitForReady(ctx, timeout); err != nil {
			s.Close()
			return fmt.Errorf("tripnote: %s not ready: %w", cfg.driver, err)
		}
		c.store, c.pinger, c.cache = recordrepo.New(s), s, s
		c.closers = append(c.closers, s.Close)

	case driverCustom:
		if cfg.custom == nil {
			return errors.New("tripnote: record store is nil")
		}
		c.store = cfg.custom
		if p, ok := cfg.custom.(healthuc.StorePinger); ok {
			c.pinger = p
		}

	default:
		return fmt.Errorf("tripnote: unknown store driver %q", cfg.driver)
	}
	return nil
}

// wire assembles the services around the opened store.
func (c *Client) wire(cfg *clientConfig) {
	c.index = index.NewBuilder(c.store, index.Config{
		RefreshInterval: cfg.refreshInterval,
		MatchThreshold:  cfg.matchThreshold,
		MinMatchLength:  cfg.minMatchLength,
	}, c.logger.Named("index"))

	enricher, checker := c.buildEnricher(cfg)

	c.analyzer = analyzer.New()
	c.search = searchuc.New(c.index, c.analyzer, planner.New(c.analyzer), enricher, searchuc.Config{
		CacheSize:     cfg.resultCacheSize,
		EnrichTimeout: cfg.enrichTimeout,
	}, c.logger.Named("search"))
	c.records = recorduc.New(c.store, c.analyzer, c.index, c.logger.Named("records"))
	c.health = healthuc.New(c.pinger, c.index, checker)

	c.limits = chiTransport.Limits{
		DefaultLimit:     cfg.limits.defaultLimit,
		MaxLimit:         cfg.limits.maxLimit,
		DefaultThreshold: cfg.limits.defaultThreshold,
	}
}

// buildEnricher assembles the chain: provider -> cache. It returns nil
// interfaces (not typed nil pointers) when enrichment is off.
func (c *Client) buildEnricher(cfg *clientConfig) (searchuc.Enricher, healthuc.EnrichmentChecker) {
	var (
		enricher searchuc.Enricher
		checker  healthuc.EnrichmentChecker
	)
	switch {
	case cfg.enricher != nil:
		enricher = cfg.enricher
		if hc, ok := cfg.enricher.(healthuc.EnrichmentChecker); ok {
			checker = hc
		}
	case cfg.openAI != nil:
		oa := openaiEnr.NewEnricher(&openaiEnr.Config{
			APIKey:            cfg.openAI.apiKey,
			BaseURL:           cfg.openAI.baseURL,
			Model:             cfg.openAI.model,
			RequestsPerMinute: cfg.openAI.requestsPerMinute,
			Logger:            c.logger.Named("enrichment"),
		})
		enricher, checker = oa, oa
	default:
		return nil, nil
	}

	if cfg.enrichCache > 0 || c.cache != nil {
		var shared sharedCache
		if c.cache != nil {
			shared = c.cache
		}
		enricher = enrichcache.New(enricher, shared, cfg.enrichCache, cfg.enrichTTL,
			metrics.EnrichmentCacheTotal, c.logger.Named("enrich_cache"))
	}
	return enricher, checker
}

func (c *Client) startWatcher(ctx context.Context, cfg *clientConfig) error {
	fs, ok := c.store.(*filestore.Store)
	if !ok {
		c.logger.Warn("watch requested without a file store, ignoring", zap.String("driver", cfg.driver))
		return nil
	}
	w, err := watch.New(watch.Config{
		Dir:      fs.Dir(),
		Debounce: cfg.watchDebounce,
		Match: func(path string) bool {
			_, ok := filestore.CollectionOf(path)
			return ok
		},
	}, c.index, c.logger.Named("watch"))
	if err != nil {
		return fmt.Errorf("tripnote: create watcher: %w", err)
	}
	// The watcher outlives the constructor's context; Close stops it.
	if err := w.Start(context.WithoutCancel(ctx)); err != nil {
		w.Stop()
		return fmt.Errorf("tripnote: start watcher: %w", err)
	}
	c.watcher = w
	return nil
}

// Close stops the watcher and releases the store. Safe to call twice.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.watcher != nil {
			c.watcher.Stop()
		}
		for i := len(c.closers) - 1; i >= 0; i-- {
			c.closers[i]()
		}
	})
}

// Ping checks record store connectivity. Stores without a connection always pass.
func (c *Client) Ping(ctx context.Context) error {
	if c.pinger == nil {
		return nil
	}
	if err := c.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Initialize builds the index once. Later calls are no-ops.
func (c *Client) Initialize(ctx context.Context) (err error) {
	defer func(start time.Time) { c.obs.observe("initialize", start, err) }(time.Now())
	if err = c.index.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return nil
}

// RebuildIndex reloads every collection into a fresh snapshot. A
// collection that fails to load is indexed as empty and reported in IndexInfo.
func (c *Client) RebuildIndex(ctx context.Context) (err error) {
	defer func(start time.Time) { c.obs.observe("rebuild_index", start, err) }(time.Now())
	if err = c.index.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	return nil
}

// IndexInfo describes the current snapshot.
func (c *Client) IndexInfo() IndexInfo {
	snap := c.index.Snapshot()
	failed := snap.Failed()
	if failed == nil {
		failed = []string{}
	}
	return IndexInfo{
		Generation: snap.Generation(),
		Entries:    snap.Len(),
		BuiltAt:    snap.BuiltAt(),
		Failed:     failed,
	}
}

// SemanticSearch matches only extracted entities and filters, returning
// every hit sorted by score. modules restricts the collections searched.
func (c *Client) SemanticSearch(ctx context.Context, q string, modules ...string) (hits []Hit, err error) {
	defer func(start time.Time) { c.obs.observe("semantic_search", start, err) }(time.Now())
	results, err := c.search.SemanticSearch(ctx, q, modules)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	return toHits(results), nil
}

// Suggest completes prefix against indexed titles.
func (c *Client) Suggest(ctx context.Context, prefix string, limit int) (out []Suggestion, err error) {
	defer func(start time.Time) { c.obs.observe("suggest", start, err) }(time.Now())
	out, err = c.search.Suggest(ctx, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	return out, nil
}

// Analyze extracts entities, topics and sentiment from text.
func (c *Client) Analyze(text string) Entities { return c.analyzer.Analyze(text) }

// Plan shows how a query is interpreted.
func (c *Client) Plan(q string) Query { return c.search.Plan(q) }

// GenerateTags suggests up to ten tags for a text and optional record type.
func (c *Client) GenerateTags(text, typ string) []string { return c.analyzer.GenerateTags(text, typ) }

// Add stores a new record in collection. A missing id is generated and
// missing tags are suggested from the text. The index is rebuilt.
func (c *Client) Add(ctx context.Context, collection string, rec Record) (out Record, err error) {
	defer func(start time.Time) { c.obs.observe("add", start, err) }(time.Now())
	out, err = c.records.Add(ctx, collection, rec)
	if err != nil {
		return Record{}, fmt.Errorf("add record: %w", err)
	}
	return out, nil
}

// Get returns one record.
func (c *Client) Get(ctx context.Context, collection, id string) (Record, error) {
	rec, err := c.records.Get(ctx, collection, id)
	if err != nil {
		return Record{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// List returns every record of collection.
func (c *Client) List(ctx context.Context, collection string) ([]Record, error) {
	recs, err := c.records.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recs, nil
}

// Update replaces an existing record, keeping its creation time.
func (c *Client) Update(ctx context.Context, collection string, rec Record) (out Record, err error) {
	defer func(start time.Time) { c.obs.observe("update", start, err) }(time.Now())
	out, err = c.records.Update(ctx, collection, rec)
	if err != nil {
		return Record{}, fmt.Errorf("update record: %w", err)
	}
	return out, nil
}

// Patch changes only the non-nil fields of an existing record.
func (c *Client) Patch(ctx context.Context, collection, id string, fields PatchFields) (out Record, err error) {
	defer func(start time.Time) { c.obs.observe("patch", start, err) }(time.Now())
	p, err := patch.New(fields)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	out, err = c.records.Patch(ctx, collection, id, p)
	if err != nil {
		return Record{}, fmt.Errorf("patch record: %w", err)
	}
	return out, nil
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, collection, id string) (err error) {
	defer func(start time.Time) { c.obs.observe("delete", start, err) }(time.Now())
	if err = c.records.Delete(ctx, collection, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// Health reports store, index and enrichment status.
func (c *Client) Health(ctx context.Context) HealthReport { return c.health.Check(ctx) }

// Handler returns the HTTP API.
func (c *Client) Handler() http.Handler {
	return chiTransport.NewServer(c.search, c.records, c.index, c.health, c.limits, c.logger.Named("http")).Routes()
}
