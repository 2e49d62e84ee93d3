package search

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	sfuzzy "github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/tripnote/tripnote/internal/analyzer"
	"github.com/tripnote/tripnote/internal/domain"
	"github.com/tripnote/tripnote/internal/domain/enrichment"
	"github.com/tripnote/tripnote/internal/domain/entity"
	"github.com/tripnote/tripnote/internal/domain/record"
	"github.com/tripnote/tripnote/internal/domain/search/query"
	"github.com/tripnote/tripnote/internal/domain/search/request"
	"github.com/tripnote/tripnote/internal/domain/search/result"
	"github.com/tripnote/tripnote/internal/domain/search/tier"
	"github.com/tripnote/tripnote/internal/index"
	"github.com/tripnote/tripnote/internal/metrics"
	"github.com/tripnote/tripnote/internal/planner"
)

// Defaults for Config.
const (
	DefaultCacheSize          = 256
	DefaultEnrichTimeout      = 5 * time.Second
	DefaultEnrichMinQueryLen  = 8
	DefaultEnrichBelowResults = 5
	DefaultSuggestLimit       = 10
)

// Entry point labels for metrics.
const (
	entrySearch   = "search"
	entrySemantic = "semantic"
	entrySuggest  = "suggest"
)

// Config tunes the search service.
type Config struct {
	// CacheSize bounds the local result cache; negative disables it.
	CacheSize int
	// EnrichTimeout bounds one enrichment round trip.
	EnrichTimeout time.Duration
	// Enrichment runs when the query is longer than EnrichMinQueryLen
	// characters and local search found fewer than EnrichBelowResults hits.
	EnrichMinQueryLen  int
	EnrichBelowResults int
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.EnrichTimeout <= 0 {
		c.EnrichTimeout = DefaultEnrichTimeout
	}
	if c.EnrichMinQueryLen <= 0 {
		c.EnrichMinQueryLen = DefaultEnrichMinQueryLen
	}
	if c.EnrichBelowResults <= 0 {
		c.EnrichBelowResults = DefaultEnrichBelowResults
	}
}

// Service answers free-text queries against the index snapshot with three
// retrieval tiers and an optional enrichment pass. It is safe for
// concurrent use: each call works on one immutable snapshot.
type Service struct {
	idx      Index
	analyzer *analyzer.Analyzer
	planner  *planner.Planner
	enricher Enricher
	cache    *lru.Cache[string, []result.Result]
	cfg      Config
	logger   *zap.Logger

	// beforeCollection runs before each per-collection fuzzy search.
	beforeCollection func(collection string)
}

// New creates a search service. enricher may be nil.
func New(
	idx Index, a *analyzer.Analyzer, p *planner.Planner, enricher Enricher, cfg Config, logger *zap.Logger,
) *Service {
	cfg.ApplyDefaults()
	s := &Service{
		idx:      idx,
		analyzer: a,
		planner:  p,
		enricher: enricher,
		cfg:      cfg,
		logger:   logger,
	}
	if cfg.CacheSize > 0 {
		s.cache, _ = lru.New[string, []result.Result](cfg.CacheSize) // only fails on size <= 0
	}
	return s
}

// Search runs the exact, fuzzy and semantic tiers, fuses the candidates
// and, when local results are weak, retries with enrichment-suggested
// terms. It fails only on an over-long query or a cancelled context.
func (s *Service) Search(ctx context.Context, q string, opts request.Options) ([]result.Result, error) {
	start := time.Now()
	results, err := s.search(ctx, q, opts)
	observe(entrySearch, start, err)
	return results, err
}

func (s *Service) search(ctx context.Context, q string, opts request.Options) ([]result.Result, error) {
	if err := request.ValidateQuery(q); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return []result.Result{}, nil
	}

	snap := s.snapshot(ctx)
	local := s.searchLocal(snap, q, &opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.shouldEnrich(q, local) {
		return s.enrich(ctx, snap, q, &opts, local), nil
	}
	return local, nil
}

// SemanticSearch runs only the entity and filter sub-queries, returning
// every match sorted by score. modules restricts the collections searched.
func (s *Service) SemanticSearch(ctx context.Context, q string, modules []string) ([]result.Result, error) {
	start := time.Now()
	results, err := s.semanticSearch(ctx, q, modules)
	observe(entrySemantic, start, err)
	return results, err
}

func (s *Service) semanticSearch(ctx context.Context, q string, modules []string) ([]result.Result, error) {
	if err := request.ValidateQuery(q); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts, err := request.New(modules, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return []result.Result{}, nil
	}

	snap := s.snapshot(ctx)
	planned := s.planner.Parse(q)
	f := newFuser()
	f.add(tier.Semantic, s.semanticTier(snap, planned, opts.Collections(), 0, false))
	return f.results(0, queryWords(q)), nil
}

// Suggest returns typeahead completions of prefix over indexed display titles.
func (s *Service) Suggest(ctx context.Context, prefix string, limit int) ([]result.Suggestion, error) {
	start := time.Now()
	out, err := s.suggest(ctx, prefix, limit)
	observe(entrySuggest, start, err)
	return out, err
}

func (s *Service) suggest(ctx context.Context, prefix string, limit int) ([]result.Suggestion, error) {
	if err := request.ValidateQuery(prefix); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []result.Suggestion{}, nil
	}

	src := newTitleSource(s.snapshot(ctx))
	matches := sfuzzy.FindFrom(prefix, src)
	out := make([]result.Suggestion, 0, min(limit, len(matches)))
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		e := src.entries[m.Index]
		out = append(out, result.Suggestion{
			Collection:     e.Collection,
			ID:             e.Record.ID,
			Title:          m.Str,
			Score:          m.Score,
			MatchedIndexes: m.MatchedIndexes,
		})
	}
	return out, nil
}

// Analyze exposes the text analyzer.
func (s *Service) Analyze(text string) entity.Entities { return s.analyzer.Analyze(text) }

// Plan exposes the query planner.
func (s *Service) Plan(q string) query.Query { return s.planner.Parse(q) }

// GenerateTags suggests tags for a record text.
func (s *Service) GenerateTags(text, typ string) []string { return s.analyzer.GenerateTags(text, typ) }

// snapshot refreshes a stale index before handing out the current snapshot.
func (s *Service) snapshot(ctx context.Context) *index.Snapshot {
	if err := s.idx.RefreshIfStale(ctx); err != nil {
		s.logger.Warn("index refresh failed, searching the previous snapshot", zap.Error(err))
	}
	return s.idx.Snapshot()
}

// searchLocal runs all three tiers against snap. Results are cached per
// snapshot generation, so a rebuild invalidates them.
func (s *Service) searchLocal(snap *index.Snapshot, q string, opts *request.Options) []result.Result {
	key := fmt.Sprintf("%d|%s|%s", snap.Generation(), q, opts.CacheKey())
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			metrics.SearchCacheTotal.WithLabelValues("hit").Inc()
			return append([]result.Result(nil), cached...)
		}
		metrics.SearchCacheTotal.WithLabelValues("miss").Inc()
	}

	cols := opts.Collections()
	planned := s.planner.Parse(q)
	f := newFuser()

	exact := s.exactTier(snap, q, opts)
	metrics.SearchCandidatesTotal.WithLabelValues(string(tier.Exact)).Add(float64(len(exact)))
	f.add(tier.Exact, exact)

	fz := s.fuzzyTier(snap, q, cols, fuzzyScale, opts.Threshold())
	metrics.SearchCandidatesTotal.WithLabelValues(string(tier.Fuzzy)).Add(float64(len(fz)))
	f.add(tier.Fuzzy, fz)

	f.add(tier.Semantic, s.semanticTier(snap, planned, cols, opts.Threshold(), true))

	results := f.results(opts.Limit(), queryWords(q))
	s.logger.Debug("local search",
		zap.String("query", q),
		zap.Uint64("generation", snap.Generation()),
		zap.Int("exact", len(exact)),
		zap.Int("fuzzy", len(fz)),
		zap.Int("fused", f.len()),
		zap.Int("returned", len(results)),
	)

	if s.cache != nil {
		s.cache.Add(key, append([]result.Result(nil), results...))
	}
	return results
}

func (s *Service) shouldEnrich(q string, local []result.Result) bool {
	return s.enricher != nil &&
		utf8.RuneCountInString(q) > s.cfg.EnrichMinQueryLen &&
		len(local) < s.cfg.EnrichBelowResults
}

// enrich asks the enricher for alternate terms and re-runs the local search
// with them. The new results replace local only when there are strictly
// more of them; any failure keeps local.
func (s *Service) enrich(
	ctx context.Context, snap *index.Snapshot, q string, opts *request.Options, local []result.Result,
) []result.Result {
	req := enrichment.Request{Query: q, Context: make([]record.Record, 0, enrichment.MaxContext)}
	for i := 0; i < len(local) && i < enrichment.MaxContext; i++ {
		req.Context = append(req.Context, local[i].Record())
	}

	ectx, cancel := context.WithTimeout(ctx, s.cfg.EnrichTimeout)
	defer cancel()

	resp, err := s.enricher.Enrich(ectx, req)
	if err != nil {
		metrics.EnrichmentFallbackTotal.Inc()
		s.logger.Warn("enrichment failed, keeping local results",
			zap.String("query", q), zap.Int("local", len(local)), zap.Error(err))
		resp = enrichment.Fallback(q)
	}

	terms := resp.Terms()
	if len(terms) == 0 {
		return local
	}
	alt := strings.Join(terms, " ")
	if alt == q {
		return local
	}

	again := s.searchLocal(snap, alt, opts)
	if len(again) > len(local) {
		s.logger.Debug("enrichment improved results",
			zap.String("query", q), zap.String("terms", alt),
			zap.Int("before", len(local)), zap.Int("after", len(again)))
		return again
	}
	return local
}

func observe(entry string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(entry, status).Inc()
	metrics.SearchDuration.WithLabelValues(entry).Observe(time.Since(start).Seconds())
}

// titleSource adapts snapshot display titles to sahilm/fuzzy.
type titleSource struct {
	entries []*index.Entry
}

func newTitleSource(snap *index.Snapshot) *titleSource {
	src := &titleSource{}
	for _, col := range record.Collections() {
		entries := snap.Entries(col)
		for i := range entries {
			if entries[i].Record.DisplayTitle() != "" {
				src.entries = append(src.entries, &entries[i])
			}
		}
	}
	return src
}

func (t *titleSource) String(i int) string { return t.entries[i].Record.DisplayTitle() }
func (t *titleSource) Len() int            { return len(t.entries) }
