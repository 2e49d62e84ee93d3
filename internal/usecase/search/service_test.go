package search

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tripnote/tripnote/internal/analyzer"
	"github.com/tripnote/tripnote/internal/domain"
	"github.com/tripnote/tripnote/internal/domain/enrichment"
	"github.com/tripnote/tripnote/internal/domain/record"
	"github.com/tripnote/tripnote/internal/domain/search/request"
	"github.com/tripnote/tripnote/internal/domain/search/result"
	"github.com/tripnote/tripnote/internal/index"
	"github.com/tripnote/tripnote/internal/planner"
)

// --- Mocks ---

type mockSource struct {
	mu   sync.Mutex
	data map[string][]record.Record
}

func (m *mockSource) GetAll(_ context.Context, collection string) ([]record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]record.Record(nil), m.data[collection]...), nil
}

func (m *mockSource) put(collection string, r record.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[collection] = append(m.data[collection], r)
}

type mockEnricher struct {
	resp   enrichment.Response
	err    error
	block  bool
	calls  atomic.Int32
	last   enrichment.Request
	hadDDL bool
}

func (m *mockEnricher) Enrich(ctx context.Context, req enrichment.Request) (enrichment.Response, error) {
	m.calls.Add(1)
	m.last = req
	_, m.hadDDL = ctx.Deadline()
	if m.block {
		<-ctx.Done()
		return enrichment.Response{}, ctx.Err()
	}
	return m.resp, m.err
}

func amount(v float64) *float64 { return &v }

func seedSource() *mockSource {
	src := &mockSource{data: make(map[string][]record.Record)}
	src.put(record.Journal, record.Record{
		ID: "j1", Title: "Dinner in Paris", Location: "Paris", Tags: []string{"food", "paris"},
		Description: "An amazing bistro near the Louvre. We ordered duck confit and crème brûlée!",
	})
	src.put(record.Journal, record.Record{
		ID: "j2", Title: "Kyoto temples", Location: "Kyoto", Tags: []string{"shrine"},
		Description: "Walked through ancient temples in Kyoto.",
	})
	src.put(record.People, record.Record{ID: "p1", Name: "Maria", Description: "Friend from Lisbon", Location: "Lisbon"})
	src.put(record.Expenses, record.Record{ID: "e1", Title: "Taxi to airport", Location: "Paris", Amount: amount(45.5)})
	src.put(record.Pins, record.Record{ID: "pin1", Title: "Louvre Museum", Location: "Paris", Tags: []string{"museum", "art"}})
	src.put(record.Food, record.Record{ID: "f1", Title: "Pastel de nata", Location: "Lisbon", Tags: []string{"dessert"}})
	return src
}

func newTestService(t *testing.T, src *mockSource, enricher Enricher, cfg Config) (*Service, *index.Builder) {
	t.Helper()
	b := index.NewBuilder(src, index.Config{}, zap.NewNop())
	if err := b.Build(context.Background()); err != nil {
		t.Fatalf("build index: %v", err)
	}
	a := analyzer.New()
	svc := New(b, a, planner.New(a), enricher, cfg, zap.NewNop())
	return svc, b
}

func mustOptions(t *testing.T, modules []string, limit int, threshold float64) request.Options {
	t.Helper()
	opts, err := request.New(modules, limit, threshold)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return opts
}

func keys(results []result.Result) []string {
	out := make([]string, len(results))
	for i := range results {
		out[i] = results[i].Key()
	}
	return out
}

func hasField(r *result.Result, tag string) bool {
	for _, f := range r.MatchedFields() {
		if f == tag {
			return true
		}
	}
	return false
}

// --- Search ---

func TestSearch_LimitAndDedup(t *testing.T) {
	svc, _ := newTestService(t, seedSource(), nil, Config{})

	for _, limit := range []int{1, 2, 20} {
		results, err := svc.Search(context.Background(), "paris", mustOptions(t, nil, limit, 0))
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) > limit {
			t.Errorf("limit %d: got %d results", limit, len(results))
		}
		seen := make(map[string]bool)
		for _, k := range keys(results) {
			if seen[k] {
				t.Errorf("duplicate result %q", k)
			}
			seen[k] = true
		}
	}
}

func TestSearch_SortedByScore(t *testing.T) {
	svc, _ := newTestService(t, seedSource(), nil, Config{})

	for _, q := range []string{"paris", "dinner in paris with maria", "kyoto temple", "lisbon"} {
		results, err := svc.Search(context.Background(), q, request.Default())
		if err != nil {
			t.Fatal(err)
		}
		if len(results) == 0 {
			t.Errorf("%q: no results", q)
		}
		for i := 1; i < len(results); i++ {
			if results[i].Score() > results[i-1].Score() {
				t.Errorf("%q: results not sorted at %d: %v > %v", q, i, results[i].Score(), results[i-1].Score())
			}
		}
	}
}

func TestSearch_ExactTierIsAuthoritative(t *testing.T) {
	svc, _ := newTestService(t, seedSource(), nil, Config{})

	results, err := svc.Search(context.Background(), "louvre", request.Default())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("Search(louvre) = %v, want pin1 and j1", keys(results))
	}
	top := results[0]
	if top.Key() != "pins:pin1" {
		t.Errorf("top = %q, want pins:pin1 (tie broken by collection order)", top.Key())
	}
	if top.Score() != 0.9 {
		t.Errorf("top score = %v, want 0.9", top.Score())
	}
	if !hasField(&top, "exact:title") || !hasField(&top, "fuzzy:title") {
		t.Errorf("MatchedFields = %v, want exact:title and fuzzy:title", top.MatchedFields())
	}
	if results[1].Key() != "journal:j1" || !hasField(&results[1], "exact:description") {
		t.Errorf("second = %q %v", results[1].Key(), results[1].MatchedFields())
	}
}

func TestSearch_Idempotent(t *testing.T) {
	for _, cacheSize := range []int{-1, 16} {
		svc, _ := newTestService(t, seedSource(), nil, Config{CacheSize: cacheSize})
		opts := request.Default()

		first, err := svc.Search(context.Background(), "ancient temples in kyoto", opts)
		if err != nil {
			t.Fatal(err)
		}
		second, err := svc.Search(context.Background(), "ancient temples in kyoto", opts)
		if err != nil {
			t.Fatal(err)
		}
		if len(first) != len(second) {
			t.Fatalf("cache %d: lengths differ %d vs %d", cacheSize, len(first), len(second))
		}
		for i := range first {
			if first[i].Key() != second[i].Key() || first[i].Score() != second[i].Score() ||
				strings.Join(first[i].MatchedFields(), ",") != strings.Join(second[i].MatchedFields(), ",") {
				t.Errorf("cache %d: result %d differs: %v vs %v", cacheSize, i, first[i], second[i])
			}
		}
	}
}

func TestSearch_Modules(t *testing.T) {
	svc, _ := newTestService(t, seedSource(), nil, Config{})
	ctx := context.Background()

	results, err := svc.Search(ctx, "paris", mustOptions(t, []string{record.Expenses}, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected the paris expense")
	}
	for _, r := range results {
		if r.Collection() != record.Expenses {
			t.Errorf("result from %q leaked through the modules filter", r.Collection())
		}
	}

	results, err = svc.Search(ctx, "paris", mustOptions(t, []string{"notes"}, 0, 0))
	if err != nil {
		t.Fatalf("unknown module must not be an error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("unknown module returned %v", keys(results))
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc, _ := newTestService(t, seedSource(), nil, Config{})
	results, err := svc.Search(context.Background(), "   ", request.Default())
	if err != nil {
		t.Fatal(err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("Search(blank) = %v, want empty", results)
	}
}

func TestSearch_InvalidQuery(t *testing.T) {
	svc, _ := newTestService(t, seedSource(), nil, Config{})
	_, err := svc.Search(context.Background(), strings.Repeat("a", request.MaxQueryLength+1), request.Default())
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("err = %v, want ErrInvalidQuery", err)
	}
}

func TestSearch_CancelledContext(t *testing.T) {
	svc, _ := newTestService(t, seedSource(), nil, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Search(ctx, "paris", request.Default()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSearch_CollectionPanicIsIsolated(t *testing.T) {
	svc, _ := newTestService(t, seedSource(), nil, Config{CacheSize: -1})
	var panics atomic.Int32
	svc.beforeCollection = func(col string) {
		if col == record.People {
			panics.Add(1)
			panic("corrupt index")
		}
	}

	results, err := svc.Search(context.Background(), "lisbon", request.Default())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if panics.Load() == 0 {
		t.Fatal("hook never fired")
	}
	var food bool
	for _, r := range results {
		if r.Key() == "food:f1" {
			food = true
		}
	}
	if !food {
		t.Errorf("results = %v, healthy collections must still answer", keys(results))
	}
}

func TestSearch_RebuildInvalidatesCache(t *testing.T) {
	src := seedSource()
	svc, b := newTestService(t, src, nil, Config{})
	ctx := context.Background()

	results, err := svc.Search(ctx, "gelato", request.Default())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("unexpected results before insert: %v", keys(results))
	}

	src.put(record.Food, record.Record{ID: "f2", Title: "Gelato", Location: "Rome"})
	if err = b.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
	results, err = svc.Search(ctx, "gelato", request.Default())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].Key() != "food:f2" {
		t.Errorf("Search(gelato) after rebuild = %v", keys(results))
	}
}

func checkRanked(t *testing.T, label string, results []result.Result) {
	t.Helper()
	seen := make(map[string]bool, len(results))
	for i := range results {
		k := results[i].Key()
		if seen[k] {
			t.Errorf("%s: duplicate result %q", label, k)
		}
		seen[k] = true
		if i > 0 && results[i].Score() > results[i-1].Score() {
			t.Errorf("%s: score %v at %d above %v", label, results[i].Score(), i, results[i-1].Score())
		}
	}
}

func TestSearch_ConcurrentWithRebuild(t *testing.T) {
	src := seedSource()
	svc, b := newTestService(t, src, nil, Config{})
	ctx := context.Background()

	stop := make(chan struct{})
	var rebuilds sync.WaitGroup
	rebuilds.Add(1)
	go func() {
		defer rebuilds.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i < 50 {
				src.put(record.Journal, record.Record{ID: "walk-" + strconv.Itoa(i), Title: "Paris walk", Location: "Paris"})
			}
			if err := b.Rebuild(ctx); err != nil {
				t.Errorf("Rebuild: %v", err)
				return
			}
		}
	}()

	opts := mustOptions(t, nil, 5, 0)
	var searches sync.WaitGroup
	for g := 0; g < 8; g++ {
		searches.Add(1)
		go func(g int) {
			defer searches.Done()
			for i := 0; i < 30; i++ {
				if g%2 == 0 {
					results, err := svc.Search(ctx, "paris museum", opts)
					if err != nil {
						t.Errorf("Search: %v", err)
						return
					}
					if len(results) > 5 {
						t.Errorf("Search returned %d results, limit 5", len(results))
					}
					checkRanked(t, "Search", results)
					continue
				}
				results, err := svc.SemanticSearch(ctx, "dinner with Maria in Paris", nil)
				if err != nil {
					t.Errorf("SemanticSearch: %v", err)
					return
				}
				checkRanked(t, "SemanticSearch", results)
			}
		}(g)
	}
	searches.Wait()
	close(stop)
	rebuilds.Wait()
}

func TestSearch_Snippet(t *testing.T) {
	svc, _ := newTestService(t, seedSource(), nil, Config{})
	results, err := svc.Search(context.Background(), "duck confit", request.Default())
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Key() == "journal:j1" {
			if r.Snippet() != "We ordered duck confit and crème brûlée" {
				t.Errorf("Snippet() = %q", r.Snippet())
			}
			return
		}
	}
	t.Errorf("journal:j1 missing from %v", keys(results))
}

// --- Enrichment ---

func TestSearch_EnrichmentFailureKeepsLocalResults(t *testing.T) {
	const q = "kyoto temple trip"
	base, _ := newTestService(t, seedSource(), nil, Config{CacheSize: -1})
	want, err := base.Search(context.Background(), q, request.Default())
	if err != nil {
		t.Fatal(err)
	}

	enr := &mockEnricher{err: errors.New("503 service unavailable")}
	svc, _ := newTestService(t, seedSource(), enr, Config{CacheSize: -1})
	got, err := svc.Search(context.Background(), q, request.Default())
	if err != nil {
		t.Fatalf("enrichment failure must not surface, got %v", err)
	}
	if enr.calls.Load() != 1 {
		t.Fatalf("enricher called %d times, want 1", enr.calls.Load())
	}
	if strings.Join(keys(got), ",") != strings.Join(keys(want), ",") {
		t.Errorf("results = %v, want local %v", keys(got), keys(want))
	}
}

func TestSearch_EnrichmentReplacesWhenBetter(t *testing.T) {
	enr := &mockEnricher{resp: enrichment.Response{SearchTerms: []string{" lisbon "}}}
	svc, _ := newTestService(t, seedSource(), enr, Config{})

	results, err := svc.Search(context.Background(), "xqzjv wkpfh gblmc", request.Default())
	if err != nil {
		t.Fatal(err)
	}
	if enr.calls.Load() != 1 {
		t.Fatalf("enricher called %d times, want 1", enr.calls.Load())
	}
	if enr.last.Query != "xqzjv wkpfh gblmc" || len(enr.last.Context) > enrichment.MaxContext {
		t.Errorf("request = %+v", enr.last)
	}
	if !enr.hadDDL {
		t.Error("enrichment call must carry a deadline")
	}
	if len(results) == 0 {
		t.Error("expected results from the enriched terms")
	}
}

func TestSearch_EnrichmentKeepsLocalWhenNotBetter(t *testing.T) {
	enr := &mockEnricher{resp: enrichment.Response{SearchTerms: []string{"qqqqqqqq"}}}
	svc, _ := newTestService(t, seedSource(), enr, Config{})

	results, err := svc.Search(context.Background(), "kyoto temple trip", request.Default())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Error("local results must be kept when enrichment finds nothing")
	}
	if len(enr.last.Context) == 0 || enr.last.Context[0].ID != results[0].ID() {
		t.Errorf("context = %+v, want the top local candidates", enr.last.Context)
	}
}

func TestSearch_EnrichmentTriggers(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int32
	}{
		{"short query", "xqzjv", 0},
		{"exactly eight characters", "xqzjvwkp", 0},
		{"long query with few results", "xqzjv wkpfh", 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			enr := &mockEnricher{resp: enrichment.Fallback(tc.query)}
			svc, _ := newTestService(t, seedSource(), enr, Config{})
			if _, err := svc.Search(context.Background(), tc.query, request.Default()); err != nil {
				t.Fatal(err)
			}
			if got := enr.calls.Load(); got != tc.want {
				t.Errorf("enricher calls = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSearch_EnrichmentSkippedWithEnoughResults(t *testing.T) {
	src := seedSource()
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		src.put(record.Checklist, record.Record{ID: id, Title: "Pack the passport"})
	}
	enr := &mockEnricher{}
	svc, _ := newTestService(t, src, enr, Config{})

	results, err := svc.Search(context.Background(), "passport packing", request.Default())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) < DefaultEnrichBelowResults {
		t.Fatalf("got %d results, test needs at least %d", len(results), DefaultEnrichBelowResults)
	}
	if enr.calls.Load() != 0 {
		t.Error("enricher must not run when local search is strong")
	}
}

func TestSearch_EnrichmentTimeout(t *testing.T) {
	enr := &mockEnricher{block: true}
	svc, _ := newTestService(t, seedSource(), enr, Config{EnrichTimeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := svc.Search(context.Background(), "xqzjv wkpfh gblmc", request.Default())
	if err != nil {
		t.Fatalf("timeout must not surface, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("search blocked for %v", elapsed)
	}
}

// --- SemanticSearch ---

func TestSemanticSearch_PersonQuery(t *testing.T) {
	svc, _ := newTestService(t, seedSource(), nil, Config{})

	results, err := svc.SemanticSearch(context.Background(), "dinner with Maria", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].Key() != "people:p1" {
		t.Fatalf("SemanticSearch() = %v, want people:p1 first", keys(results))
	}
	if results[0].Score() != 0.9 {
		t.Errorf("score = %v, want 0.9 from the person filter", results[0].Score())
	}
	if !hasField(&results[0], "semantic:name") {
		t.Errorf("MatchedFields = %v", results[0].MatchedFields())
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score() > results[i-1].Score() {
			t.Errorf("not sorted at %d", i)
		}
	}
}

func TestSemanticSearch_Modules(t *testing.T) {
	svc, _ := newTestService(t, seedSource(), nil, Config{})

	results, err := svc.SemanticSearch(context.Background(), "museum in Paris", []string{record.Pins})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected the Louvre pin")
	}
	for _, r := range results {
		if r.Collection() != record.Pins {
			t.Errorf("result from %q leaked through the modules filter", r.Collection())
		}
	}
}

func TestSemanticSearch_NoEntities(t *testing.T) {
	svc, _ := newTestService(t, seedSource(), nil, Config{})
	results, err := svc.SemanticSearch(context.Background(), "something quiet", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("SemanticSearch() = %v, want nothing without entities", keys(results))
	}
}

// --- Suggest / passthroughs ---

func TestSuggest(t *testing.T) {
	svc, _ := newTestService(t, seedSource(), nil, Config{})

	got, err := svc.Suggest(context.Background(), "lvr", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 || got[0].ID != "pin1" || got[0].Title != "Louvre Museum" {
		t.Fatalf("Suggest(lvr) = %+v", got)
	}

	got, err = svc.Suggest(context.Background(), "a", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) > 2 {
		t.Errorf("Suggest() returned %d, want <= 2", len(got))
	}
}

func TestPlanAndAnalyze(t *testing.T) {
	svc, _ := newTestService(t, seedSource(), nil, Config{})

	q := svc.Plan("find cheap food")
	if q.Filters.Amount.Max == nil || *q.Filters.Amount.Max != 20 || q.Filters.Type != "food" {
		t.Errorf("Plan() filters = %+v", q.Filters)
	}
	if e := svc.Analyze("Dinner in Paris"); len(e.Places) == 0 {
		t.Errorf("Analyze() places = %v", e.Places)
	}
	if tags := svc.GenerateTags("ancient temple", "journal"); len(tags) == 0 {
		t.Error("GenerateTags() returned nothing")
	}
}
