package tripnote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tripnote/tripnote/internal/config"
	"github.com/tripnote/tripnote/internal/repository/filestore"
)

// --- mocks ---

type mockStore struct {
	mu      sync.Mutex
	data    map[string][]Record
	failing map[string]bool
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string][]Record), failing: make(map[string]bool)}
}

func (m *mockStore) GetAll(_ context.Context, collection string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[collection] {
		return nil, errors.New("disk on fire")
	}
	return append([]Record(nil), m.data[collection]...), nil
}

func (m *mockStore) Get(_ context.Context, collection, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.data[collection] {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

func (m *mockStore) Create(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[rec.Type] = append(m.data[rec.Type], rec)
	return nil
}

func (m *mockStore) Update(context.Context, Record) error { return nil }

func (m *mockStore) Delete(context.Context, string, string) error { return nil }

type mockEnricher struct {
	resp  EnrichmentResponse
	err   error
	calls atomic.Int32
}

func (m *mockEnricher) Enrich(context.Context, EnrichmentRequest) (EnrichmentResponse, error) {
	m.calls.Add(1)
	return m.resp, m.err
}

func newClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func addParisDinner(t *testing.T, c *Client) Record {
	t.Helper()
	rec, err := c.Add(context.Background(), Journal, Record{
		ID:          "j1",
		Title:       "Dinner in Paris",
		Location:    "Paris",
		Description: "An amazing bistro near the Louvre",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return rec
}

// --- tests ---

func TestNew_DefaultsToMemory(t *testing.T) {
	c := newClient(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	addParisDinner(t, c)

	hits, err := c.Search("paris").Do(context.Background())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 || hits[0].ID != "j1" || hits[0].Collection != Journal {
		t.Fatalf("hits = %+v, want j1 first", hits)
	}
	if hits[0].Score <= 0 || hits[0].Score > 1 {
		t.Errorf("score = %v, want in (0,1]", hits[0].Score)
	}
}

func TestNew_BadStore(t *testing.T) {
	if _, err := New(context.Background(), WithRecordStore(nil)); err == nil {
		t.Error("expected error for nil record store")
	}
	unknown := optionFunc(func(c *clientConfig) { c.driver = "cassandra" })
	if _, err := New(context.Background(), unknown); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestAdd_FillsIDTagsAndTimestamps(t *testing.T) {
	c := newClient(t)
	rec, err := c.Add(context.Background(), Journal, Record{
		Title:       "Temple morning",
		Description: "Visited an ancient temple museum in the mountains",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.ID == "" || rec.CreatedAt == "" || rec.UpdatedAt == "" {
		t.Errorf("record not stamped: %+v", rec)
	}
	if len(rec.Tags) == 0 {
		t.Error("expected suggested tags")
	}
	if c.IndexInfo().Entries != 1 {
		t.Errorf("index entries = %d, want 1 after add", c.IndexInfo().Entries)
	}
}

func TestRecords_Errors(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	if _, err := c.Add(ctx, "souvenirs", Record{Title: "magnet"}); !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("Add unknown collection = %v", err)
	}
	if _, err := c.Get(ctx, Pins, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v", err)
	}
	if err := c.Delete(ctx, Pins, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete missing = %v", err)
	}

	rec := addParisDinner(t, c)
	if _, err := c.Add(ctx, Journal, rec); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate Add = %v", err)
	}
	rec.Title = "Dinner in Montmartre"
	updated, err := c.Update(ctx, Journal, rec)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.CreatedAt != rec.CreatedAt {
		t.Errorf("CreatedAt changed on update: %q -> %q", rec.CreatedAt, updated.CreatedAt)
	}
	list, err := c.List(ctx, Journal)
	if err != nil || len(list) != 1 || list[0].Title != "Dinner in Montmartre" {
		t.Errorf("List = %+v, %v", list, err)
	}
}

func TestPatch_ReindexesChangedFields(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()
	addParisDinner(t, c)

	loc := "Lyon"
	rec, err := c.Patch(ctx, Journal, "j1", PatchFields{Location: &loc})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if rec.Location != "Lyon" || rec.Title != "Dinner in Paris" {
		t.Errorf("patched record = %+v", rec)
	}

	hits, err := c.Search("lyon").Do(ctx)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 || hits[0].ID != "j1" {
		t.Errorf("hits = %+v, want j1 found by its new location", hits)
	}

	if _, err := c.Patch(ctx, Journal, "j1", PatchFields{}); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("empty Patch = %v, want ErrInvalidRecord", err)
	}
}

func TestSearch_InvalidOptions(t *testing.T) {
	c := newClient(t)
	if _, err := c.Search("x").Limit(-1).Do(context.Background()); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("negative limit = %v, want ErrInvalidQuery", err)
	}
	if _, err := c.Search("x").Threshold(1.5).Do(context.Background()); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("threshold 1.5 = %v, want ErrInvalidQuery", err)
	}
}

func TestSearch_CancelledContext(t *testing.T) {
	c := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Search("paris").Do(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSearch_UnknownModuleMatchesNothing(t *testing.T) {
	c := newClient(t)
	addParisDinner(t, c)
	hits, err := c.Search("paris").In("souvenirs").Do(context.Background())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %+v, want none", hits)
	}
}

func TestSearch_EditingHitsLeavesIndexIntact(t *testing.T) {
	for _, tc := range []struct {
		name      string
		cacheSize int
	}{
		{"cached", 256},
		{"uncached", -1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t, WithResultCache(tc.cacheSize))
			ctx := context.Background()
			if _, err := c.Add(ctx, Pins, Record{ID: "p1", Title: "Louvre Museum", Tags: []string{"museum", "art"}}); err != nil {
				t.Fatalf("Add: %v", err)
			}

			first, err := c.Search("louvre").Do(ctx)
			if err != nil || len(first) == 0 {
				t.Fatalf("Search = %+v, %v", first, err)
			}
			wantFields := append([]string(nil), first[0].MatchedFields...)
			first[0].Record.Tags[0] = "edited"
			first[0].MatchedFields[0] = "edited"

			again, err := c.Search("louvre").Do(ctx)
			if err != nil || len(again) == 0 {
				t.Fatalf("second Search = %+v, %v", again, err)
			}
			if again[0].Record.Tags[0] != "museum" {
				t.Errorf("tags = %v, want index copy untouched", again[0].Record.Tags)
			}
			if again[0].MatchedFields[0] != wantFields[0] {
				t.Errorf("matchedFields = %v, want %v", again[0].MatchedFields, wantFields)
			}

			sem, err := c.SemanticSearch(ctx, "louvre museum")
			if err != nil {
				t.Fatalf("SemanticSearch: %v", err)
			}
			for _, h := range sem {
				if h.ID == "p1" && h.Record.Tags[0] != "museum" {
					t.Errorf("semantic tags = %v", h.Record.Tags)
				}
			}
		})
	}
}

func TestAdd_KeepsCallerTags(t *testing.T) {
	c := newClient(t)
	tags := []string{"art", "art", "museum"}
	if _, err := c.Add(context.Background(), Pins, Record{Title: "Louvre", Tags: tags}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if tags[1] != "art" || tags[2] != "museum" {
		t.Errorf("caller tags modified: %v", tags)
	}
}

func TestInitialize_IdempotentAndResilient(t *testing.T) {
	store := newMockStore()
	store.data[Pins] = []Record{{ID: "p1", Type: Pins, Title: "Louvre Museum", Location: "Paris"}}
	store.failing[Expenses] = true

	c := newClient(t, WithRecordStore(store))
	ctx := context.Background()
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}

	info := c.IndexInfo()
	if info.Generation != 1 {
		t.Errorf("generation = %d, want 1", info.Generation)
	}
	if len(info.Failed) != 1 || info.Failed[0] != Expenses {
		t.Errorf("failed = %v, want [expenses]", info.Failed)
	}

	hits, err := c.Search("louvre").Do(ctx)
	if err != nil || len(hits) == 0 {
		t.Fatalf("search with a failed collection = %+v, %v", hits, err)
	}

	if err := c.RebuildIndex(ctx); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	if c.IndexInfo().Generation != 2 {
		t.Errorf("generation after rebuild = %d, want 2", c.IndexInfo().Generation)
	}
}

func TestSemanticSearchAndSuggest(t *testing.T) {
	c := newClient(t)
	addParisDinner(t, c)
	ctx := context.Background()

	hits, err := c.SemanticSearch(ctx, "dinner in Paris")
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(hits) == 0 || hits[0].ID != "j1" {
		t.Errorf("semantic hits = %+v", hits)
	}

	out, err := c.Suggest(ctx, "Dinn", 5)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(out) != 1 || out[0].Title != "Dinner in Paris" {
		t.Errorf("suggestions = %+v", out)
	}
}

func TestEnrichment_FallbackKeepsLocal(t *testing.T) {
	enr := &mockEnricher{err: ErrEnrichmentUnavailable}
	c := newClient(t, WithEnricher(enr))
	addParisDinner(t, c)

	hits, err := c.Search("romantic evening out").Do(context.Background())
	if err != nil {
		t.Fatalf("Search must not fail on enrichment errors: %v", err)
	}
	if enr.calls.Load() != 1 {
		t.Errorf("enricher calls = %d, want 1", enr.calls.Load())
	}
	for _, h := range hits {
		if h.ID != "j1" {
			t.Errorf("unexpected hit %+v", h)
		}
	}
}

func TestEnrichment_AlternateTerms(t *testing.T) {
	enr := &mockEnricher{resp: EnrichmentResponse{SearchTerms: []string{"paris"}}}
	c := newClient(t, WithEnricher(enr))
	addParisDinner(t, c)

	hits, err := c.Search("romantic evening out").Do(context.Background())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "j1" {
		t.Errorf("hits = %+v, want j1 via enrichment", hits)
	}
}

func TestEnrichment_ShortQuerySkipped(t *testing.T) {
	enr := &mockEnricher{}
	c := newClient(t, WithEnricher(enr))
	if _, err := c.Search("museum").Do(context.Background()); err != nil {
		t.Fatal(err)
	}
	if enr.calls.Load() != 0 {
		t.Errorf("enricher called for a short query")
	}
}

func TestPersistentStores(t *testing.T) {
	tests := []struct {
		name string
		opt  func(dir string) Option
	}{
		{"file", func(dir string) Option { return WithFileStore(dir) }},
		{"sqlite", func(dir string) Option { return WithSQLite(filepath.Join(dir, "tripnote.db")) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			ctx := context.Background()

			first, err := New(ctx, tc.opt(dir))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			addParisDinner(t, first)
			first.Close()

			second := newClient(t, tc.opt(dir))
			if err := second.Initialize(ctx); err != nil {
				t.Fatalf("Initialize: %v", err)
			}
			hits, err := second.Search("louvre").Do(ctx)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if len(hits) == 0 || hits[0].ID != "j1" {
				t.Errorf("hits after reopen = %+v", hits)
			}
		})
	}
}

func TestWatch_RebuildsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	c := newClient(t, WithFileStore(dir), WithWatch(20*time.Millisecond))
	ctx := context.Background()
	if err := c.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	external, err := filestore.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := external.Create(ctx, Record{ID: "p9", Type: Pins, Title: "Belem Tower"}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for c.IndexInfo().Entries != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("index not rebuilt after external write: %+v", c.IndexInfo())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandler_Health(t *testing.T) {
	c := newClient(t)
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestWithMetrics_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newClient(t, WithMetrics(reg))
	_ = newClient(t, WithMetrics(reg))

	if _, err := a.Search("paris").Do(context.Background()); err != nil {
		t.Fatal(err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "tripnote_client_operations_total" {
			found = true
		}
	}
	if !found {
		t.Error("client operations metric not gathered")
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte("store:\n  driver: sqlite\n  path: " + filepath.Join(t.TempDir(), "t.db") + "\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c, err := NewFromConfig(context.Background(), &cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if report := c.Health(context.Background()); report.Checks["store"] != "ok" {
		t.Errorf("health = %+v", report)
	}
}
