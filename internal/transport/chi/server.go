// Package chi exposes search and record management over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tripnote/tripnote/internal/domain"
	"github.com/tripnote/tripnote/internal/domain/enrichment"
	"github.com/tripnote/tripnote/internal/domain/entity"
	domrec "github.com/tripnote/tripnote/internal/domain/record"
	"github.com/tripnote/tripnote/internal/domain/record/patch"
	"github.com/tripnote/tripnote/internal/domain/search/query"
	"github.com/tripnote/tripnote/internal/domain/search/request"
	"github.com/tripnote/tripnote/internal/domain/search/result"
	"github.com/tripnote/tripnote/internal/index"
	logpkg "github.com/tripnote/tripnote/internal/logger"
	"github.com/tripnote/tripnote/internal/metrics"
	healthuc "github.com/tripnote/tripnote/internal/usecase/health"
)

// maxBodyBytes bounds record payloads.
const maxBodyBytes = 1 << 20

// ErrorCode is the machine-readable error kind in an error body.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeInvalidQuery      ErrorCode = "invalid_query"
	CodeInvalidRecord     ErrorCode = "invalid_record"
	CodeUnknownCollection ErrorCode = "unknown_collection"
	CodeNotFound          ErrorCode = "not_found"
	CodeAlreadyExists     ErrorCode = "already_exists"
	CodeRateLimited       ErrorCode = "rate_limited"
	CodeEnrichment        ErrorCode = "enrichment_unavailable"
	CodeInternal          ErrorCode = "internal_error"
)

// Searcher is the search surface the API needs.
type Searcher interface {
	Search(ctx context.Context, q string, opts request.Options) ([]result.Result, error)
	SemanticSearch(ctx context.Context, q string, modules []string) ([]result.Result, error)
	Suggest(ctx context.Context, prefix string, limit int) ([]result.Suggestion, error)
	Analyze(text string) entity.Entities
	Plan(q string) query.Query
	GenerateTags(text, typ string) []string
}

// Records manages stored records.
type Records interface {
	Add(ctx context.Context, collection string, rec domrec.Record) (domrec.Record, error)
	Get(ctx context.Context, collection, id string) (domrec.Record, error)
	List(ctx context.Context, collection string) ([]domrec.Record, error)
	Update(ctx context.Context, collection string, rec domrec.Record) (domrec.Record, error)
	Patch(ctx context.Context, collection, id string, p patch.Patch) (domrec.Record, error)
	Delete(ctx context.Context, collection, id string) error
}

// Indexer rebuilds and reports the search index.
type Indexer interface {
	Rebuild(ctx context.Context) error
	Snapshot() *index.Snapshot
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Limits are the caller-facing search defaults.
type Limits struct {
	DefaultLimit     int
	MaxLimit         int
	DefaultThreshold float64
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the tripnote HTTP API.
type Server struct {
	search        Searcher
	records       Records
	index         Indexer
	health        HealthChecker
	limits        Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	records Records,
	idx Indexer,
	health HealthChecker,
	limits Limits,
	logger *zap.Logger,
) *Server {
	if limits.DefaultLimit <= 0 {
		limits.DefaultLimit = request.DefaultLimit
	}
	if limits.MaxLimit <= 0 {
		limits.MaxLimit = request.MaxLimit
	}
	if limits.DefaultThreshold <= 0 {
		limits.DefaultThreshold = request.DefaultThreshold
	}
	s := &Server{
		search:  search,
		records: records,
		index:   idx,
		health:  health,
		limits:  limits,
		logger:  logger,
	}
	// Validation errors echo their detail; everything else gets the sentinel text only.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery, true),
		sentinelHandler(domain.ErrInvalidRecord, http.StatusBadRequest, CodeInvalidRecord, true),
		sentinelHandler(domain.ErrUnknownCollection, http.StatusBadRequest, CodeUnknownCollection, true),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound, false),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists, false),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited, false),
		sentinelHandler(domain.ErrEnrichmentUnavailable, http.StatusBadGateway, CodeEnrichment, false),
	}
	return s
}

// Routes builds the chi router with the standard middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Get("/search", s.Search)
	r.Get("/search/semantic", s.SemanticSearch)
	r.Get("/suggest", s.Suggest)
	r.Get("/analyze", s.Analyze)
	r.Get("/plan", s.Plan)
	r.Get("/tags", s.Tags)

	r.Get("/index", s.IndexStatus)
	r.Post("/index/rebuild", s.RebuildIndex)

	r.Route("/records/{collection}", func(r chi.Router) {
		r.Get("/", s.ListRecords)
		r.Post("/", s.CreateRecord)
		r.Get("/{id}", s.GetRecord)
		r.Put("/{id}", s.UpdateRecord)
		r.Patch("/{id}", s.PatchRecord)
		r.Delete("/{id}", s.DeleteRecord)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// SearchResultItem is one ranked hit.
type SearchResultItem struct {
	Collection    string        `json:"collection"`
	ID            string        `json:"id"`
	Score         float64       `json:"score"`
	MatchedFields []string      `json:"matchedFields"`
	Snippet       string        `json:"snippet,omitempty"`
	Record        domrec.Record `json:"record"`
}

// SearchResponse wraps ranked hits.
type SearchResponse struct {
	Query string             `json:"query"`
	Items []SearchResultItem `json:"items"`
	Total int                `json:"total"`
	Limit int                `json:"limit,omitempty"`
}

// IndexResponse describes the current snapshot.
type IndexResponse struct {
	Generation uint64    `json:"generation"`
	Entries    int       `json:"entries"`
	BuiltAt    time.Time `json:"builtAt"`
	Failed     []string  `json:"failed"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Index  IndexResponse     `json:"index"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Search handles GET /search?q=&modules=&limit=&threshold=.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	opts, err := s.searchOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidQuery, err.Error())
		return
	}

	ctx, usage := enrichment.NewContextWithUsage(r.Context())
	results, err := s.search.Search(ctx, q, opts)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	setEnrichmentHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse{
		Query: q,
		Items: resultsToItems(results),
		Total: len(results),
		Limit: opts.Limit(),
	})
}

// SemanticSearch handles GET /search/semantic?q=&modules=.
func (s *Server) SemanticSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	results, err := s.search.SemanticSearch(r.Context(), q, splitList(r.URL.Query().Get("modules")))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Query: q,
		Items: resultsToItems(results),
		Total: len(results),
	})
}

// Suggest handles GET /suggest?q=&limit=.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, CodeInvalidQuery, "limit must be a non-negative integer")
		return
	}
	out, err := s.search.Suggest(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// Analyze handles GET /analyze?text=.
func (s *Server) Analyze(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if err := request.ValidateQuery(text); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidQuery, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.search.Analyze(text))
}

// Plan handles GET /plan?q=.
func (s *Server) Plan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if err := request.ValidateQuery(q); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidQuery, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.search.Plan(q))
}

// Tags handles GET /tags?text=&type=.
func (s *Server) Tags(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if err := request.ValidateQuery(text); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidQuery, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tags": s.search.GenerateTags(text, r.URL.Query().Get("type")),
	})
}

// IndexStatus handles GET /index.
func (s *Server) IndexStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, indexToResponse(s.index.Snapshot()))
}

// RebuildIndex handles POST /index/rebuild.
func (s *Server) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Rebuild(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, indexToResponse(s.index.Snapshot()))
}

// ListRecords handles GET /records/{collection}.
func (s *Server) ListRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := s.records.List(r.Context(), chi.URLParam(r, "collection"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": recs, "total": len(recs)})
}

// CreateRecord handles POST /records/{collection}.
func (s *Server) CreateRecord(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	rec, ok := decodeRecord(w, r)
	if !ok {
		return
	}

	created, err := s.records.Add(r.Context(), collection, rec)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/records/%s/%s", collection, created.ID))
	writeJSON(w, http.StatusCreated, created)
}

// GetRecord handles GET /records/{collection}/{id}.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.records.Get(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateRecord handles PUT /records/{collection}/{id}. The path id wins over the body.
func (s *Server) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	rec, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	rec.ID = chi.URLParam(r, "id")

	updated, err := s.records.Update(r.Context(), chi.URLParam(r, "collection"), rec)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// PatchRecord handles PATCH /records/{collection}/{id}.
func (s *Server) PatchRecord(w http.ResponseWriter, r *http.Request) {
	var f patch.Fields
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	p, err := patch.New(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRecord, err.Error())
		return
	}

	updated, err := s.records.Patch(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"), p)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteRecord handles DELETE /records/{collection}/{id}.
func (s *Server) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.records.Delete(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health. Degraded still answers 200: search works
// from whatever the last snapshot holds.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	failed := report.Index.Failed
	if failed == nil {
		failed = []string{}
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
		Index: IndexResponse{
			Generation: report.Index.Generation,
			Entries:    report.Index.Entries,
			BuiltAt:    report.Index.BuiltAt,
			Failed:     failed,
		},
	})
}

// searchOptions reads limit, threshold and modules, applying the server defaults.
func (s *Server) searchOptions(r *http.Request) (request.Options, error) {
	limit, err := intParam(r, "limit", s.limits.DefaultLimit)
	if err != nil {
		return request.Options{}, fmt.Errorf("limit must be an integer")
	}
	if limit <= 0 || limit > s.limits.MaxLimit {
		return request.Options{}, fmt.Errorf("limit must be between 1 and %d", s.limits.MaxLimit)
	}

	threshold := s.limits.DefaultThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		threshold, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return request.Options{}, fmt.Errorf("threshold must be a number")
		}
	}

	opts, err := request.New(splitList(r.URL.Query().Get("modules")), limit, threshold)
	if err != nil {
		return request.Options{}, fmt.Errorf("search options: %w", err)
	}
	return opts, nil
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (domrec.Record, bool) {
	var rec domrec.Record
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return domrec.Record{}, false
	}
	return rec, true
}

func resultsToItems(results []result.Result) []SearchResultItem {
	items := make([]SearchResultItem, len(results))
	for i := range results {
		r := &results[i]
		items[i] = SearchResultItem{
			Collection:    r.Collection(),
			ID:            r.ID(),
			Score:         r.Score(),
			MatchedFields: r.MatchedFields(),
			Snippet:       r.Snippet(),
			Record:        r.Record(),
		}
	}
	return items
}

func indexToResponse(snap *index.Snapshot) IndexResponse {
	failed := snap.Failed()
	if failed == nil {
		failed = []string{}
	}
	return IndexResponse{
		Generation: snap.Generation(),
		Entries:    snap.Len(),
		BuiltAt:    snap.BuiltAt(),
		Failed:     failed,
	}
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}

// splitList parses "a,b, c" into trimmed non-empty items.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// setEnrichmentHeaders reports remote enrichment usage for the request, if any.
func setEnrichmentHeaders(w http.ResponseWriter, usage *enrichment.Usage) {
	if usage.Used() {
		w.Header().Set("X-Enrichment-Tokens", strconv.Itoa(usage.Tokens()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode, detailed bool) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if detailed {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	reqLogger := logpkg.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			reqLogger.Debug("domain error", zap.Error(err))
			return
		}
	}
	reqLogger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}
