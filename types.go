package tripnote

import (
	"context"
	"time"

	"github.com/tripnote/tripnote/internal/domain"
	"github.com/tripnote/tripnote/internal/domain/enrichment"
	"github.com/tripnote/tripnote/internal/domain/entity"
	domrec "github.com/tripnote/tripnote/internal/domain/record"
	"github.com/tripnote/tripnote/internal/domain/record/patch"
	"github.com/tripnote/tripnote/internal/domain/search/query"
	"github.com/tripnote/tripnote/internal/domain/search/result"
	healthuc "github.com/tripnote/tripnote/internal/usecase/health"
)

// Record is one entry of a collection.
type Record = domrec.Record

// PatchFields is a partial record update. Nil fields are left unchanged.
type PatchFields = patch.Fields

// Entities is the result of analyzing a text.
type Entities = entity.Entities

// Query is the planned form of a search query.
type Query = query.Query

// Suggestion is one typeahead completion.
type Suggestion = result.Suggestion

// HealthReport aggregates component health.
type HealthReport = healthuc.Report

// EnrichmentRequest and EnrichmentResponse are the enrichment contract.
type (
	EnrichmentRequest  = enrichment.Request
	EnrichmentResponse = enrichment.Response
)

// Collection names.
const (
	Pins      = domrec.Pins
	People    = domrec.People
	Journal   = domrec.Journal
	Expenses  = domrec.Expenses
	Checklist = domrec.Checklist
	Learning  = domrec.Learning
	Food      = domrec.Food
	Gear      = domrec.Gear
)

// Collections returns the known collection names in indexing order.
func Collections() []string { return domrec.Collections() }

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound              = domain.ErrNotFound
	ErrAlreadyExists         = domain.ErrAlreadyExists
	ErrUnknownCollection     = domain.ErrUnknownCollection
	ErrInvalidRecord         = domain.ErrInvalidRecord
	ErrInvalidQuery          = domain.ErrInvalidQuery
	ErrEnrichmentUnavailable = domain.ErrEnrichmentUnavailable
	ErrRateLimited           = domain.ErrRateLimited
)

// Hit is one ranked search result.
type Hit struct {
	Collection    string   `json:"collection"`
	ID            string   `json:"id"`
	Score         float64  `json:"score"`
	MatchedFields []string `json:"matchedFields"`
	Snippet       string   `json:"snippet,omitempty"`
	Record        Record   `json:"record"`
}

// IndexInfo describes the current index snapshot.
type IndexInfo struct {
	Generation uint64    `json:"generation"`
	Entries    int       `json:"entries"`
	BuiltAt    time.Time `json:"builtAt"`
	Failed     []string  `json:"failed"`
}

// RecordStore is a custom record backend. GetAll feeds the index; the
// other methods back record management. Missing records must be reported
// with an error wrapping ErrNotFound, duplicates with ErrAlreadyExists.
type RecordStore interface {
	GetAll(ctx context.Context, collection string) ([]Record, error)
	Get(ctx context.Context, collection, id string) (Record, error)
	Create(ctx context.Context, rec Record) error
	Update(ctx context.Context, rec Record) error
	Delete(ctx context.Context, collection, id string) error
}

// Enricher suggests alternate search terms for weak queries.
type Enricher interface {
	Enrich(ctx context.Context, req EnrichmentRequest) (EnrichmentResponse, error)
}

func toHits(results []result.Result) []Hit {
	hits := make([]Hit, len(results))
	for i := range results {
		r := &results[i]
		hits[i] = Hit{
			Collection:    r.Collection(),
			ID:            r.ID(),
			Score:         r.Score(),
			MatchedFields: r.MatchedFields(),
			Snippet:       r.Snippet(),
			Record:        r.Record(),
		}
	}
	return hits
}
