package result

import "github.com/tripnote/tripnote/internal/domain/record"

// Result is a single fused search hit.
type Result struct {
	rec           record.Record
	score         float64
	matchedFields []string
	snippet       string
}

// New creates a search result. The record and field list are copied.
func New(rec record.Record, score float64, matchedFields []string, snippet string) Result {
	return Result{
		rec:           rec.Clone(),
		score:         score,
		matchedFields: append([]string(nil), matchedFields...),
		snippet:       snippet,
	}
}

// Record returns a copy of the matched record.
func (r *Result) Record() record.Record { return r.rec.Clone() }

// Collection returns the source collection.
func (r *Result) Collection() string { return r.rec.Type }

// ID returns the record identifier.
func (r *Result) ID() string { return r.rec.ID }

// Key returns the "collection:id" deduplication key.
func (r *Result) Key() string { return r.rec.Key() }

// Score returns the relevance score in 0..1.
func (r *Result) Score() float64 { return r.score }

// MatchedFields returns a copy of the provenance tags of every contributing candidate.
func (r *Result) MatchedFields() []string {
	if r.matchedFields == nil {
		return nil
	}
	return append([]string(nil), r.matchedFields...)
}

// Snippet returns the query-relevant excerpt, possibly empty.
func (r *Result) Snippet() string { return r.snippet }

// Suggestion is one typeahead completion over indexed display titles.
type Suggestion struct {
	Collection     string `json:"collection"`
	ID             string `json:"id"`
	Title          string `json:"title"`
	Score          int    `json:"score"`
	MatchedIndexes []int  `json:"matchedIndexes"`
}
