package tripnote

import (
	"context"
	"fmt"
	"time"

	"github.com/tripnote/tripnote/internal/domain"
	"github.com/tripnote/tripnote/internal/domain/search/request"
)

// SearchBuilder is a fluent builder for one free-text search.
type SearchBuilder struct {
	c         *Client
	query     string
	modules   []string
	limit     int
	threshold float64
}

// Search starts a query over every collection with the default limit
// (20) and score threshold (0.3).
func (c *Client) Search(q string) *SearchBuilder {
	return &SearchBuilder{c: c, query: q}
}

// In restricts the search to the given collections. Unknown names match nothing.
func (b *SearchBuilder) In(collections ...string) *SearchBuilder {
	b.modules = append(b.modules, collections...)
	return b
}

// Limit sets the maximum number of hits.
func (b *SearchBuilder) Limit(n int) *SearchBuilder {
	b.limit = n
	return b
}

// Threshold sets the minimum score (0..1) for fuzzy-only hits.
func (b *SearchBuilder) Threshold(t float64) *SearchBuilder {
	b.threshold = t
	return b
}

// Do runs the search. It fails only on invalid options or a cancelled
// context; data problems degrade to fewer hits.
func (b *SearchBuilder) Do(ctx context.Context) (hits []Hit, err error) {
	defer func(start time.Time) { b.c.obs.observe("search", start, err) }(time.Now())

	opts, err := request.New(b.modules, b.limit, b.threshold)
	if err != nil {
		return nil, fmt.Errorf("search: %w: %w", domain.ErrInvalidQuery, err)
	}
	results, err := b.c.search.Search(ctx, b.query, opts)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return toHits(results), nil
}
