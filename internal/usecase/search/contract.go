package search

import (
	"context"

	"github.com/tripnote/tripnote/internal/domain/enrichment"
	"github.com/tripnote/tripnote/internal/index"
)

// Index provides the current immutable snapshot.
type Index interface {
	Snapshot() *index.Snapshot
	RefreshIfStale(ctx context.Context) error
}

// Enricher asks a remote service for alternate search terms.
type Enricher interface {
	Enrich(ctx context.Context, req enrichment.Request) (enrichment.Response, error)
}
