package health

import (
	"context"

	"github.com/tripnote/tripnote/internal/index"
)

// StorePinger checks record store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// IndexState exposes the current search snapshot.
type IndexState interface {
	Built() bool
	Snapshot() *index.Snapshot
}

// EnrichmentChecker checks enrichment provider availability.
type EnrichmentChecker interface {
	HealthCheck(ctx context.Context) error
}
