package record

import (
	"context"

	domrec "github.com/tripnote/tripnote/internal/domain/record"
)

// Repository defines the storage contract for records.
type Repository interface {
	GetAll(ctx context.Context, collection string) ([]domrec.Record, error)
	Get(ctx context.Context, collection, id string) (domrec.Record, error)
	Create(ctx context.Context, rec domrec.Record) error
	Update(ctx context.Context, rec domrec.Record) error
	Delete(ctx context.Context, collection, id string) error
}

// Tagger suggests tags for a record text.
type Tagger interface {
	GenerateTags(text, typ string) []string
}

// Indexer rebuilds the search index after a write.
type Indexer interface {
	Rebuild(ctx context.Context) error
}
