package record

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripnote/tripnote/internal/domain"
	domrec "github.com/tripnote/tripnote/internal/domain/record"
	"github.com/tripnote/tripnote/internal/domain/record/patch"
)

// Service handles record CRUD. Writes stamp timestamps, fill missing ids
// and tags, and rebuild the search index.
type Service struct {
	repo    Repository
	tagger  Tagger
	indexer Indexer
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// New creates a record service. tagger and indexer may be nil.
func New(repo Repository, tagger Tagger, indexer Indexer, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		tagger:  tagger,
		indexer: indexer,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithClock overrides the timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Add stores a new record in collection and returns it as stored.
func (s *Service) Add(ctx context.Context, collection string, rec domrec.Record) (domrec.Record, error) {
	if !domrec.IsKnownCollection(collection) {
		return domrec.Record{}, fmt.Errorf("%w: %s", domain.ErrUnknownCollection, collection)
	}
	rec.Type = collection
	if rec.ID == "" {
		rec.ID = s.newID()
	}
	rec.CreatedAt = ""
	rec.Normalize()
	if len(rec.Tags) == 0 {
		rec.Tags = s.suggestTags(&rec)
	}
	rec.Touch(s.now())

	if err := rec.Validate(); err != nil {
		return domrec.Record{}, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return domrec.Record{}, fmt.Errorf("create record: %w", err)
	}

	s.reindex(ctx, "add", rec.Key())
	return rec, nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, collection, id string) (domrec.Record, error) {
	if !domrec.IsKnownCollection(collection) {
		return domrec.Record{}, fmt.Errorf("%w: %s", domain.ErrUnknownCollection, collection)
	}
	rec, err := s.repo.Get(ctx, collection, id)
	if err != nil {
		return domrec.Record{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// List returns every record of a collection in store order.
func (s *Service) List(ctx context.Context, collection string) ([]domrec.Record, error) {
	if !domrec.IsKnownCollection(collection) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCollection, collection)
	}
	recs, err := s.repo.GetAll(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recs, nil
}

// Update replaces an existing record. CreatedAt is kept from the stored copy.
func (s *Service) Update(ctx context.Context, collection string, rec domrec.Record) (domrec.Record, error) {
	existing, err := s.Get(ctx, collection, rec.ID)
	if err != nil {
		return domrec.Record{}, err
	}

	rec.Type = collection
	rec.CreatedAt = existing.CreatedAt
	rec.Normalize()
	rec.Touch(s.now())

	if err := rec.Validate(); err != nil {
		return domrec.Record{}, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return domrec.Record{}, fmt.Errorf("update record: %w", err)
	}

	s.reindex(ctx, "update", rec.Key())
	return rec, nil
}

// Patch applies a partial update to an existing record. When the result
// has no tags, they are generated again from its text.
func (s *Service) Patch(ctx context.Context, collection, id string, p patch.Patch) (domrec.Record, error) {
	existing, err := s.Get(ctx, collection, id)
	if err != nil {
		return domrec.Record{}, err
	}

	rec := p.Apply(existing)
	rec.Normalize()
	if len(rec.Tags) == 0 {
		rec.Tags = s.suggestTags(&rec)
	}
	rec.Touch(s.now())

	if err := rec.Validate(); err != nil {
		return domrec.Record{}, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return domrec.Record{}, fmt.Errorf("patch record: %w", err)
	}

	s.reindex(ctx, "patch", rec.Key())
	return rec, nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, collection, id string) error {
	if !domrec.IsKnownCollection(collection) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownCollection, collection)
	}
	if err := s.repo.Delete(ctx, collection, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	s.reindex(ctx, "delete", domrec.Key(collection, id))
	return nil
}

func (s *Service) suggestTags(rec *domrec.Record) []string {
	if s.tagger == nil {
		return nil
	}
	text := strings.Join([]string{rec.DisplayTitle(), rec.Description, rec.Content, rec.Location}, " ")
	return s.tagger.GenerateTags(text, rec.Type)
}

// reindex rebuilds the index. The write already succeeded, so a failed
// rebuild is logged and left to the next refresh.
func (s *Service) reindex(ctx context.Context, op, key string) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.Rebuild(ctx); err != nil {
		s.logger.Warn("index rebuild after write failed",
			zap.String("op", op), zap.String("record", key), zap.Error(err))
	}
}
