// Package memstore keeps records in process memory. It backs tests and
// ephemeral sessions.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/tripnote/tripnote/internal/domain"
	"github.com/tripnote/tripnote/internal/domain/record"
)

// Store is a concurrency-safe in-memory record store that preserves
// insertion order within a collection.
type Store struct {
	mu   sync.RWMutex
	data map[string][]record.Record
}

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string][]record.Record)}
}

// GetAll returns a copy of every record in collection.
func (s *Store) GetAll(_ context.Context, collection string) ([]record.Record, error) {
	if !record.IsKnownCollection(collection) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCollection, collection)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.data[collection]
	out := make([]record.Record, len(recs))
	for i := range recs {
		out[i] = clone(recs[i])
	}
	return out, nil
}

// Get returns one record.
func (s *Store) Get(_ context.Context, collection, id string) (record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.find(collection, id)
	if i < 0 {
		return record.Record{}, domain.ErrNotFound
	}
	return clone(s.data[collection][i]), nil
}

// Create appends a new record.
func (s *Store) Create(_ context.Context, rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(rec.Type, rec.ID) >= 0 {
		return domain.ErrAlreadyExists
	}
	s.data[rec.Type] = append(s.data[rec.Type], clone(rec))
	return nil
}

// Update replaces an existing record in place.
func (s *Store) Update(_ context.Context, rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(rec.Type, rec.ID)
	if i < 0 {
		return domain.ErrNotFound
	}
	s.data[rec.Type][i] = clone(rec)
	return nil
}

// Delete removes a record.
func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(collection, id)
	if i < 0 {
		return domain.ErrNotFound
	}
	recs := s.data[collection]
	s.data[collection] = append(recs[:i:i], recs[i+1:]...)
	return nil
}

func (s *Store) find(collection, id string) int {
	for i := range s.data[collection] {
		if s.data[collection][i].ID == id {
			return i
		}
	}
	return -1
}

func clone(r record.Record) record.Record {
	if r.Tags != nil {
		r.Tags = append([]string(nil), r.Tags...)
	}
	if r.Amount != nil {
		v := *r.Amount
		r.Amount = &v
	}
	return r
}
