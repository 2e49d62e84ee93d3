// Package filestore keeps each collection as a JSON array in
// <dir>/<collection>.json. Files may also be edited by hand, so they are
// read as JSON5 (comments, trailing commas, unquoted keys); the watcher
// picks such edits up and triggers an index rebuild. Writes are plain JSON.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/titanous/json5"

	"github.com/tripnote/tripnote/internal/domain"
	"github.com/tripnote/tripnote/internal/domain/record"
)

// Ext is the collection file extension.
const Ext = ".json"

// Store reads and writes collection files under one directory.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// New creates the directory if needed and returns a store rooted there.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// CollectionOf maps a file path back to its collection name.
// It reports false for temp files and files outside the fixed set.
func CollectionOf(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, Ext) {
		return "", false
	}
	name := strings.TrimSuffix(base, Ext)
	return name, record.IsKnownCollection(name)
}

// GetAll returns every record of collection in file order.
// A missing file is an empty collection.
func (s *Store) GetAll(_ context.Context, collection string) ([]record.Record, error) {
	if !record.IsKnownCollection(collection) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCollection, collection)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(collection)
}

// Get returns one record.
func (s *Store) Get(_ context.Context, collection, id string) (record.Record, error) {
	if !record.IsKnownCollection(collection) {
		return record.Record{}, fmt.Errorf("%w: %s", domain.ErrUnknownCollection, collection)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, err := s.read(collection)
	if err != nil {
		return record.Record{}, err
	}
	if i := indexOf(recs, id); i >= 0 {
		return recs[i], nil
	}
	return record.Record{}, domain.ErrNotFound
}

// Create appends a record to its collection file.
func (s *Store) Create(_ context.Context, rec record.Record) error {
	return s.modify(rec.Type, func(recs []record.Record) ([]record.Record, error) {
		if indexOf(recs, rec.ID) >= 0 {
			return nil, domain.ErrAlreadyExists
		}
		return append(recs, rec), nil
	})
}

// Update replaces a record in place.
func (s *Store) Update(_ context.Context, rec record.Record) error {
	return s.modify(rec.Type, func(recs []record.Record) ([]record.Record, error) {
		i := indexOf(recs, rec.ID)
		if i < 0 {
			return nil, domain.ErrNotFound
		}
		recs[i] = rec
		return recs, nil
	})
}

// Delete removes a record.
func (s *Store) Delete(_ context.Context, collection, id string) error {
	return s.modify(collection, func(recs []record.Record) ([]record.Record, error) {
		i := indexOf(recs, id)
		if i < 0 {
			return nil, domain.ErrNotFound
		}
		return append(recs[:i], recs[i+1:]...), nil
	})
}

func (s *Store) modify(collection string, fn func([]record.Record) ([]record.Record, error)) error {
	if !record.IsKnownCollection(collection) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownCollection, collection)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read(collection)
	if err != nil {
		return err
	}
	recs, err = fn(recs)
	if err != nil {
		return err
	}
	return s.write(collection, recs)
}

func (s *Store) path(collection string) string {
	return filepath.Join(s.dir, collection+Ext)
}

func (s *Store) read(collection string) ([]record.Record, error) {
	data, err := os.ReadFile(s.path(collection))
	if errors.Is(err, fs.ErrNotExist) {
		return []record.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}

	recs := []record.Record{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return recs, nil
	}
	if err := json5.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	for i := range recs {
		recs[i].Type = collection
	}
	return recs, nil
}

// write replaces the collection file atomically via a temp file and rename.
func (s *Store) write(collection string, recs []record.Record) error {
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	path := s.path(collection)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", collection, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", collection, err)
	}
	return nil
}

func indexOf(recs []record.Record, id string) int {
	for i := range recs {
		if recs[i].ID == id {
			return i
		}
	}
	return -1
}
