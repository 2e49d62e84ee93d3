// Package record stores records in Valkey/Redis: one hash per collection,
// one JSON-encoded record per field keyed by id.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/tripnote/tripnote/internal/db"
	"github.com/tripnote/tripnote/internal/domain"
	domrec "github.com/tripnote/tripnote/internal/domain/record"
)

var keyPrefix = domain.KeyPrefix + "records:"

// store is the consumer interface for records (ISP).
type store interface {
	HGet(ctx context.Context, key, field string) ([]byte, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSetNX(ctx context.Context, key, field, value string) (bool, error)
	HReplace(ctx context.Context, key, field, value string) (bool, error)
	HDel(ctx context.Context, key string, fields ...string) (int64, error)
}

// Repo implements usecase/record.Repository.
type Repo struct {
	store store
}

// New creates a record repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// GetAll returns every record of a collection ordered by creation time, then id.
func (r *Repo) GetAll(ctx context.Context, collection string) ([]domrec.Record, error) {
	if !domrec.IsKnownCollection(collection) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCollection, collection)
	}
	key := collectionKey(collection)
	raw, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}

	out := make([]domrec.Record, 0, len(raw))
	for id, data := range raw {
		rec, err := decode(collection, []byte(data))
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Get returns one record.
func (r *Repo) Get(ctx context.Context, collection, id string) (domrec.Record, error) {
	if !domrec.IsKnownCollection(collection) {
		return domrec.Record{}, fmt.Errorf("%w: %s", domain.ErrUnknownCollection, collection)
	}
	key := collectionKey(collection)
	data, err := r.store.HGet(ctx, key, id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domrec.Record{}, domain.ErrNotFound
		}
		return domrec.Record{}, fmt.Errorf("hget %s/%s: %w", key, id, err)
	}
	return decode(collection, data)
}

// Create stores a new record. An id already taken is domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, rec domrec.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	key := collectionKey(rec.Type)
	ok, err := r.store.HSetNX(ctx, key, rec.ID, string(data))
	if err != nil {
		return fmt.Errorf("hsetnx %s/%s: %w", key, rec.ID, err)
	}
	if !ok {
		return domain.ErrAlreadyExists
	}
	return nil
}

// Update replaces an existing record. A record deleted in the meantime
// stays deleted and the update reports domain.ErrNotFound.
func (r *Repo) Update(ctx context.Context, rec domrec.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	key := collectionKey(rec.Type)
	ok, err := r.store.HReplace(ctx, key, rec.ID, string(data))
	if err != nil {
		return fmt.Errorf("hreplace %s/%s: %w", key, rec.ID, err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a record.
func (r *Repo) Delete(ctx context.Context, collection, id string) error {
	key := collectionKey(collection)
	n, err := r.store.HDel(ctx, key, id)
	if err != nil {
		return fmt.Errorf("hdel %s/%s: %w", key, id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func collectionKey(collection string) string {
	return keyPrefix + collection
}

func decode(collection string, data []byte) (domrec.Record, error) {
	var rec domrec.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return domrec.Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	rec.Type = collection
	return rec, nil
}
