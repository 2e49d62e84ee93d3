// Package sqlstore keeps records in a single SQLite table, one JSON
// document per row.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/tripnote/tripnote/internal/domain"
	"github.com/tripnote/tripnote/internal/domain/record"
)

const driverName = "sqlite"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (collection, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection)`,
}

type row struct {
	Collection string `db:"collection"`
	ID         string `db:"id"`
	Data       string `db:"data"`
	CreatedAt  string `db:"created_at"`
	UpdatedAt  string `db:"updated_at"`
}

// Store implements the record repository on SQLite.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	db, err := sqlx.Open(driverName, path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetAll returns every record of collection in insertion order.
func (s *Store) GetAll(ctx context.Context, collection string) ([]record.Record, error) {
	if !record.IsKnownCollection(collection) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCollection, collection)
	}
	var rows []row
	err := s.db.SelectContext(ctx, &rows,
		`SELECT collection, id, data, created_at, updated_at FROM records WHERE collection = ? ORDER BY rowid`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", collection, err)
	}

	out := make([]record.Record, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].decode()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Get returns one record.
func (s *Store) Get(ctx context.Context, collection, id string) (record.Record, error) {
	var r row
	err := s.db.GetContext(ctx, &r,
		`SELECT collection, id, data, created_at, updated_at FROM records WHERE collection = ? AND id = ?`,
		collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Record{}, domain.ErrNotFound
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("select %s/%s: %w", collection, id, err)
	}
	return r.decode()
}

// Create inserts a new record.
func (s *Store) Create(ctx context.Context, rec record.Record) error {
	r, err := encode(rec)
	if err != nil {
		return err
	}
	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO records (collection, id, data, created_at, updated_at)
		 VALUES (:collection, :id, :data, :created_at, :updated_at)
		 ON CONFLICT (collection, id) DO NOTHING`, r)
	if err != nil {
		return fmt.Errorf("insert %s/%s: %w", rec.Type, rec.ID, err)
	}
	return affected(res, domain.ErrAlreadyExists)
}

// Update replaces an existing record.
func (s *Store) Update(ctx context.Context, rec record.Record) error {
	r, err := encode(rec)
	if err != nil {
		return err
	}
	res, err := s.db.NamedExecContext(ctx,
		`UPDATE records SET data = :data, created_at = :created_at, updated_at = :updated_at
		 WHERE collection = :collection AND id = :id`, r)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", rec.Type, rec.ID, err)
	}
	return affected(res, domain.ErrNotFound)
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return affected(res, domain.ErrNotFound)
}

func affected(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return none
	}
	return nil
}

func encode(rec record.Record) (row, error) {
	if !record.IsKnownCollection(rec.Type) {
		return row{}, fmt.Errorf("%w: %s", domain.ErrUnknownCollection, rec.Type)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return row{}, fmt.Errorf("marshal record: %w", err)
	}
	return row{
		Collection: rec.Type,
		ID:         rec.ID,
		Data:       string(data),
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}, nil
}

func (r *row) decode() (record.Record, error) {
	var rec record.Record
	if err := json.Unmarshal([]byte(r.Data), &rec); err != nil {
		return record.Record{}, fmt.Errorf("decode %s/%s: %w", r.Collection, r.ID, err)
	}
	rec.Type = r.Collection
	rec.ID = r.ID
	return rec, nil
}
