package record

import (
	"context"
	"errors"
	"testing"

	"github.com/tripnote/tripnote/internal/db"
	"github.com/tripnote/tripnote/internal/domain"
	domrec "github.com/tripnote/tripnote/internal/domain/record"
)

func journal(id, title, created string) domrec.Record {
	return domrec.Record{ID: id, Type: domrec.Journal, Title: title, CreatedAt: created, UpdatedAt: created}
}

func TestCreateAndGet(t *testing.T) {
	s := newMockStore()
	r := New(s)
	ctx := context.Background()

	if err := r.Create(ctx, journal("j1", "Louvre day", "2024-05-01T10:00:00Z")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := s.hashes["tripnote:records:journal"]["j1"]; !ok {
		t.Fatalf("expected field j1 in the journal hash, got %v", s.hashes)
	}

	got, err := r.Get(ctx, domrec.Journal, "j1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Louvre day" || got.Type != domrec.Journal {
		t.Errorf("Get = %+v", got)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	r := New(newMockStore())
	ctx := context.Background()
	rec := journal("j1", "a", "")

	if err := r.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Create(ctx, rec); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("second Create = %v, want ErrAlreadyExists", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	r := New(newMockStore())
	_, err := r.Get(context.Background(), domrec.Pins, "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestGetAll_UnknownCollection(t *testing.T) {
	r := New(newMockStore())
	_, err := r.GetAll(context.Background(), "bogus")
	if !errors.Is(err, domain.ErrUnknownCollection) {
		t.Errorf("GetAll = %v, want ErrUnknownCollection", err)
	}
}

func TestGetAll_Ordered(t *testing.T) {
	r := New(newMockStore())
	ctx := context.Background()
	for _, rec := range []domrec.Record{
		journal("j3", "c", "2024-05-03T00:00:00Z"),
		journal("j1", "a", "2024-05-01T00:00:00Z"),
		journal("j2", "b", "2024-05-01T00:00:00Z"),
	} {
		if err := r.Create(ctx, rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, err := r.GetAll(ctx, domrec.Journal)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	var ids []string
	for _, rec := range all {
		ids = append(ids, rec.ID)
	}
	if len(ids) != 3 || ids[0] != "j1" || ids[1] != "j2" || ids[2] != "j3" {
		t.Errorf("order = %v, want [j1 j2 j3]", ids)
	}
}

func TestGetAll_Empty(t *testing.T) {
	r := New(newMockStore())
	all, err := r.GetAll(context.Background(), domrec.Gear)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("GetAll = %v, want empty non-nil slice", all)
	}
}

func TestGetAll_CorruptField(t *testing.T) {
	s := newMockStore()
	s.hash("tripnote:records:food")["f1"] = "{not json"
	r := New(s)
	if _, err := r.GetAll(context.Background(), domrec.Food); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestUpdate(t *testing.T) {
	r := New(newMockStore())
	ctx := context.Background()

	if err := r.Update(ctx, journal("j1", "x", "")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Update missing = %v, want ErrNotFound", err)
	}
	if err := r.Create(ctx, journal("j1", "x", "")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Update(ctx, journal("j1", "y", "")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := r.Get(ctx, domrec.Journal, "j1")
	if got.Title != "y" {
		t.Errorf("Title = %q, want y", got.Title)
	}
}

func TestDelete(t *testing.T) {
	r := New(newMockStore())
	ctx := context.Background()
	_ = r.Create(ctx, journal("j1", "x", ""))

	if err := r.Delete(ctx, domrec.Journal, "j1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := r.Delete(ctx, domrec.Journal, "j1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestStoreErrorsPropagate(t *testing.T) {
	s := newMockStore()
	s.errFn = func(op string) error { return &db.Error{Op: op, Err: errConnRefused} }
	r := New(s)
	ctx := context.Background()

	if _, err := r.GetAll(ctx, domrec.Pins); !errors.Is(err, errConnRefused) {
		t.Errorf("GetAll = %v", err)
	}
	if _, err := r.Get(ctx, domrec.Pins, "p1"); errors.Is(err, domain.ErrNotFound) || err == nil {
		t.Errorf("Get = %v, want a store error", err)
	}
	if err := r.Create(ctx, journal("j1", "x", "")); !errors.Is(err, errConnRefused) {
		t.Errorf("Create = %v", err)
	}
	if err := r.Update(ctx, journal("j1", "y", "")); !errors.Is(err, errConnRefused) {
		t.Errorf("Update = %v", err)
	}
}
