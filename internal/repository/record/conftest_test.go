package record

import (
	"context"
	"errors"

	"github.com/tripnote/tripnote/internal/db"
)

// mockStore is an in-memory hash store. errFn, when set, fails every call.
type mockStore struct {
	hashes map[string]map[string]string
	errFn  func(op string) error
}

func newMockStore() *mockStore {
	return &mockStore{hashes: make(map[string]map[string]string)}
}

func (m *mockStore) fail(op string) error {
	if m.errFn != nil {
		return m.errFn(op)
	}
	return nil
}

func (m *mockStore) HGet(_ context.Context, key, field string) ([]byte, error) {
	if err := m.fail(db.OpHGet); err != nil {
		return nil, err
	}
	v, ok := m.hashes[key][field]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return []byte(v), nil
}

func (m *mockStore) HSetNX(_ context.Context, key, field, value string) (bool, error) {
	if err := m.fail(db.OpHSetNX); err != nil {
		return false, err
	}
	h := m.hash(key)
	if _, ok := h[field]; ok {
		return false, nil
	}
	h[field] = value
	return true, nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if err := m.fail(db.OpHGetAll); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *mockStore) HReplace(_ context.Context, key, field, value string) (bool, error) {
	if err := m.fail(db.OpHReplace); err != nil {
		return false, err
	}
	if _, ok := m.hashes[key][field]; !ok {
		return false, nil
	}
	m.hashes[key][field] = value
	return true, nil
}

func (m *mockStore) HDel(_ context.Context, key string, fields ...string) (int64, error) {
	if err := m.fail(db.OpHDel); err != nil {
		return 0, err
	}
	var n int64
	for _, f := range fields {
		if _, ok := m.hashes[key][f]; ok {
			delete(m.hashes[key], f)
			n++
		}
	}
	return n, nil
}

func (m *mockStore) hash(key string) map[string]string {
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	return h
}

var errConnRefused = errors.New("connection refused")
