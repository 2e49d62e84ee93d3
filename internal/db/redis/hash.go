package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/tripnote/tripnote/internal/db"
)

// replaceScript sets a hash field only if it already exists, so an update
// never resurrects a record deleted concurrently.
var replaceScript = rueidis.NewLuaScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
  redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
  return 1
end
return 0`)

// HGet returns one hash field. A missing key or field is db.ErrKeyNotFound.
func (s *Store) HGet(ctx context.Context, key, field string) ([]byte, error) {
	data, err := s.client.Do(ctx, s.client.B().Hget().Key(key).Field(field).Build()).AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpHGet, Err: err}
	}
	return data, nil
}

// HGetAll returns every field of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.client.Do(ctx, s.client.B().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return m, nil
}

// HSetNX writes field only when it is absent.
func (s *Store) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	n, err := s.client.Do(ctx, s.client.B().Hsetnx().Key(key).Field(field).Value(value).Build()).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpHSetNX, Err: err}
	}
	return n == 1, nil
}

// HReplace writes field only when it is present, atomically.
func (s *Store) HReplace(ctx context.Context, key, field, value string) (bool, error) {
	n, err := replaceScript.Exec(ctx, s.client, []string{key}, []string{field, value}).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpHReplace, Err: err}
	}
	return n == 1, nil
}

// HDel removes fields and returns how many existed.
func (s *Store) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	n, err := s.client.Do(ctx, s.client.B().Hdel().Key(key).Field(fields...).Build()).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpHDel, Err: err}
	}
	return n, nil
}

// Get returns a string value. A missing key is db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// SetWithTTL stores a value that expires after ttl.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Ex(ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}
