package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// Store is the persistent key-value backend of the track cache. Set returns
// an error wrapping ErrQuotaExceeded when the write would exceed the byte
// quota; the cache evicts and retries once.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
	Usage(ctx context.Context) (int64, error)
}

// SQLiteStore keeps cache values in the cache_kv table. A positive quota
// bounds the total size of stored values in bytes.
type SQLiteStore struct {
	db    *sql.DB
	quota int64
}

// NewSQLiteStore returns a store over a migrated database.
func NewSQLiteStore(db *sql.DB, quota int64) *SQLiteStore {
	return &SQLiteStore{db: db, quota: quota}
}

// Get returns the value stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM cache_kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache key %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning cache write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if s.quota > 0 {
		var others int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(LENGTH(value)), 0) FROM cache_kv WHERE key <> ?`, key).Scan(&others)
		if err != nil {
			return fmt.Errorf("measuring cache usage: %w", err)
		}
		if others+int64(len(value)) > s.quota {
			return fmt.Errorf("writing %s (%d bytes, %d in use, quota %d): %w",
				key, len(value), others, s.quota, ErrQuotaExceeded)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cache_kv (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("writing cache key %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cache write: %w", err)
	}
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (s *SQLiteStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning cache delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cache_kv WHERE key = ?`, k); err != nil {
			return fmt.Errorf("deleting cache key %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cache delete: %w", err)
	}
	return nil
}

// Clear removes every value.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_kv`); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Usage returns the total size of stored values in bytes.
func (s *SQLiteStore) Usage(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(LENGTH(value)), 0) FROM cache_kv`).Scan(&n); err != nil {
		return 0, fmt.Errorf("measuring cache usage: %w", err)
	}
	return n, nil
}

// MemoryStore is an in-process Store for tests and one-shot commands.
type MemoryStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	quota int64
}

// NewMemoryStore returns an empty store. A positive quota bounds the total
// size of stored values in bytes.
func NewMemoryStore(quota int64) *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte), quota: quota}
}

// Get returns a copy of the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value under key.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quota > 0 {
		var others int64
		for k, v := range s.data {
			if k != key {
				others += int64(len(v))
			}
		}
		if others+int64(len(value)) > s.quota {
			return fmt.Errorf("writing %s: %w", key, ErrQuotaExceeded)
		}
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes keys.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Clear removes every value.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string][]byte)
	return nil
}

// Usage returns the total size of stored values in bytes.
func (s *MemoryStore) Usage(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, v := range s.data {
		n += int64(len(v))
	}
	return n, nil
}

// Len returns the number of stored values.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
