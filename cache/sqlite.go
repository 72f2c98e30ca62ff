package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

type SQLiteCache struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteCache creates a new cache with the given filename as the db.
// If file name is empty, a new in-memory db is opened.
func NewSQLiteCache(filename string) (SQLiteCache, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return SQLiteCache{}, fmt.Errorf("opening sqlite cache: %w", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS tags (
			tag TEXT PRIMARY KEY,
			value BLOB,
			stored_at INTEGER,
			expires INTEGER,
			invalidated INTEGER NOT NULL DEFAULT 0
		)`,
		"PRAGMA journal_mode=WAL",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return SQLiteCache{}, fmt.Errorf("preparing sqlite cache: %w", err)
		}
	}
	return SQLiteCache{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

func (s SQLiteCache) Get(ctx context.Context, tag string) (Entry, bool, error) {
	var (
		entry             Entry
		storedAt, expires int64
		invalidated       int
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT value, stored_at, expires, invalidated FROM tags WHERE tag = ?", tag,
	).Scan(&entry.Value, &storedAt, &expires, &invalidated)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	entry.Tag = tag
	entry.StoredAt = time.UnixMilli(storedAt)
	entry.Expires = time.UnixMilli(expires)
	entry.Invalidated = invalidated != 0
	return entry, true, nil
}

func (s SQLiteCache) Set(ctx context.Context, tag string, value []byte, ttl time.Duration) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	entry := newEntry(tag, value, ttl)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tags (tag, value, stored_at, expires, invalidated)
		VALUES (?, ?, ?, ?, 0)`,
		tag, entry.Value, entry.StoredAt.UnixMilli(), entry.Expires.UnixMilli())
	return err
}

func (s SQLiteCache) Invalidate(ctx context.Context, tag string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.ExecContext(ctx, "UPDATE tags SET invalidated = 1 WHERE tag = ?", tag)
	return err
}

// Close closes the underlying database.
func (s SQLiteCache) Close() error {
	return s.db.Close()
}
