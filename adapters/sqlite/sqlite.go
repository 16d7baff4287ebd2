// Package sqlite implements record stores on an SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/codewandler/rigcore-go/ports/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	key        TEXT NOT NULL,
	data       BLOB NOT NULL,
	UNIQUE (collection, key)
);`

// DB is an open SQLite database. All collections share the records table.
type DB struct {
	sql *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	sqlDB, err := sql.Open("sqlite", cleanPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite store: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{sql: sqlDB}, nil
}

// Close closes the underlying SQLite database.
func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Records is a store.RecordStore over one collection. FindAll returns rows
// in insertion order; updates keep the original position.
type Records[K comparable, T any] struct {
	db         *sql.DB
	collection string
	key        func(K) string
}

// NewRecords binds a collection. key renders a key as text; nil uses fmt.Sprint.
func NewRecords[K comparable, T any](d *DB, collection string, key func(K) string) (*Records[K, T], error) {
	if strings.TrimSpace(collection) == "" {
		return nil, fmt.Errorf("collection is required")
	}
	if key == nil {
		key = func(k K) string { return fmt.Sprint(k) }
	}
	return &Records[K, T]{db: d.sql, collection: collection, key: key}, nil
}

func (r *Records[K, T]) Insert(ctx context.Context, key K, v T) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO records (collection, key, data) VALUES (?, ?, ?)
		 ON CONFLICT (collection, key) DO UPDATE SET data = excluded.data`,
		r.collection, r.key(key), payload,
	)
	if err != nil {
		return fmt.Errorf("insert %s record: %w", r.collection, err)
	}
	return nil
}

func (r *Records[K, T]) Update(ctx context.Context, key K, v T) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE records SET data = ? WHERE collection = ? AND key = ?`,
		payload, r.collection, r.key(key),
	)
	if err != nil {
		return fmt.Errorf("update %s record: %w", r.collection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", store.ErrNotFound, r.collection, r.key(key))
	}
	return nil
}

func (r *Records[K, T]) Delete(ctx context.Context, key K) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND key = ?`,
		r.collection, r.key(key),
	)
	if err != nil {
		return fmt.Errorf("delete %s record: %w", r.collection, err)
	}
	return nil
}

func (r *Records[K, T]) FindAll(ctx context.Context) ([]T, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, data FROM records WHERE collection = ? ORDER BY seq`,
		r.collection,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s records: %w", r.collection, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var (
			key  string
			data []byte
		)
		if err := rows.Scan(&key, &data); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("unmarshal record %s: %w", key, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

var _ store.RecordStore[string, int] = (*Records[string, int])(nil)
