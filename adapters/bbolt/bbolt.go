// Package bbolt implements record stores on a BoltDB file.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/codewandler/rigcore-go/ports/store"
)

// DB is an open BoltDB file. Each collection lives in its own bucket.
type DB struct {
	db *bbolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying BoltDB database.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

type record struct {
	Seq   uint64          `json:"seq"`
	Value json.RawMessage `json:"value"`
}

// Records is a store.RecordStore over one bucket. Values are stored as JSON
// together with an insertion sequence so FindAll keeps insertion order.
type Records[K comparable, T any] struct {
	db     *bbolt.DB
	bucket []byte
	key    func(K) string
}

// NewRecords opens the collection bucket, creating it if needed. key renders
// a key as the bucket key; nil uses fmt.Sprint.
func NewRecords[K comparable, T any](d *DB, collection string, key func(K) string) (*Records[K, T], error) {
	if strings.TrimSpace(collection) == "" {
		return nil, fmt.Errorf("collection is required")
	}
	if key == nil {
		key = func(k K) string { return fmt.Sprint(k) }
	}
	err := d.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(collection)); err != nil {
			return fmt.Errorf("create %s bucket: %w", collection, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Records[K, T]{db: d.db, bucket: []byte(collection), key: key}, nil
}

func (r *Records[K, T]) Insert(ctx context.Context, key K, v T) error {
	return r.put(ctx, key, v, false)
}

func (r *Records[K, T]) Update(ctx context.Context, key K, v T) error {
	return r.put(ctx, key, v, true)
}

func (r *Records[K, T]) put(ctx context.Context, key K, v T, mustExist bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	k := []byte(r.key(key))

	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if b == nil {
			return fmt.Errorf("%s bucket is missing", r.bucket)
		}

		var rec record
		if existing := b.Get(k); existing != nil {
			if err := json.Unmarshal(existing, &rec); err != nil {
				return fmt.Errorf("unmarshal record: %w", err)
			}
		} else if mustExist {
			return fmt.Errorf("%w: %s/%s", store.ErrNotFound, r.bucket, k)
		} else {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			rec.Seq = seq
		}
		rec.Value = payload

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(k, data)
	})
}

func (r *Records[K, T]) Delete(ctx context.Context, key K) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if b == nil {
			return fmt.Errorf("%s bucket is missing", r.bucket)
		}
		return b.Delete([]byte(r.key(key)))
	})
}

func (r *Records[K, T]) FindAll(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var recs []record
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if b == nil {
			return fmt.Errorf("%s bucket is missing", r.bucket)
		}
		return b.ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshal record %s: %w", k, err)
			}
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(recs, func(a, b record) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})

	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		var v T
		if err := json.Unmarshal(rec.Value, &v); err != nil {
			return nil, fmt.Errorf("unmarshal value: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

var _ store.RecordStore[string, int] = (*Records[string, int])(nil)
