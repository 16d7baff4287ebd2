// Package store defines the persistence ports used by repositories.
package store

import (
	"context"
	"errors"

	"github.com/codewandler/rigcore-go/internal/codec"
)

var (
	ErrNotFound = errors.New("not found")
)

// SnapshotStore keeps one document holding a whole collection.
type SnapshotStore interface {
	// ReadAll returns the stored document, or nil when nothing was written yet.
	ReadAll(ctx context.Context) ([]byte, error)
	// WriteAll replaces the stored document.
	WriteAll(ctx context.Context, data []byte) error
}

// RecordStore keeps one record per entity.
type RecordStore[K comparable, T any] interface {
	Insert(ctx context.Context, key K, v T) error
	Update(ctx context.Context, key K, v T) error
	Delete(ctx context.Context, key K) error
	FindAll(ctx context.Context) ([]T, error)
}

// Read decodes the document in s into a T. ok is false when s is empty.
func Read[T any](ctx context.Context, s SnapshotStore, c codec.Codec) (out T, ok bool, err error) {
	data, err := s.ReadAll(ctx)
	if err != nil || len(data) == 0 {
		return
	}
	if err = c.Unmarshal(data, &out); err != nil {
		return
	}
	return out, true, nil
}

// Write encodes v and replaces the document in s.
func Write[T any](ctx context.Context, s SnapshotStore, c codec.Codec, v T) error {
	data, err := c.Marshal(v)
	if err != nil {
		return err
	}
	return s.WriteAll(ctx, data)
}
