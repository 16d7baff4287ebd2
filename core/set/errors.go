package set

import "errors"

var (
	// ErrPersistence wraps a failed save. The mutation was rolled back and no
	// event was published.
	ErrPersistence = errors.New("persistence failure")
	// ErrAlreadyExists is returned by Add when the key is present.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotFound is returned by Update when the key is absent.
	ErrNotFound = errors.New("not found")
)
