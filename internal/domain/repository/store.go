package repository

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Reader.Get when the key is absent.
var ErrKeyNotFound = errors.New("key not found")

// Reader is a consistent, read-only view of the store.
type Reader interface {
	// Get returns a copy of the value stored under key, or ErrKeyNotFound.
	Get(key []byte) ([]byte, error)

	// Scan calls fn for every key with the given prefix, in ascending key
	// order, until fn returns false. key and value are only valid during the
	// call. fn must not call back into the Reader.
	Scan(prefix []byte, fn func(key, value []byte) bool) error
}

// Txn is a read-write transaction. Reads observe the transaction's own writes.
type Txn interface {
	Reader

	Set(key, value []byte) error
	Delete(key []byte) error
}

// Store is the embedded, transactional, ordered key-value medium the engine
// persists to. This lets the repository run against any driver without
// depending on it.
type Store interface {
	// View runs fn against a point-in-time snapshot.
	View(ctx context.Context, fn func(r Reader) error) error

	// Update runs fn within a single transaction. If fn returns an error (or
	// panics, or ctx is done before commit) nothing is applied. Otherwise every
	// write is committed together.
	Update(ctx context.Context, fn func(tx Txn) error) error

	// Close releases the underlying medium.
	Close() error
}

// PrefixEnd returns the smallest key greater than every key with the prefix,
// or nil when no such key exists.
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}

	return nil
}
