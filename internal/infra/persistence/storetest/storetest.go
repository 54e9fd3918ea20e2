// Package storetest opens throwaway stores for tests and checks that a driver
// honours the repository.Store contract.
package storetest

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"addrstore/internal/domain/repository"
	"addrstore/internal/infra/persistence/pebble"
	"addrstore/internal/infra/persistence/sqlite"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Opener returns a fresh, empty store that is closed when the test ends.
type Opener func(t *testing.T) repository.Store

// Drivers returns an opener per storage driver.
func Drivers() map[string]Opener {
	return map[string]Opener{
		"pebble": OpenPebble,
		"sqlite": OpenSQLite,
	}
}

// OpenPebble opens an in-memory Pebble store.
func OpenPebble(t *testing.T) repository.Store {
	t.Helper()

	store, err := pebble.Open(pebble.Options{InMemory: true, NoSync: true}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	return store
}

// OpenSQLite opens a SQLite store in a temporary directory.
func OpenSQLite(t *testing.T) repository.Store {
	t.Helper()

	store, err := sqlite.Open(sqlite.Options{Path: filepath.Join(t.TempDir(), "addresses.db")}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	return store
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

var errAbort = errors.New("abort")

// Run checks the Store contract against stores produced by open.
func Run(t *testing.T, open Opener) {
	t.Run("SetGetDelete", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		require.NoError(t, store.Update(ctx, func(tx repository.Txn) error {
			return tx.Set([]byte("k1"), []byte("v1"))
		}))

		require.NoError(t, store.View(ctx, func(r repository.Reader) error {
			value, err := r.Get([]byte("k1"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v1"), value)

			_, err = r.Get([]byte("missing"))
			assert.ErrorIs(t, err, repository.ErrKeyNotFound)

			return nil
		}))

		require.NoError(t, store.Update(ctx, func(tx repository.Txn) error {
			return tx.Delete([]byte("k1"))
		}))

		require.NoError(t, store.View(ctx, func(r repository.Reader) error {
			_, err := r.Get([]byte("k1"))
			assert.ErrorIs(t, err, repository.ErrKeyNotFound)

			return nil
		}))
	})

	t.Run("ReadYourWrites", func(t *testing.T) {
		store := open(t)

		require.NoError(t, store.Update(context.Background(), func(tx repository.Txn) error {
			require.NoError(t, tx.Set([]byte("k"), []byte("first")))
			require.NoError(t, tx.Set([]byte("k"), []byte("second")))

			value, err := tx.Get([]byte("k"))
			require.NoError(t, err)
			assert.Equal(t, []byte("second"), value)

			var keys []string
			require.NoError(t, tx.Scan([]byte("k"), func(key, _ []byte) bool {
				keys = append(keys, string(key))

				return true
			}))
			assert.Equal(t, []string{"k"}, keys)

			return nil
		}))
	})

	t.Run("FailedUpdateAppliesNothing", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		require.NoError(t, store.Update(ctx, func(tx repository.Txn) error {
			return tx.Set([]byte("kept"), []byte("1"))
		}))

		err := store.Update(ctx, func(tx repository.Txn) error {
			require.NoError(t, tx.Set([]byte("lost"), []byte("1")))
			require.NoError(t, tx.Delete([]byte("kept")))

			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		assertKeys(t, store, []string{"kept"})
	})

	t.Run("PanicAppliesNothing", func(t *testing.T) {
		store := open(t)

		assert.Panics(t, func() {
			_ = store.Update(context.Background(), func(tx repository.Txn) error {
				require.NoError(t, tx.Set([]byte("lost"), []byte("1")))
				panic("boom")
			})
		})

		assertKeys(t, store, nil)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		store := open(t)

		ctx, cancel := context.WithCancel(context.Background())
		err := store.Update(ctx, func(tx repository.Txn) error {
			require.NoError(t, tx.Set([]byte("lost"), []byte("1")))
			cancel()

			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)

		err = store.View(ctx, func(repository.Reader) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)

		assertKeys(t, store, nil)
	})

	t.Run("ScanIsOrderedAndBounded", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		require.NoError(t, store.Update(ctx, func(tx repository.Txn) error {
			for _, key := range []string{"b/1", "a/2", "a", "a/\xff", "a/1", "a0"} {
				if err := tx.Set([]byte(key), []byte(key)); err != nil {
					return err
				}
			}

			return nil
		}))

		require.NoError(t, store.View(ctx, func(r repository.Reader) error {
			var keys []string
			err := r.Scan([]byte("a/"), func(key, value []byte) bool {
				assert.Equal(t, key, value)
				keys = append(keys, string(key))

				return true
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"a/1", "a/2", "a/\xff"}, keys)

			keys = keys[:0]
			err = r.Scan([]byte("a/"), func(key, _ []byte) bool {
				keys = append(keys, string(key))

				return len(keys) < 2
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"a/1", "a/2"}, keys)

			return nil
		}))
	})
}

func assertKeys(t *testing.T, store repository.Store, want []string) {
	t.Helper()

	var keys []string
	require.NoError(t, store.View(context.Background(), func(r repository.Reader) error {
		return r.Scan(nil, func(key, _ []byte) bool {
			keys = append(keys, string(key))

			return true
		})
	}))
	assert.Equal(t, want, keys)
}
