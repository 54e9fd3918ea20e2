package sqlite_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"addrstore/internal/domain/repository"
	"addrstore/internal/infra/persistence/sqlite"
	"addrstore/internal/infra/persistence/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storetest.Run(t, storetest.OpenSQLite)
}

func TestStore_InMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store {
		store, err := sqlite.Open(sqlite.Options{InMemory: true}, slog.New(slog.DiscardHandler))
		require.NoError(t, err)
		t.Cleanup(func() { assert.NoError(t, store.Close()) })

		return store
	})
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "addresses.db")
	logger := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	store, err := sqlite.Open(sqlite.Options{Path: path}, logger)
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, func(tx repository.Txn) error {
		return tx.Set([]byte("k"), []byte("v"))
	}))
	require.NoError(t, store.Close())

	store, err = sqlite.Open(sqlite.Options{Path: path}, logger)
	require.NoError(t, err)
	defer func() { assert.NoError(t, store.Close()) }()

	require.NoError(t, store.View(ctx, func(r repository.Reader) error {
		value, err := r.Get([]byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), value)

		return nil
	}))
}
