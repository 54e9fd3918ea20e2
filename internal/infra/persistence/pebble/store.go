// Package pebble implements the key-value Store on top of CockroachDB's Pebble.
package pebble

import (
	"context"
	"log/slog"

	"addrstore/internal/domain/repository"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/pkg/errors"
)

// Options configures the Pebble store.
type Options struct {
	Path     string // Directory holding the database files.
	InMemory bool   // Keep everything in memory (Path is then only a name).
	NoSync   bool   // Do not fsync on commit.
}

// Store is a repository.Store backed by a Pebble database.
// Writes go through an indexed batch so a transaction reads its own writes,
// and the batch is committed as a unit.
type Store struct {
	db     *pebble.DB
	sync   *pebble.WriteOptions
	logger *slog.Logger
}

var _ repository.Store = (*Store)(nil)

// Open opens (or creates) the database.
func Open(opts Options, logger *slog.Logger) (*Store, error) {
	pebbleOpts := &pebble.Options{}
	if opts.InMemory {
		pebbleOpts.FS = vfs.NewMem()
		if opts.Path == "" {
			opts.Path = "addresses"
		}
	}

	db, err := pebble.Open(opts.Path, pebbleOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble at %q", opts.Path)
	}

	writeOpts := pebble.Sync
	if opts.NoSync {
		writeOpts = pebble.NoSync
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Pebble store opened",
		slog.String("path", opts.Path),
		slog.Bool("inMemory", opts.InMemory),
	)

	return &Store{db: db, sync: writeOpts, logger: logger}, nil
}

// View runs fn against a snapshot of the database.
func (s *Store) View(ctx context.Context, fn func(r repository.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	snap := s.db.NewSnapshot()
	defer snap.Close()

	return fn(reader{r: snap})
}

// Update runs fn inside an indexed batch and commits it if fn succeeds.
func (s *Store) Update(ctx context.Context, fn func(tx repository.Txn) error) (err error) {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	batch := s.db.NewIndexedBatch()
	committed := false
	defer func() {
		if !committed {
			if closeErr := batch.Close(); closeErr != nil {
				s.logger.Warn("Failed to discard pebble batch", slog.Any("error", closeErr))
			}
		}
	}()

	if err := fn(&txn{reader: reader{r: batch}, batch: batch}); err != nil {
		return err
	}

	// Cancelled after fn: discard the batch.
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	if err := batch.Commit(s.sync); err != nil {
		return errors.Wrap(err, "commit pebble batch")
	}
	committed = true

	return errors.WithStack(batch.Close())
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "close pebble")
}

type reader struct {
	r pebble.Reader
}

func (r reader) Get(key []byte) ([]byte, error) {
	value, closer, err := r.r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, repository.ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "pebble get")
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)

	return out, nil
}

func (r reader) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	iter, err := r.r.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: repository.PrefixEnd(prefix),
	})
	if err != nil {
		return errors.Wrap(err, "pebble iterator")
	}

	for valid := iter.First(); valid; valid = iter.Next() {
		if !fn(iter.Key(), iter.Value()) {
			break
		}
	}

	if err := iter.Error(); err != nil {
		_ = iter.Close()

		return errors.Wrap(err, "pebble scan")
	}

	return errors.Wrap(iter.Close(), "close pebble iterator")
}

type txn struct {
	reader
	batch *pebble.Batch
}

func (t *txn) Set(key, value []byte) error {
	return errors.Wrap(t.batch.Set(key, value, nil), "pebble set")
}

func (t *txn) Delete(key []byte) error {
	return errors.Wrap(t.batch.Delete(key, nil), "pebble delete")
}
