// Package sqlite implements the key-value Store on an embedded SQLite file through GORM.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"addrstore/internal/domain/repository"
	"addrstore/internal/infra/persistence/model"

	sqlitedriver "github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	inMemoryDSN      = ":memory:"
	busyTimeoutMilli = 5000
)

// Options configures the SQLite store.
type Options struct {
	Path          string        // Database file.
	InMemory      bool          // Use a private in-memory database instead of Path.
	Debug         bool          // Log every statement.
	SlowThreshold time.Duration // Statements slower than this are logged at warn.
}

// Store is a repository.Store kept in a single 'kv_entries' table.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ repository.Store = (*Store)(nil)

// Open opens the database file, creating it and its table when needed.
func Open(opts Options, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := inMemoryDSN
	if !opts.InMemory {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create sqlite directory")
		}
		dsn = fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", opts.Path, busyTimeoutMilli)
	}

	db, err := gorm.Open(sqlitedriver.Open(dsn), &gorm.Config{
		// Every write already runs inside an explicit transaction.
		SkipDefaultTransaction: true,
		Logger:                 newGormSlogLogger(logger, opts.Debug, opts.SlowThreshold),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open SQLite database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get SQLite sql.DB")
	}
	// One connection: SQLite has a single writer anyway, and an in-memory
	// database only lives as long as its connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.AutoMigrate(&model.EntryModel{}); err != nil {
		_ = sqlDB.Close()

		return nil, errors.Wrap(err, "failed to migrate kv_entries")
	}

	logger.Debug("SQLite store opened",
		slog.String("path", opts.Path),
		slog.Bool("inMemory", opts.InMemory),
	)

	return &Store{db: db, logger: logger}, nil
}

// View runs fn inside a transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(r repository.Reader) error) error {
	return s.execute(ctx, false, func(tx *gorm.DB) error {
		return fn(&txn{db: tx})
	})
}

// Update runs fn inside a transaction and commits it if fn succeeds.
func (s *Store) Update(ctx context.Context, fn func(tx repository.Txn) error) error {
	return s.execute(ctx, true, func(tx *gorm.DB) error {
		return fn(&txn{db: tx})
	})
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get SQLite sql.DB")
	}

	return errors.Wrap(sqlDB.Close(), "close sqlite")
}

func (s *Store) execute(ctx context.Context, commit bool, fn func(tx *gorm.DB) error) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "failed to begin transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return fmt.Errorf("transaction rollback failed: %v (original error: %w)", rbErr, err)
		}

		return err
	}

	if !commit {
		return errors.Wrap(tx.Rollback().Error, "failed to close read transaction")
	}

	if err := ctx.Err(); err != nil {
		tx.Rollback()

		return errors.WithStack(err)
	}

	if err := tx.Commit().Error; err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

type txn struct {
	db *gorm.DB
}

func (t *txn) Get(key []byte) ([]byte, error) {
	var entry model.EntryModel
	err := t.db.Where("entry_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "sqlite get")
	}

	return entry.Value, nil
}

func (t *txn) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	query := t.db.Model(&model.EntryModel{}).Select("entry_key", "entry_value")
	if len(prefix) > 0 {
		query = query.Where("entry_key >= ?", prefix)
	}
	if end := repository.PrefixEnd(prefix); end != nil {
		query = query.Where("entry_key < ?", end)
	}

	rows, err := query.Order("entry_key").Rows()
	if err != nil {
		return errors.Wrap(err, "sqlite scan")
	}
	defer rows.Close()

	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return errors.Wrap(err, "sqlite scan row")
		}
		if !fn(key, value) {
			break
		}
	}

	return errors.Wrap(rows.Err(), "sqlite scan rows")
}

func (t *txn) Set(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}

	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"entry_value"}),
	}).Create(&model.EntryModel{Key: key, Value: value}).Error

	return errors.Wrap(err, "sqlite set")
}

func (t *txn) Delete(key []byte) error {
	return errors.Wrap(t.db.Where("entry_key = ?", key).Delete(&model.EntryModel{}).Error, "sqlite delete")
}
