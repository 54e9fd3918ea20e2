// Package kv implements the address repository on any key-value Store.
package kv

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"addrstore/config"
	"addrstore/internal/domain/entity"
	domainerrors "addrstore/internal/domain/errors"
	"addrstore/internal/domain/repository"
	"addrstore/internal/infra/persistence/index"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const defaultCacheSize = 1024

// Params defines the dependencies of the address repository.
type Params struct {
	fx.In

	Store  repository.Store
	Logger *slog.Logger
	Clock  clock.Clock    `optional:"true"`
	Config *config.Config `optional:"true"`
}

// addressRepository implements repository.AddressRepository.
// Mutations hold the write lock for their whole transaction; reads share the
// read lock, so no reader observes a half-applied index update.
type addressRepository struct {
	store   repository.Store
	indexes *index.Manager
	clock   clock.Clock
	cache   *lru.Cache[uint64, *entity.Address]
	logger  *slog.Logger

	mu sync.RWMutex
}

// NewAddressRepository is the constructor for addressRepository.
func NewAddressRepository(params Params) (repository.AddressRepository, error) {
	cacheSize := defaultCacheSize
	if params.Config != nil && params.Config.Storage.CacheSize > 0 {
		cacheSize = params.Config.Storage.CacheSize
	}

	cache, err := lru.New[uint64, *entity.Address](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create address cache")
	}

	clk := params.Clock
	if clk == nil {
		clk = clock.New()
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &addressRepository{
		store:   params.Store,
		indexes: index.NewManager(),
		clock:   clk,
		cache:   cache,
		logger:  logger,
	}, nil
}

// Create persists a new address built from the draft.
func (repo *addressRepository) Create(ctx context.Context, draft entity.AddressDraft) (*entity.Address, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	now := repo.now()
	address := entity.NewAddress(draft, now)
	stampNew(address, now)

	err := repo.store.Update(ctx, func(tx repository.Txn) error {
		id, err := repo.indexes.NextID(tx)
		if err != nil {
			return err
		}
		address.ID = id

		return repo.indexes.Insert(tx, address)
	})
	if err != nil {
		return nil, wrapStoreError(err, "failed to create address")
	}

	repo.cache.Add(address.ID, address.Clone())
	repo.logger.DebugContext(ctx, "Address created",
		slog.Uint64("id", address.ID),
		slog.String("zipCode", address.ZipCode),
	)

	return address, nil
}

// FindByID retrieves an address by its ID.
func (repo *addressRepository) FindByID(ctx context.Context, id uint64) (*entity.Address, bool, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if cached, ok := repo.cache.Get(id); ok {
		return cached.Clone(), true, nil
	}

	var (
		address *entity.Address
		found   bool
	)
	err := repo.store.View(ctx, func(r repository.Reader) error {
		var err error
		address, found, err = repo.indexes.Get(r, id)

		return err
	})
	if err != nil {
		return nil, false, wrapStoreError(err, "failed to find address by ID")
	}
	if !found {
		return nil, false, nil
	}

	repo.cache.Add(id, address.Clone())

	return address, true, nil
}

// Update persists new raw field values for an existing address.
func (repo *addressRepository) Update(ctx context.Context, address *entity.Address) (*entity.Address, error) {
	if address == nil || address.ID == 0 {
		return nil, domainerrors.ErrMissingIdentifier
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()

	now := repo.now()
	updated := address.Clone()

	err := repo.store.Update(ctx, func(tx repository.Txn) error {
		previous, found, err := repo.indexes.Get(tx, updated.ID)
		if err != nil {
			return err
		}
		if !found {
			return domainerrors.ErrNotFound.WithDetails(fmt.Sprintf("id %d", updated.ID))
		}

		updated.CreatedAt = previous.CreatedAt
		updated.UpdatedAt = now
		if updated.UpdatedAt.Before(previous.UpdatedAt) {
			updated.UpdatedAt = previous.UpdatedAt
		}
		updated.Refresh()

		return repo.indexes.Update(tx, updated)
	})
	if err != nil {
		return nil, wrapStoreError(err, "failed to update address")
	}

	repo.cache.Add(updated.ID, updated.Clone())

	return updated, nil
}

// Delete removes an address by its ID.
func (repo *addressRepository) Delete(ctx context.Context, id uint64) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	err := repo.store.Update(ctx, func(tx repository.Txn) error {
		_, err := repo.indexes.Remove(tx, id)

		return err
	})
	if err != nil {
		return wrapStoreError(err, "failed to delete address")
	}

	repo.cache.Remove(id)

	return nil
}

// BulkInsert persists a batch of drafts, all or nothing.
func (repo *addressRepository) BulkInsert(ctx context.Context, drafts []entity.AddressDraft) ([]*entity.Address, error) {
	if len(drafts) == 0 {
		return []*entity.Address{}, nil
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()

	now := repo.now()
	addresses := make([]*entity.Address, 0, len(drafts))
	for _, draft := range drafts {
		address := entity.NewAddress(draft, now)
		stampNew(address, now)
		addresses = append(addresses, address)
	}

	err := repo.store.Update(ctx, func(tx repository.Txn) error {
		if err := repo.indexes.CheckUnique(tx, addresses); err != nil {
			return err
		}

		for _, address := range addresses {
			id, err := repo.indexes.NextID(tx)
			if err != nil {
				return err
			}
			address.ID = id

			if err := repo.indexes.Insert(tx, address); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		for _, address := range addresses {
			address.ID = 0
		}

		return nil, wrapStoreError(err, "failed to bulk insert addresses")
	}

	repo.logger.InfoContext(ctx, "Addresses bulk inserted",
		slog.Int("count", len(addresses)),
		slog.Uint64("firstID", addresses[0].ID),
		slog.Uint64("lastID", addresses[len(addresses)-1].ID),
	)

	return addresses, nil
}

// List returns every address in ID order.
func (repo *addressRepository) List(ctx context.Context) ([]*entity.Address, error) {
	return repo.scan(ctx, 0, -1)
}

// ListPage returns one 1-indexed page of List.
func (repo *addressRepository) ListPage(ctx context.Context, page, pageSize int) ([]*entity.Address, error) {
	if pageSize <= 0 {
		return nil, domainerrors.ErrInvalidArgument.WithDetails(fmt.Sprintf("page size must be positive, got %d", pageSize))
	}
	if page < 1 || page-1 > math.MaxInt/pageSize {
		return []*entity.Address{}, nil
	}

	return repo.scan(ctx, (page-1)*pageSize, pageSize)
}

// Count returns the number of stored addresses.
func (repo *addressRepository) Count(ctx context.Context) (int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	var count int
	err := repo.store.View(ctx, func(r repository.Reader) error {
		var err error
		count, err = repo.indexes.Count(r)

		return err
	})
	if err != nil {
		return 0, wrapStoreError(err, "failed to count addresses")
	}

	return count, nil
}

// FindByZipCode returns the address registered under the zip code, if any.
func (repo *addressRepository) FindByZipCode(ctx context.Context, zipCode string) ([]*entity.Address, error) {
	return repo.lookup(ctx, "failed to find addresses by zip code", func(r repository.Reader) ([]*entity.Address, error) {
		return repo.indexes.ByZipCode(r, zipCode)
	})
}

// FindByStreet returns the addresses on the street.
func (repo *addressRepository) FindByStreet(ctx context.Context, street string) ([]*entity.Address, error) {
	return repo.lookup(ctx, "failed to find addresses by street", func(r repository.Reader) ([]*entity.Address, error) {
		return repo.indexes.ByStreet(r, street)
	})
}

// FindByAlias returns the addresses carrying the alias.
func (repo *addressRepository) FindByAlias(ctx context.Context, alias string) ([]*entity.Address, error) {
	return repo.lookup(ctx, "failed to find addresses by alias", func(r repository.Reader) ([]*entity.Address, error) {
		return repo.indexes.ByAlias(r, alias)
	})
}

func (repo *addressRepository) scan(ctx context.Context, offset, limit int) ([]*entity.Address, error) {
	return repo.lookup(ctx, "failed to list addresses", func(r repository.Reader) ([]*entity.Address, error) {
		return repo.indexes.Scan(r, offset, limit)
	})
}

func (repo *addressRepository) lookup(
	ctx context.Context,
	failure string,
	fn func(r repository.Reader) ([]*entity.Address, error),
) ([]*entity.Address, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	var addresses []*entity.Address
	err := repo.store.View(ctx, func(r repository.Reader) error {
		var err error
		addresses, err = fn(r)

		return err
	})
	if err != nil {
		return nil, wrapStoreError(err, failure)
	}

	return addresses, nil
}

func (repo *addressRepository) now() time.Time {
	return repo.clock.Now().UTC()
}

// stampNew sets the bookkeeping of a first persistence: UpdatedAt is now and
// a caller-supplied CreatedAt may not lie in the future.
func stampNew(address *entity.Address, now time.Time) {
	if address.CreatedAt.After(now) {
		address.CreatedAt = now
	}
	address.UpdatedAt = now
}

// wrapStoreError keeps domain errors untouched and annotates storage faults.
func wrapStoreError(err error, message string) error {
	if domainerrors.IsAppError(err) {
		return err
	}

	return errors.Wrap(err, message)
}
