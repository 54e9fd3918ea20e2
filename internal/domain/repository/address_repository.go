// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"addrstore/internal/domain/entity"
)

// AddressRepository is the sole mutator of the address collection and its
// indexes. Failures are reported with the kinds defined in domain/errors.
type AddressRepository interface {
	// Create builds an address from the draft and persists it, assigning its ID.
	// Returns ErrDuplicateKey if the zip code is already registered.
	Create(ctx context.Context, draft entity.AddressDraft) (*entity.Address, error)

	// FindByID retrieves an address by ID. A missing ID is not an error:
	// it returns found == false.
	FindByID(ctx context.Context, id uint64) (address *entity.Address, found bool, err error)

	// Update persists new raw field values for an existing address.
	// The ID and CreatedAt are preserved, derived fields are recomputed and
	// UpdatedAt is stamped. Returns ErrMissingIdentifier, ErrNotFound or ErrDuplicateKey.
	Update(ctx context.Context, address *entity.Address) (*entity.Address, error)

	// Delete removes an address and all of its index entries.
	// Returns ErrNotFound if the ID is absent.
	Delete(ctx context.Context, id uint64) error

	// BulkInsert persists a batch of drafts atomically. If any zip code
	// collides with stored data or with another draft of the batch, nothing
	// is persisted and every offending zip code is reported.
	BulkInsert(ctx context.Context, drafts []entity.AddressDraft) ([]*entity.Address, error)

	// List returns every address ordered by ascending ID.
	List(ctx context.Context) ([]*entity.Address, error)

	// ListPage returns the 1-indexed page of List. Out-of-range pages are empty.
	// Returns ErrInvalidArgument when pageSize <= 0.
	ListPage(ctx context.Context, page, pageSize int) ([]*entity.Address, error)

	// Count returns the number of stored addresses.
	Count(ctx context.Context) (int, error)

	// FindByZipCode returns the addresses whose zip code matches, ignoring case.
	FindByZipCode(ctx context.Context, zipCode string) ([]*entity.Address, error)

	// FindByStreet returns the addresses whose street matches, ignoring case.
	FindByStreet(ctx context.Context, street string) ([]*entity.Address, error)

	// FindByAlias returns the addresses carrying the alias, ignoring case.
	FindByAlias(ctx context.Context, alias string) ([]*entity.Address, error)
}
