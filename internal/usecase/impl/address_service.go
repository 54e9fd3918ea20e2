// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"addrstore/internal/domain/entity"
	domainerrors "addrstore/internal/domain/errors"
	"addrstore/internal/domain/repository"
	"addrstore/internal/domain/service"
	"addrstore/internal/usecase"

	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
)

// addressService implements the AddressUsecase interface.
type addressService struct {
	addressRepo repository.AddressRepository
	codec       service.AddressCodec
	validate    *validator.Validate
	logger      *slog.Logger
}

// AddressServiceParams holds dependencies for AddressService, injected by Fx.
type AddressServiceParams struct {
	fx.In

	AddressRepo repository.AddressRepository
	Codec       service.AddressCodec
	Logger      *slog.Logger
}

// NewAddressService is the constructor for addressService.
func NewAddressService(params AddressServiceParams) usecase.AddressUsecase {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &addressService{
		addressRepo: params.AddressRepo,
		codec:       params.Codec,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
	}
}

// ListAddresses returns every address in ID order
func (s *addressService) ListAddresses(ctx context.Context) ([]*entity.Address, error) {
	addresses, err := s.addressRepo.List(ctx)
	if err != nil {
		return nil, s.translate(ctx, err, "list addresses")
	}

	return addresses, nil
}

// ListAddressPage returns one page of the collection with its totals
func (s *addressService) ListAddressPage(ctx context.Context, query usecase.PageQuery) (*usecase.Page, error) {
	if err := s.validate.Struct(query); err != nil {
		return nil, domainerrors.ErrInvalidArgument.WithDetails(
			fmt.Sprintf("page and pageSize must be positive, got %d and %d", query.Page, query.PageSize))
	}

	total, err := s.addressRepo.Count(ctx)
	if err != nil {
		return nil, s.translate(ctx, err, "count addresses")
	}

	items, err := s.addressRepo.ListPage(ctx, query.Page, query.PageSize)
	if err != nil {
		return nil, s.translate(ctx, err, "list address page")
	}

	return &usecase.Page{
		Items:      items,
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: total,
		TotalPages: (total + query.PageSize - 1) / query.PageSize,
	}, nil
}

// GetAddress retrieves an address by ID
func (s *addressService) GetAddress(ctx context.Context, id uint64) (*entity.Address, error) {
	address, found, err := s.addressRepo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(ctx, err, "find address")
	}
	if !found {
		return nil, domainerrors.ErrNotFound.WithDetails(fmt.Sprintf("id %d", id))
	}

	return address, nil
}

// FindByZipCode returns the addresses registered under the zip code
func (s *addressService) FindByZipCode(ctx context.Context, zipCode string) ([]*entity.Address, error) {
	addresses, err := s.addressRepo.FindByZipCode(ctx, zipCode)
	if err != nil {
		return nil, s.translate(ctx, err, "find by zip code")
	}

	return addresses, nil
}

// FindByStreet returns the addresses on the street
func (s *addressService) FindByStreet(ctx context.Context, street string) ([]*entity.Address, error) {
	addresses, err := s.addressRepo.FindByStreet(ctx, street)
	if err != nil {
		return nil, s.translate(ctx, err, "find by street")
	}

	return addresses, nil
}

// FindByAlias returns the addresses known by the alias
func (s *addressService) FindByAlias(ctx context.Context, alias string) ([]*entity.Address, error) {
	addresses, err := s.addressRepo.FindByAlias(ctx, alias)
	if err != nil {
		return nil, s.translate(ctx, err, "find by alias")
	}

	return addresses, nil
}

// CountAddresses returns the size of the collection
func (s *addressService) CountAddresses(ctx context.Context) (int, error) {
	count, err := s.addressRepo.Count(ctx)
	if err != nil {
		return 0, s.translate(ctx, err, "count addresses")
	}

	return count, nil
}

// CreateAddress persists a new address
func (s *addressService) CreateAddress(ctx context.Context, input *usecase.CreateAddressInput) (*entity.Address, error) {
	if input == nil {
		return nil, domainerrors.ErrInvalidArgument.WithDetails("create input is required")
	}

	address, err := s.addressRepo.Create(ctx, input.Draft())
	if err != nil {
		return nil, s.translate(ctx, err, "create address")
	}

	s.logger.DebugContext(ctx, "Address created", slog.Uint64("id", address.ID), slog.String("zipCode", address.ZipCode))

	return address, nil
}

// UpdateAddress applies the non-nil fields of input to an existing address
func (s *addressService) UpdateAddress(ctx context.Context, id uint64, input *usecase.UpdateAddressInput) (*entity.Address, error) {
	if id == 0 {
		return nil, domainerrors.ErrMissingIdentifier
	}
	if input == nil {
		return nil, domainerrors.ErrInvalidArgument.WithDetails("update input is required")
	}

	address, err := s.GetAddress(ctx, id)
	if err != nil {
		return nil, err
	}

	s.applyAddressUpdates(address, input)

	updated, err := s.addressRepo.Update(ctx, address)
	if err != nil {
		return nil, s.translate(ctx, err, "update address")
	}

	s.logger.DebugContext(ctx, "Address updated", slog.Uint64("id", updated.ID))

	return updated, nil
}

// applyAddressUpdates applies the update input to an address
func (s *addressService) applyAddressUpdates(address *entity.Address, input *usecase.UpdateAddressInput) {
	if input.ZipCode != nil {
		address.ZipCode = *input.ZipCode
	}
	if input.Type != nil {
		address.Type = *input.Type
	}
	if input.Street != nil {
		address.Street = *input.Street
	}
	if input.Neighborhood != nil {
		address.Neighborhood = *input.Neighborhood
	}
	if input.City != nil {
		address.City = *input.City
	}
	if input.State != nil {
		address.State = *input.State
	}
	if input.Complement != nil {
		address.Complement = *input.Complement
	}
	if input.Aliases != nil {
		address.Aliases = slices.Clone(*input.Aliases)
	}
	if input.Active != nil {
		address.Active = *input.Active
	}
}

// DeleteAddress removes an address
func (s *addressService) DeleteAddress(ctx context.Context, id uint64) error {
	if err := s.addressRepo.Delete(ctx, id); err != nil {
		return s.translate(ctx, err, "delete address")
	}

	s.logger.DebugContext(ctx, "Address deleted", slog.Uint64("id", id))

	return nil
}

// BulkCreateAddresses persists every input or none of them
func (s *addressService) BulkCreateAddresses(ctx context.Context, inputs []*usecase.CreateAddressInput) ([]*entity.Address, error) {
	drafts := make([]entity.AddressDraft, 0, len(inputs))
	for i, input := range inputs {
		if input == nil {
			return nil, domainerrors.ErrInvalidArgument.WithDetails(fmt.Sprintf("input %d is nil", i))
		}
		drafts = append(drafts, input.Draft())
	}

	addresses, err := s.addressRepo.BulkInsert(ctx, drafts)
	if err != nil {
		return nil, s.translate(ctx, err, "bulk create addresses")
	}

	return addresses, nil
}

// ImportAddresses loads a JSON array of addresses
func (s *addressService) ImportAddresses(ctx context.Context, payload []byte) (*service.ImportReport, error) {
	report, err := s.codec.Import(ctx, payload)
	if err != nil {
		return nil, s.translate(ctx, err, "import addresses")
	}

	return report, nil
}

// ExportAddresses renders the whole collection as JSON
func (s *addressService) ExportAddresses(ctx context.Context) ([]byte, error) {
	payload, err := s.codec.Export(ctx)
	if err != nil {
		return nil, s.translate(ctx, err, "export addresses")
	}

	return payload, nil
}

// translate lets domain errors through and reports anything else as a storage fault.
func (s *addressService) translate(ctx context.Context, err error, op string) error {
	switch domainerrors.KindOf(err) {
	case domainerrors.KindDuplicateKey, domainerrors.KindInvalidFormat:
		s.logger.WarnContext(ctx, "Address request rejected", slog.String("op", op), slog.Any("error", err))

		return err
	case domainerrors.KindUnknown:
		s.logger.ErrorContext(ctx, "Address storage failed", slog.String("op", op), slog.Any("error", err))

		return domainerrors.NewStorageError(err, op)
	default:
		return err
	}
}
