package usecase

import (
	"context"

	"addrstore/internal/domain/entity"
	"addrstore/internal/domain/service"
)

// CreateAddressInput represents the input for creating a new address
type CreateAddressInput struct {
	ZipCode      string   `json:"zipCode"`
	Type         string   `json:"type"`
	Street       string   `json:"street"`
	Neighborhood string   `json:"neighborhood"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	Complement   string   `json:"complement,omitempty"`
	Aliases      []string `json:"aliases,omitempty"`
	Active       *bool    `json:"active,omitempty"`
}

// Draft converts the input into an address draft
func (in *CreateAddressInput) Draft() entity.AddressDraft {
	return entity.AddressDraft{
		ZipCode:      in.ZipCode,
		Type:         in.Type,
		Street:       in.Street,
		Neighborhood: in.Neighborhood,
		City:         in.City,
		State:        in.State,
		Complement:   in.Complement,
		Aliases:      in.Aliases,
		Active:       in.Active,
	}
}

// UpdateAddressInput represents the input for updating an existing address
type UpdateAddressInput struct {
	ZipCode      *string   `json:"zipCode,omitempty"`
	Type         *string   `json:"type,omitempty"`
	Street       *string   `json:"street,omitempty"`
	Neighborhood *string   `json:"neighborhood,omitempty"`
	City         *string   `json:"city,omitempty"`
	State        *string   `json:"state,omitempty"`
	Complement   *string   `json:"complement,omitempty"`
	Aliases      *[]string `json:"aliases,omitempty"`
	Active       *bool     `json:"active,omitempty"`
}

// PageQuery selects a 1-indexed page of the collection
type PageQuery struct {
	Page     int `json:"page" validate:"gt=0"`
	PageSize int `json:"pageSize" validate:"gt=0"`
}

// Page is one page of addresses plus the totals needed to walk the rest
type Page struct {
	Items      []*entity.Address `json:"items"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalCount int               `json:"totalCount"`
	TotalPages int               `json:"totalPages"`
}

// AddressUsecase defines the interface for address management use cases
type AddressUsecase interface {
	// Queries
	ListAddresses(ctx context.Context) ([]*entity.Address, error)
	ListAddressPage(ctx context.Context, query PageQuery) (*Page, error)
	GetAddress(ctx context.Context, id uint64) (*entity.Address, error)
	FindByZipCode(ctx context.Context, zipCode string) ([]*entity.Address, error)
	FindByStreet(ctx context.Context, street string) ([]*entity.Address, error)
	FindByAlias(ctx context.Context, alias string) ([]*entity.Address, error)
	CountAddresses(ctx context.Context) (int, error)

	// Mutations
	CreateAddress(ctx context.Context, input *CreateAddressInput) (*entity.Address, error)
	UpdateAddress(ctx context.Context, id uint64, input *UpdateAddressInput) (*entity.Address, error)
	DeleteAddress(ctx context.Context, id uint64) error
	BulkCreateAddresses(ctx context.Context, inputs []*CreateAddressInput) ([]*entity.Address, error)

	// Import and export
	ImportAddresses(ctx context.Context, payload []byte) (*service.ImportReport, error)
	ExportAddresses(ctx context.Context) ([]byte, error)
}
