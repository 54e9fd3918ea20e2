package service

import (
	"context"
	"time"

	"addrstore/internal/domain/entity"

	"github.com/google/uuid"
)

// AddressCodec converts between the JSON interchange format and the collection
type AddressCodec interface {
	// Export renders the whole collection as a pretty-printed JSON array
	Export(ctx context.Context) ([]byte, error)

	// Import parses a JSON array of addresses and bulk-inserts the valid ones.
	// Malformed payloads fail with ErrInvalidFormat; invalid rows are skipped
	// and listed in the report.
	Import(ctx context.Context, payload []byte) (*ImportReport, error)

	// ImportRows applies the same row filter to already-decoded rows
	ImportRows(ctx context.Context, rows []ImportRow) (*ImportReport, error)
}

// ImportRow is one element of an import payload. Formatted fields and the ID
// are accepted for compatibility with exports but never trusted.
type ImportRow struct {
	ID               uint64     `json:"id,omitempty"`
	ZipCode          string     `json:"zipCode" validate:"required"`
	FormattedZipCode string     `json:"formattedZipCode,omitempty"`
	Type             string     `json:"type"`
	Street           string     `json:"street" validate:"required"`
	Neighborhood     string     `json:"neighborhood"`
	City             string     `json:"city"`
	State            string     `json:"state" validate:"required"`
	FormattedAddress string     `json:"formattedAddress,omitempty"`
	Complement       string     `json:"complement,omitempty"`
	Aliases          []string   `json:"aliases,omitempty"`
	Active           *bool      `json:"active,omitempty"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
}

// Draft converts the row into a draft, dropping the supplied derived fields
func (r ImportRow) Draft() entity.AddressDraft {
	draft := entity.AddressDraft{
		ZipCode:      r.ZipCode,
		Type:         r.Type,
		Street:       r.Street,
		Neighborhood: r.Neighborhood,
		City:         r.City,
		State:        r.State,
		Complement:   r.Complement,
		Aliases:      r.Aliases,
		Active:       r.Active,
	}
	if r.CreatedAt != nil {
		draft.CreatedAt = *r.CreatedAt
	}
	if r.UpdatedAt != nil {
		draft.UpdatedAt = *r.UpdatedAt
	}

	return draft
}

// HasStaleFormatting reports whether the row carries formatted fields that
// disagree with the ones computed from its raw fields.
func (r ImportRow) HasStaleFormatting() bool {
	if r.FormattedZipCode != "" && r.FormattedZipCode != entity.FormatZipCode(r.ZipCode) {
		return true
	}

	return r.FormattedAddress != "" &&
		r.FormattedAddress != entity.FormatAddress(r.Street, r.Neighborhood, r.City, r.State)
}

// SkippedRow identifies an element left out of an import
type SkippedRow struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ImportReport summarizes one import call
type ImportReport struct {
	BatchID      uuid.UUID    `json:"batchId"`
	Received     int          `json:"received"`
	Imported     int          `json:"imported"`
	SkippedCount int          `json:"skippedCount"`
	Skipped      []SkippedRow `json:"skipped"` // At most the first 100
	Stale        int          `json:"stale"`   // Rows whose formatted fields were recomputed
	IDs          []uint64     `json:"ids"`
}
