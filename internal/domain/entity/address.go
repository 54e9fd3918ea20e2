// Package entity contains the core business objects of the project.
package entity

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var zipCodePattern = regexp.MustCompile(`^(\d{5})(\d{3})$`)

// Address is a postal address record as stored by the engine.
// FormattedZipCode and FormattedAddress are derived from the raw fields and
// must only be written by Refresh.
type Address struct {
	ID               uint64    `json:"id"`               // Engine-assigned identifier, 0 until persisted.
	ZipCode          string    `json:"zipCode"`          // Raw zip code digits, e.g. "01001000".
	FormattedZipCode string    `json:"formattedZipCode"` // "01001-000" when ZipCode has 5+3 digits.
	Type             string    `json:"type"`             // Street type, e.g. "Rua", "Avenida".
	Street           string    `json:"street"`
	Neighborhood     string    `json:"neighborhood"`
	City             string    `json:"city"`
	State            string    `json:"state"`
	FormattedAddress string    `json:"formattedAddress"` // "{street}, {neighborhood}, {city} - {state}".
	Complement       string    `json:"complement,omitempty"`
	Aliases          []string  `json:"aliases"`   // Alternate names, in caller order.
	Active           bool      `json:"active"`    // Ordinary field, not a tombstone.
	CreatedAt        time.Time `json:"createdAt"` // Set once, at first persistence.
	UpdatedAt        time.Time `json:"updatedAt"` // Set at every persistence.
}

// AddressDraft is the partial input an Address is built from.
// It deliberately has no formatted fields: those are always derived.
type AddressDraft struct {
	ZipCode      string
	Type         string
	Street       string
	Neighborhood string
	City         string
	State        string
	Complement   string
	Aliases      []string
	Active       *bool     // nil means "default" (true).
	CreatedAt    time.Time // Zero means absent.
	UpdatedAt    time.Time // Zero means absent.
}

// NewAddress builds a consistent Address from a draft.
//
// Defaults are applied first (empty strings, Active=true, empty alias list,
// timestamps = now), then the derived fields are computed from the final raw
// values. The result has no ID.
func NewAddress(draft AddressDraft, now time.Time) *Address {
	address := &Address{
		ZipCode:      draft.ZipCode,
		Type:         draft.Type,
		Street:       draft.Street,
		Neighborhood: draft.Neighborhood,
		City:         draft.City,
		State:        draft.State,
		Complement:   draft.Complement,
		Aliases:      normalizeAliases(draft.Aliases),
		Active:       true,
		CreatedAt:    draft.CreatedAt,
		UpdatedAt:    draft.UpdatedAt,
	}
	if draft.Active != nil {
		address.Active = *draft.Active
	}
	if address.CreatedAt.IsZero() {
		address.CreatedAt = now
	}
	if address.UpdatedAt.IsZero() {
		address.UpdatedAt = now
	}
	if address.UpdatedAt.Before(address.CreatedAt) {
		address.UpdatedAt = address.CreatedAt
	}

	address.Refresh()

	return address
}

// Draft returns the raw fields of the address as a draft.
func (a *Address) Draft() AddressDraft {
	active := a.Active

	return AddressDraft{
		ZipCode:      a.ZipCode,
		Type:         a.Type,
		Street:       a.Street,
		Neighborhood: a.Neighborhood,
		City:         a.City,
		State:        a.State,
		Complement:   a.Complement,
		Aliases:      slices.Clone(a.Aliases),
		Active:       &active,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// Refresh recomputes the derived fields from the raw ones.
func (a *Address) Refresh() {
	a.Aliases = normalizeAliases(a.Aliases)
	a.FormattedZipCode = FormatZipCode(a.ZipCode)
	a.FormattedAddress = FormatAddress(a.Street, a.Neighborhood, a.City, a.State)
}

// Clone returns a deep copy of the address.
func (a *Address) Clone() *Address {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Aliases = slices.Clone(a.Aliases)

	return &clone
}

// FormatZipCode renders an eight digit zip code as NNNNN-NNN.
// Anything else is returned unchanged.
func FormatZipCode(zipCode string) string {
	return zipCodePattern.ReplaceAllString(zipCode, "$1-$2")
}

// FormatAddress renders the one-line address.
func FormatAddress(street, neighborhood, city, state string) string {
	return street + ", " + neighborhood + ", " + city + " - " + state
}

// NormalizeKey turns a field value into the key used by the secondary
// indexes, so that lookups are case-insensitive exact matches.
func NormalizeKey(value string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(value)))
}

func normalizeAliases(aliases []string) []string {
	normalized := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		if strings.TrimSpace(alias) == "" {
			continue
		}
		normalized = append(normalized, alias)
	}

	return normalized
}
