package index

import (
	"encoding/json"
	"fmt"
	"strings"

	"addrstore/internal/domain/entity"
	domainerrors "addrstore/internal/domain/errors"
	"addrstore/internal/domain/repository"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	indexPrimary = "primary"
	indexZipCode = "zip_code"
	indexStreet  = "street"
	indexAlias   = "alias"

	opPut    = "put"
	opDelete = "delete"
)

// Manager keeps the primary collection and the secondary indexes consistent.
// It holds no state; all data lives in the store.
type Manager struct{}

// NewManager creates an index manager.
func NewManager() *Manager {
	return &Manager{}
}

// NextID reserves the next address ID.
func (m *Manager) NextID(tx repository.Txn) (uint64, error) {
	last, err := m.readCounter(tx, keySequence)
	if err != nil {
		return 0, err
	}

	next := last + 1
	if err := tx.Set(keySequence, encodeUint64(next)); err != nil {
		return 0, errors.Wrap(err, "failed to store id sequence")
	}

	return next, nil
}

// Get loads one record. A missing ID returns found == false.
func (m *Manager) Get(r repository.Reader, id uint64) (*entity.Address, bool, error) {
	raw, err := r.Get(addressKey(id))
	if errors.Is(err, repository.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read address %d", id)
	}

	address, err := decodeAddress(raw)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to decode address %d", id)
	}

	return address, true, nil
}

// Insert adds a new record with an assigned ID to every structure.
func (m *Manager) Insert(tx repository.Txn, address *entity.Address) error {
	if address.ID == 0 {
		return errors.New("index insert requires an assigned id")
	}

	if err := m.checkZipCode(tx, address.ZipCode, address.ID); err != nil {
		return err
	}

	if err := m.putRecord(tx, address); err != nil {
		return err
	}
	if err := m.putEntries(tx, address); err != nil {
		return err
	}

	return m.addCount(tx, 1)
}

// Update replaces a stored record, moving its index entries from the
// previous field values to the new ones.
func (m *Manager) Update(tx repository.Txn, address *entity.Address) error {
	previous, found, err := m.Get(tx, address.ID)
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrNotFound.WithDetails(fmt.Sprintf("id %d", address.ID))
	}

	if err := m.checkZipCode(tx, address.ZipCode, address.ID); err != nil {
		return err
	}

	if err := m.deleteEntries(tx, previous); err != nil {
		return err
	}
	if err := m.putRecord(tx, address); err != nil {
		return err
	}

	return m.putEntries(tx, address)
}

// Remove deletes a record from every structure and returns it.
func (m *Manager) Remove(tx repository.Txn, id uint64) (*entity.Address, error) {
	previous, found, err := m.Get(tx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domainerrors.ErrNotFound.WithDetails(fmt.Sprintf("id %d", id))
	}

	if err := m.deleteEntries(tx, previous); err != nil {
		return nil, err
	}
	if err := tx.Delete(addressKey(id)); err != nil {
		return nil, errors.Wrapf(err, "failed to delete address %d", id)
	}
	EntryWrites.WithLabelValues(indexPrimary, opDelete).Inc()

	if err := m.addCount(tx, -1); err != nil {
		return nil, err
	}

	return previous, nil
}

// CheckUnique verifies that none of the zip codes is registered and that no
// two of them collide. Every offending zip code is reported once.
func (m *Manager) CheckUnique(r repository.Reader, addresses []*entity.Address) error {
	var errs error
	seen := make(map[string]struct{}, len(addresses))
	reported := make(map[string]struct{})

	for _, address := range addresses {
		key := entity.NormalizeKey(address.ZipCode)

		_, dupInBatch := seen[key]
		seen[key] = struct{}{}

		taken := dupInBatch
		if !taken {
			_, owned, err := m.zipCodeOwner(r, address.ZipCode)
			if err != nil {
				return err
			}
			taken = owned
		}

		if _, done := reported[key]; taken && !done {
			reported[key] = struct{}{}
			UniqueViolations.Inc()
			errs = multierr.Append(errs, duplicateZipCode(address.ZipCode))
		}
	}

	return errs
}

// ByZipCode returns the record owning the zip code, if any.
func (m *Manager) ByZipCode(r repository.Reader, zipCode string) ([]*entity.Address, error) {
	Lookups.WithLabelValues(indexZipCode).Inc()
	if strings.TrimSpace(zipCode) == "" {
		return []*entity.Address{}, nil
	}

	id, owned, err := m.zipCodeOwner(r, zipCode)
	if err != nil || !owned {
		return []*entity.Address{}, err
	}

	return m.load(r, []uint64{id})
}

// ByStreet returns the records on the street, ordered by ID.
func (m *Manager) ByStreet(r repository.Reader, street string) ([]*entity.Address, error) {
	Lookups.WithLabelValues(indexStreet).Inc()

	return m.byTerm(r, prefixStreet, street)
}

// ByAlias returns the records carrying the alias, ordered by ID.
func (m *Manager) ByAlias(r repository.Reader, alias string) ([]*entity.Address, error) {
	Lookups.WithLabelValues(indexAlias).Inc()

	return m.byTerm(r, prefixAlias, alias)
}

// Scan returns up to limit records in ID order, skipping the first offset.
// A negative limit means no limit.
func (m *Manager) Scan(r repository.Reader, offset, limit int) ([]*entity.Address, error) {
	addresses := []*entity.Address{}
	if limit == 0 {
		return addresses, nil
	}

	var decodeErr error
	skipped := 0
	err := r.Scan(prefixAddress, func(key, value []byte) bool {
		if skipped < offset {
			skipped++

			return true
		}

		address, err := decodeAddress(value)
		if err != nil {
			decodeErr = errors.Wrapf(err, "failed to decode address %x", key)

			return false
		}
		addresses = append(addresses, address)

		return limit < 0 || len(addresses) < limit
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan addresses")
	}
	if decodeErr != nil {
		return nil, decodeErr
	}

	return addresses, nil
}

// Count returns the number of stored records.
func (m *Manager) Count(r repository.Reader) (int, error) {
	count, err := m.readCounter(r, keyCount)

	return int(count), err
}

func (m *Manager) byTerm(r repository.Reader, prefix []byte, term string) ([]*entity.Address, error) {
	if strings.TrimSpace(term) == "" {
		return []*entity.Address{}, nil
	}

	var ids []uint64
	err := r.Scan(termPrefix(prefix, term), func(key, _ []byte) bool {
		ids = append(ids, termKeyID(key))

		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan index")
	}

	return m.load(r, ids)
}

func (m *Manager) load(r repository.Reader, ids []uint64) ([]*entity.Address, error) {
	addresses := make([]*entity.Address, 0, len(ids))
	for _, id := range ids {
		address, found, err := m.Get(r, id)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errors.Errorf("index entry points to missing address %d", id)
		}
		addresses = append(addresses, address)
	}

	return addresses, nil
}

func (m *Manager) zipCodeOwner(r repository.Reader, zipCode string) (uint64, bool, error) {
	raw, err := r.Get(zipCodeKey(zipCode))
	if errors.Is(err, repository.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to read zip code index")
	}

	return decodeUint64(raw), true, nil
}

func (m *Manager) checkZipCode(r repository.Reader, zipCode string, id uint64) error {
	owner, owned, err := m.zipCodeOwner(r, zipCode)
	if err != nil {
		return err
	}
	if owned && owner != id {
		UniqueViolations.Inc()

		return duplicateZipCode(zipCode)
	}

	return nil
}

func (m *Manager) putRecord(tx repository.Txn, address *entity.Address) error {
	raw, err := json.Marshal(address)
	if err != nil {
		return errors.Wrapf(err, "failed to encode address %d", address.ID)
	}
	if err := tx.Set(addressKey(address.ID), raw); err != nil {
		return errors.Wrapf(err, "failed to store address %d", address.ID)
	}
	EntryWrites.WithLabelValues(indexPrimary, opPut).Inc()

	return nil
}

func (m *Manager) putEntries(tx repository.Txn, address *entity.Address) error {
	if err := tx.Set(zipCodeKey(address.ZipCode), encodeUint64(address.ID)); err != nil {
		return errors.Wrap(err, "failed to store zip code entry")
	}
	EntryWrites.WithLabelValues(indexZipCode, opPut).Inc()

	if err := tx.Set(termKey(prefixStreet, address.Street, address.ID), []byte{}); err != nil {
		return errors.Wrap(err, "failed to store street entry")
	}
	EntryWrites.WithLabelValues(indexStreet, opPut).Inc()

	for _, alias := range distinctTerms(address.Aliases) {
		if err := tx.Set(termKey(prefixAlias, alias, address.ID), []byte{}); err != nil {
			return errors.Wrap(err, "failed to store alias entry")
		}
		EntryWrites.WithLabelValues(indexAlias, opPut).Inc()
	}

	return nil
}

func (m *Manager) deleteEntries(tx repository.Txn, address *entity.Address) error {
	if err := tx.Delete(zipCodeKey(address.ZipCode)); err != nil {
		return errors.Wrap(err, "failed to delete zip code entry")
	}
	EntryWrites.WithLabelValues(indexZipCode, opDelete).Inc()

	if err := tx.Delete(termKey(prefixStreet, address.Street, address.ID)); err != nil {
		return errors.Wrap(err, "failed to delete street entry")
	}
	EntryWrites.WithLabelValues(indexStreet, opDelete).Inc()

	for _, alias := range distinctTerms(address.Aliases) {
		if err := tx.Delete(termKey(prefixAlias, alias, address.ID)); err != nil {
			return errors.Wrap(err, "failed to delete alias entry")
		}
		EntryWrites.WithLabelValues(indexAlias, opDelete).Inc()
	}

	return nil
}

func (m *Manager) readCounter(r repository.Reader, key []byte) (uint64, error) {
	raw, err := r.Get(key)
	if errors.Is(err, repository.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s", key)
	}

	return decodeUint64(raw), nil
}

func (m *Manager) addCount(tx repository.Txn, delta int) error {
	count, err := m.readCounter(tx, keyCount)
	if err != nil {
		return err
	}

	next := int64(count) + int64(delta)
	if next < 0 {
		return errors.Errorf("record count would become negative (%d)", next)
	}

	return errors.Wrap(tx.Set(keyCount, encodeUint64(uint64(next))), "failed to store record count")
}

func distinctTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	distinct := make([]string, 0, len(terms))
	for _, term := range terms {
		key := entity.NormalizeKey(term)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		distinct = append(distinct, term)
	}

	return distinct
}

func duplicateZipCode(zipCode string) error {
	return domainerrors.ErrDuplicateKey.WithDetails(fmt.Sprintf("zip code %q", zipCode))
}

func decodeAddress(raw []byte) (*entity.Address, error) {
	var address entity.Address
	if err := json.Unmarshal(raw, &address); err != nil {
		return nil, err
	}
	if address.Aliases == nil {
		address.Aliases = []string{}
	}

	return &address, nil
}
