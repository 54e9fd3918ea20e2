// Package index maintains the address collection and its secondary indexes
// inside a key-value store transaction.
//
// # Indexes
//
//  1. Primary (implicit)
//     ID to record. Scanning it yields every record in ascending ID order,
//     which is the order of List and of every page.
//
//  2. Zip code (unique)
//     Normalized zip code to ID. A zip code owned by one ID cannot be taken
//     by another; Insert and Update return ErrDuplicateKey instead.
//
//  3. Street (non-unique)
//     Normalized street to the set of IDs carrying it.
//
//  4. Alias (non-unique, multi-valued)
//     One entry per distinct normalized alias of a record.
//
// Normalization (entity.NormalizeKey) trims, composes and case-folds, so
// every lookup is a case-insensitive exact match.
//
// # Key layout
//
//   - Primary:  "a/" + id(u64, BE) -> JSON record
//   - Zip code: "z/" + zip -> id(u64, BE)
//   - Street:   "s/" + len(u32, BE) + street + id(u64, BE) -> empty
//   - Alias:    "l/" + len(u32, BE) + alias + id(u64, BE) -> empty
//   - Meta:     "m/seq" -> last assigned id, "m/count" -> record count
//
// Term keys end with the big-endian ID, so the entries of one term come out
// of a prefix scan already sorted by ID.
//
// # Integration with writes
//
// The Manager never commits. Callers hand it the transaction of the store
// and the record and index writes land in the same batch; the store applies
// all of them or none. Every method checks its preconditions (existence,
// zip code ownership) before its first write, so a rejected operation leaves
// nothing behind even before the transaction is discarded.
package index
