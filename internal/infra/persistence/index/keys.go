package index

import (
	"encoding/binary"

	"addrstore/internal/domain/entity"
)

var (
	prefixAddress = []byte("a/")
	prefixZipCode = []byte("z/")
	prefixStreet  = []byte("s/")
	prefixAlias   = []byte("l/")
	keySequence   = []byte("m/seq")
	keyCount      = []byte("m/count")
)

const idLen = 8

func addressKey(id uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte{}, prefixAddress...), id)
}

func zipCodeKey(zipCode string) []byte {
	return append(append([]byte{}, prefixZipCode...), entity.NormalizeKey(zipCode)...)
}

// termPrefix is the common prefix of every entry of one term. The length
// prefix keeps "rua a" from matching the entries of "rua ab".
func termPrefix(prefix []byte, term string) []byte {
	normalized := entity.NormalizeKey(term)
	key := append([]byte{}, prefix...)
	key = binary.BigEndian.AppendUint32(key, uint32(len(normalized)))

	return append(key, normalized...)
}

func termKey(prefix []byte, term string, id uint64) []byte {
	return binary.BigEndian.AppendUint64(termPrefix(prefix, term), id)
}

func termKeyID(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(key)-idLen:])
}

func encodeUint64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func decodeUint64(b []byte) uint64 {
	if len(b) != idLen {
		return 0
	}

	return binary.BigEndian.Uint64(b)
}
