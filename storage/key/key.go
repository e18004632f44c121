package key

import (
	"encoding/binary"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/oklog/ulid/v2"
)

const (
	hashSize = 8
	size     = hashSize + 16
)

// Key represents a lexicographically sortable key: the hash of a name
// followed by a ULID, so keys sharing a name sort by time.
type Key []byte

// New generates a new key for name at timestamp.
func New(name []byte, timestamp time.Time) (Key, ulid.ULID, error) {
	id, err := NewMonotonicULIDGenerator().New(timestamp)
	if err != nil {
		return nil, id, err
	}

	out := make([]byte, size)
	copy(out, Prefix(name))
	if err := id.MarshalBinaryTo(out[hashSize:]); err != nil {
		return nil, id, err
	}

	return out, id, nil
}

// Prefix returns the leading bytes every key of name shares.
func Prefix(name []byte) []byte {
	out := make([]byte, hashSize)
	binary.BigEndian.PutUint64(out, xxhash.Sum64(name))
	return out
}

// HashOf returns the hashed name part of the key.
func HashOf(k Key) uint64 {
	return binary.BigEndian.Uint64(k[0:hashSize])
}

// ULIDOf returns the time-ordered part of the key.
func ULIDOf(k Key) (ulid.ULID, error) {
	var id ulid.ULID
	err := id.UnmarshalBinary(k[hashSize:size])
	return id, err
}
