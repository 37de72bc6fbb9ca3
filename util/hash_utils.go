package util

import (
	"fmt"
	"hash"

	"github.com/OneOfOne/xxhash"
)

// HashCode returns the xxhash64 of key.
func HashCode(key []byte) uint64 {
	return xxhash.Checksum64(key)
}

// NewHash64 returns a streaming xxhash64, for hashing data too large to hold.
func NewHash64() hash.Hash64 {
	return xxhash.New64()
}

// FormatChecksum renders a checksum as fixed-width hex.
func FormatChecksum(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}
