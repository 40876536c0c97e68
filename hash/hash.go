package hash

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// keyHash produces the 64-bit hash an extendible hash Table routes a key
// by. Go generics give us Table[K, V] for any comparable K, so unlike the
// original C++ (which relies on std::hash<K> template specializations) we
// fall back to hashing each key's canonical string form — cheap enough for
// the page ids and small composite keys this core and its callers deal in.
func keyHash[K comparable](k K) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%v", k))
}
