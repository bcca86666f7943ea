package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given string. Merge bookkeeping uses it
// to key descriptor dedup sets and drop-list membership checks.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}
