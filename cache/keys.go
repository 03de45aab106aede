package cache

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Reserved physical-key segments for the auxiliary structures the backends
// maintain alongside value entries.
const (
	indexSuffix    = ":__index"
	catalogSuffix  = ":__catalog"
	hashKeySegment = ":__hash:"
)

// BuildCacheKey turns a logical key into the namespaced physical key sent to
// the backing store. Pure and total: empty or whitespace input passes
// through unchanged under the prefix.
func BuildCacheKey(keyPrefix, logicalKey string) string {
	if keyPrefix == "" {
		return logicalKey
	}
	return keyPrefix + ":" + logicalKey
}

// BuildPrefixKey namespaces a bare logical prefix the same way.
func BuildPrefixKey(keyPrefix, prefix string) string {
	return BuildCacheKey(keyPrefix, prefix)
}

func indexKey(keyPrefix, prefix string) string {
	return BuildPrefixKey(keyPrefix, prefix) + indexSuffix
}

func catalogKey(keyPrefix string) string {
	return keyPrefix + catalogSuffix
}

func hashKey(keyPrefix, hash string) string {
	return keyPrefix + hashKeySegment + hash
}

// ExtractPrefix derives the aggregate prefix of a logical key from its shape
// alone, so writers never have to declare the prefix separately.
//
// The key is scanned left to right for colons. The first colon whose
// following segment contains an "=" (a filter segment, e.g. "page=1")
// terminates the prefix: everything before that colon is the prefix. A key
// with no filter segment anywhere is its own prefix.
//
//	ExtractPrefix("Employees:page=1:size=10") == "Employees"
//	ExtractPrefix("Employees:active:count")   == "Employees:active:count"
func ExtractPrefix(logicalKey string) string {
	for i := 0; i < len(logicalKey); i++ {
		if logicalKey[i] != ':' {
			continue
		}
		segment := logicalKey[i+1:]
		if j := strings.IndexByte(segment, ':'); j >= 0 {
			segment = segment[:j]
		}
		if strings.IndexByte(segment, '=') >= 0 {
			return logicalKey[:i]
		}
	}
	return logicalKey
}

// KeyHash returns a deterministic one-way hash of a logical key, used when
// diagnostics run in Hash mode so filter values never reach logs or
// response headers. Not cryptographic — it only needs to be opaque and
// stable, so xxhash64 is plenty.
func KeyHash(logicalKey string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(logicalKey))
}
