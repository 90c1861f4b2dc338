package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/motorline/tagcache/internal/util"
)

// GenerateKey derives a deterministic cache key from a namespace, an
// identifier, and an optional context:
//
//	namespace:identifier[:fingerprint]
//
// The fingerprint is a fixed-length digest of the canonicalized
// context, independent of the map's insertion order: two contexts with
// the same key/value pairs always produce the same key.
func GenerateKey(namespace, identifier string, context map[string]any) string {
	if len(context) == 0 {
		return namespace + ":" + identifier
	}
	return namespace + ":" + identifier + ":" + fingerprint(context)
}

// fingerprint digests the canonical form of context to 16 hex chars.
// encoding/json writes map keys in sorted order, which is exactly the
// canonicalization needed; it also applies to nested maps.
func fingerprint(context map[string]any) string {
	b, err := json.Marshal(context)
	if err != nil {
		// Non-serializable context values degrade to the sorted
		// key=value form rather than failing key generation.
		b = []byte(canonicalString(context))
	}
	return fmt.Sprintf("%016x", util.Fnv64a(b))
}

// canonicalString renders context as sorted key=value pairs. fmt prints
// nested maps in sorted key order as well, keeping the form canonical.
func canonicalString(context map[string]any) string {
	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		fmt.Fprintf(&sb, "%s=%v", k, context[k])
	}
	return sb.String()
}
