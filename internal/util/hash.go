// Package util contains internal helpers (hashing, counter padding).
package util

const (
	fnvOffset64 = 1469598103934665603
	fnvPrime64  = 1099511628211
)

// Fnv64a hashes b using 64-bit FNV-1a. Fast, allocation-free, and
// stable across processes, which is what key fingerprints need; it is
// not collision-resistant against adversarial input.
func Fnv64a(b []byte) uint64 {
	h := uint64(fnvOffset64)
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime64
	}
	return h
}

// Fnv64aString is Fnv64a for strings without the []byte conversion copy.
func Fnv64aString(s string) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}
