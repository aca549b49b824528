package reader

import "fmt"

// FNV-1a constants. Fixed so fingerprints stay stable across releases;
// changing either invalidates every saved reading position.
const (
	fnvSeed  uint32 = 2166136261
	fnvPrime uint32 = 16777619
)

// Fingerprint returns a short deterministic digest of a book address, used
// to namespace saved reader state. The output is always 8 lowercase hex
// digits and identical across runs and platforms for the same address.
// Collisions are tolerated: a collision only makes two books share a saved
// position, it never corrupts anything.
func Fingerprint(address string) string {
	h := fnvSeed
	for _, r := range address {
		h ^= uint32(r)
		h *= fnvPrime
	}
	return fmt.Sprintf("%08x", h)
}
