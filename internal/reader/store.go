package reader

// StatePrefix namespaces reader position keys inside a store shared with
// unrelated data. The full storage key is StatePrefix + fingerprint.
const StatePrefix = "bayleaf:reader:loc:"

// PositionStore persists the last-known reading position per book
// fingerprint. Persistence is best-effort by contract: implementations
// swallow every underlying failure. Save never reports errors and a failed
// Load reads as "no saved position". Later writes overwrite earlier ones.
type PositionStore interface {
	// Load returns the saved position token for key, or "", false when
	// nothing usable is stored.
	Load(key string) (token string, ok bool)

	// Save stores token under key, silently dropping it on failure.
	Save(key, token string)
}
