package reader

import "net/url"

// queryParams are the launch parameters that may carry a book address,
// checked in this order.
var queryParams = []string{"book", "file", "path"}

// Source holds the inputs a session may take its book address from.
//
// Priority is strict: an explicit address handed to the host wins over the
// configured address, which wins over the launch query parameters.
type Source struct {
	// Explicit is an address handed directly to the session host, e.g. the
	// argument of "bayleaf read <address>".
	Explicit string

	// Configured is the optional address from the hosting configuration
	// (config file field or BAYLEAF_BOOK).
	Configured string

	// Query carries launch parameters; "book", "file" and "path" are
	// consulted in that order, first non-empty wins.
	Query url.Values
}

// Resolve returns the book address, or "" when no input names one. An empty
// result is a valid "no book" outcome, not an error. Resolution is
// synchronous and deterministic; the session resolves once and never again.
func (s Source) Resolve() string {
	if s.Explicit != "" {
		return s.Explicit
	}
	if s.Configured != "" {
		return s.Configured
	}
	for _, p := range queryParams {
		if v := s.Query.Get(p); v != "" {
			return v
		}
	}
	return ""
}
