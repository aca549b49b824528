// Package engine defines the rendering engine capability set the reader
// session consumes: loading a book from an address, attaching it to a
// viewer surface, navigating, and reporting position changes. The default
// implementation renders EPUB files; the session itself never depends on a
// concrete engine.
package engine

import "context"

// Metadata carries the subset of book metadata the session consumes.
type Metadata struct {
	Title  string
	Author string
}

// Engine parses a book source into a handle the host can render.
type Engine interface {
	// Load opens the book at address. The address is opaque to callers;
	// this engine family accepts local paths and file:// URLs.
	Load(ctx context.Context, address string) (BookHandle, error)
}

// BookHandle is a loaded book, not yet attached to a surface.
type BookHandle interface {
	// RenderTo attaches the book to the viewer with the given layout and
	// returns the live, navigable rendition.
	RenderTo(v *Viewer, layout LayoutConfig) (Rendition, error)

	// Metadata returns the book's metadata. Best-effort; callers must not
	// let a failure here block anything.
	Metadata(ctx context.Context) (Metadata, error)

	// Close releases the underlying source.
	Close() error
}

// Rendition is a live view of a book inside a viewer. Implementations emit
// a relocation notification on the very first display and on every
// subsequent navigation, in order, from a single goroutine.
type Rendition interface {
	// Display shows the location identified by token, or the book's default
	// starting location when token is empty. A stale or malformed token
	// falls back to the default start rather than failing.
	Display(ctx context.Context, token string) error

	// Next advances one page (or spread). A no-op at the end of the book.
	Next(ctx context.Context) error

	// Prev goes back one page (or spread). A no-op at the start.
	Prev(ctx context.Context) error

	// OnRelocated registers the single consumer of position changes. The
	// callback receives the engine-defined position token for the location
	// now visible.
	OnRelocated(fn func(token string))
}
