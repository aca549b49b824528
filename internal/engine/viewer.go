package engine

import "sync"

// Spread selects how many pages are shown side by side.
type Spread int

const (
	// SpreadAuto picks single or double pages from the viewer width.
	SpreadAuto Spread = iota
	SpreadSingle
	SpreadDouble
)

// Flow selects how content moves through the viewer.
type Flow int

const (
	FlowPaginated Flow = iota
	FlowScrolled
)

// LayoutConfig fixes how a rendition fills its viewer. The rendition always
// fills the full surface; there is no partial-size mode.
type LayoutConfig struct {
	Spread Spread
	Flow   Flow
}

// DefaultLayout is the layout every reading session uses: full-size
// surface, automatic spread selection, paginated flow.
func DefaultLayout() LayoutConfig {
	return LayoutConfig{Spread: SpreadAuto, Flow: FlowPaginated}
}

// Viewer is the surface a rendition paints into. The host creates one per
// session, keeps it for the session's lifetime, and repaints from Frame
// whenever the rendition relocates. Safe for concurrent use.
type Viewer struct {
	mu     sync.Mutex
	width  int
	height int
	frame  string
}

// NewViewer returns a viewer surface of the given size in cells.
func NewViewer(width, height int) *Viewer {
	return &Viewer{width: width, height: height}
}

// SetSize updates the surface dimensions. The attached rendition reflows
// lazily on its next paint.
func (v *Viewer) SetSize(width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.width = width
	v.height = height
}

// Size returns the current surface dimensions.
func (v *Viewer) Size() (width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width, v.height
}

// Frame returns the currently painted content.
func (v *Viewer) Frame() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frame
}

// paint replaces the painted content. Called by renditions only.
func (v *Viewer) paint(frame string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.frame = frame
}
