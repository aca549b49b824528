package reader

import "context"

// Key identifies a directional navigation key.
type Key int

const (
	KeyLeft Key = iota
	KeyRight
)

// Trigger is an optional activatable control, the terminal analogue of a
// previous/next button. OnActivate registers the action the control fires.
type Trigger interface {
	OnActivate(fn func())
}

// KeyRouter feeds directional key presses from the host event loop into the
// bound navigation handler. Presses are dropped while focus is inside a
// text-input-like widget so typing never turns pages.
type KeyRouter struct {
	inInput func() bool
	handler func(Key)
}

// NewKeyRouter returns a router. inInput reports whether focus is currently
// inside a text input; nil means focus is never in an input.
func NewKeyRouter(inInput func() bool) *KeyRouter {
	return &KeyRouter{inInput: inInput}
}

// Press dispatches one key press. A no-op until controls are bound.
func (r *KeyRouter) Press(k Key) {
	if r.handler == nil {
		return
	}
	if r.inInput != nil && r.inInput() {
		return
	}
	r.handler(k)
}

func (r *KeyRouter) bind(fn func(Key)) {
	r.handler = fn
}

// Navigator is the slice of the rendering engine the controls drive.
type Navigator interface {
	Prev(ctx context.Context) error
	Next(ctx context.Context) error
}

// Controls groups the optional navigation inputs of the hosting surface.
// Any field may be nil.
type Controls struct {
	PrevButton Trigger
	NextButton Trigger
	Keys       *KeyRouter
}

// BindControls attaches the host's controls to the engine's navigation.
// Each activation calls the corresponding engine method exactly once;
// navigation errors are not surfaced (retry is a user action). Callers must
// bind at most once per session, no de-duplication is performed here.
func BindControls(ctx context.Context, nav Navigator, c Controls) {
	if c.PrevButton != nil {
		c.PrevButton.OnActivate(func() { _ = nav.Prev(ctx) })
	}
	if c.NextButton != nil {
		c.NextButton.OnActivate(func() { _ = nav.Next(ctx) })
	}
	if c.Keys != nil {
		c.Keys.bind(func(k Key) {
			switch k {
			case KeyLeft:
				_ = nav.Prev(ctx)
			case KeyRight:
				_ = nav.Next(ctx)
			}
		})
	}
}
