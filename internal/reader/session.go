// Package reader implements the book reading session: resolving which book
// to open, restoring the saved reading position across sessions, and
// mediating between the host's navigation controls and the rendering
// engine. The engine itself (parsing, layout, painting) is a collaborator
// behind the engine package's interfaces.
package reader

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hollyoak/bayleaf/internal/engine"
)

// State is the macro-state of a reading session. NoBook, Ready and
// LoadError are terminal; navigation inside Ready never changes the
// macro-state, only the engine's internal position.
type State int

const (
	StateIdle State = iota
	StateLocating
	StateNoBook
	StateLoading
	StateReady
	StateLoadError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLocating:
		return "locating"
	case StateNoBook:
		return "no-book"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateLoadError:
		return "load-error"
	default:
		return "unknown"
	}
}

// Status messages surfaced through the StatusReporter.
const (
	StatusLoading    = "Loading book…"
	StatusNoBook     = "No book selected. Open one from the library or pass an address to bayleaf read."
	StatusLoadFailed = "Could not open this book. The file may be missing, unsupported, or damaged."
)

// Configuration errors. These are the only errors Start propagates; every
// other failure degrades to a status message.
var (
	ErrNoViewer = errors.New("reader: no viewer surface configured")
	ErrNoEngine = errors.New("reader: no rendering engine configured")
)

// Config assembles a session's collaborators. Viewer and Engine are
// required; everything else is optional and degrades to a no-op.
type Config struct {
	Source Source
	Engine engine.Engine
	Viewer *engine.Viewer

	// Store persists reading positions. nil disables persistence, which
	// reads as "no saved position" and drops saves.
	Store PositionStore

	// Status receives progress and error text. nil discards it.
	Status StatusReporter

	// Controls are the host's navigation inputs; bound once during Start.
	Controls Controls

	// OnTitle receives the book title once metadata arrives. Called from a
	// separate goroutine, possibly after Start returns. nil skips the
	// metadata fetch entirely.
	OnTitle func(title string)

	Logger *slog.Logger
}

// Session is a single-book reading session. Create one per opened book and
// call Start exactly once; the session lives until its host is torn down.
type Session struct {
	cfg Config
	log *slog.Logger

	mu        sync.Mutex
	state     State
	address   string
	key       string
	rendition engine.Rendition
}

// NewSession returns an idle session over cfg.
func NewSession(cfg Config) *Session {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Session{cfg: cfg, log: log, state: StateIdle}
}

// Start runs the session sequence: resolve the address, derive the
// persistence key, restore the saved position, attach the engine to the
// viewer, bind controls, and display content. It returns the resulting
// macro-state. The only error it returns is a configuration error (missing
// viewer or engine), checked before any other component runs; load and
// storage failures degrade to status text. There are no retries anywhere.
func (s *Session) Start(ctx context.Context) (State, error) {
	if s.cfg.Viewer == nil {
		return StateIdle, ErrNoViewer
	}
	if s.cfg.Engine == nil {
		return StateIdle, ErrNoEngine
	}

	s.setState(StateLocating)
	address := s.cfg.Source.Resolve()
	if address == "" {
		s.setState(StateNoBook)
		s.cfg.Status.report(StatusNoBook)
		return StateNoBook, nil
	}

	s.mu.Lock()
	s.address = address
	s.key = StatePrefix + Fingerprint(address)
	key := s.key
	s.mu.Unlock()

	var saved string
	if s.cfg.Store != nil {
		saved, _ = s.cfg.Store.Load(key)
	}

	s.setState(StateLoading)
	s.cfg.Status.report(StatusLoading)

	handle, err := s.cfg.Engine.Load(ctx, address)
	if err != nil {
		return s.fail(err), nil
	}

	rendition, err := handle.RenderTo(s.cfg.Viewer, engine.DefaultLayout())
	if err != nil {
		return s.fail(err), nil
	}
	s.mu.Lock()
	s.rendition = rendition
	s.mu.Unlock()

	// Persist every relocation, including the very first display. The
	// engine emits notifications in order from a single goroutine, so each
	// save settles before the next begins; failures are the store's to
	// swallow.
	store := s.cfg.Store
	rendition.OnRelocated(func(token string) {
		if store != nil {
			store.Save(key, token)
		}
	})

	// Title metadata is best-effort and must never delay control binding
	// or the first display.
	if s.cfg.OnTitle != nil {
		go s.fetchTitle(ctx, handle, address)
	}

	// Bound before the display attempt, regardless of metadata outcome, so
	// navigation works even if the first display fails later.
	BindControls(ctx, rendition, s.cfg.Controls)

	if err := rendition.Display(ctx, saved); err != nil {
		return s.fail(err), nil
	}

	s.setState(StateReady)
	s.cfg.Status.report("")
	return StateReady, nil
}

// State returns the current macro-state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Rendition returns the attached rendition, or nil before the book loads.
func (s *Session) Rendition() engine.Rendition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rendition
}

// Address returns the resolved book address, or "" before resolution.
func (s *Session) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// fail moves the session to its terminal error state: a fixed user-facing
// message plus the underlying cause in the log.
func (s *Session) fail(cause error) State {
	s.setState(StateLoadError)
	s.log.Error("book load failed", "address", s.Address(), "error", cause)
	s.cfg.Status.report(StatusLoadFailed)
	return StateLoadError
}

func (s *Session) fetchTitle(ctx context.Context, handle engine.BookHandle, address string) {
	md, err := handle.Metadata(ctx)
	if err != nil {
		s.log.Debug("metadata fetch failed", "address", address, "error", err)
		return
	}
	if md.Title != "" {
		s.cfg.OnTitle(md.Title)
	}
}
