package reader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollyoak/bayleaf/internal/engine"
)

// Fakes for the engine side of the session.

type fakeEngine struct {
	loads   []string
	loadErr error
	handle  *fakeHandle
}

func (e *fakeEngine) Load(ctx context.Context, address string) (engine.BookHandle, error) {
	e.loads = append(e.loads, address)
	if e.loadErr != nil {
		return nil, e.loadErr
	}
	return e.handle, nil
}

type fakeHandle struct {
	md        engine.Metadata
	mdErr     error
	renderErr error
	rendition *fakeRendition
}

func (h *fakeHandle) RenderTo(v *engine.Viewer, layout engine.LayoutConfig) (engine.Rendition, error) {
	if h.renderErr != nil {
		return nil, h.renderErr
	}
	return h.rendition, nil
}

func (h *fakeHandle) Metadata(ctx context.Context) (engine.Metadata, error) {
	return h.md, h.mdErr
}

func (h *fakeHandle) Close() error { return nil }

// fakeRendition records calls in order and emits a relocation on every
// display and page turn, the way a real engine does.
type fakeRendition struct {
	calls        []string
	displayed    []string
	displayErr   error
	displayToken string
	onRelocated  func(string)
	position     int
}

func (r *fakeRendition) Display(ctx context.Context, token string) error {
	r.calls = append(r.calls, "display")
	r.displayed = append(r.displayed, token)
	if r.displayErr != nil {
		return r.displayErr
	}
	r.relocate(r.displayToken)
	return nil
}

func (r *fakeRendition) Next(ctx context.Context) error {
	r.position++
	r.relocate("page-" + string(rune('0'+r.position)))
	return nil
}

func (r *fakeRendition) Prev(ctx context.Context) error {
	r.position--
	r.relocate("page-" + string(rune('0'+r.position)))
	return nil
}

func (r *fakeRendition) OnRelocated(fn func(token string)) {
	r.calls = append(r.calls, "onrelocated")
	r.onRelocated = fn
}

func (r *fakeRendition) relocate(token string) {
	if r.onRelocated != nil {
		r.onRelocated(token)
	}
}

// recordingStore keeps positions in memory and records every save.
type recordingStore struct {
	data  map[string]string
	saves [][2]string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{data: map[string]string{}}
}

func (s *recordingStore) Load(key string) (string, bool) {
	v, ok := s.data[key]
	return v, ok
}

func (s *recordingStore) Save(key, token string) {
	s.saves = append(s.saves, [2]string{key, token})
	s.data[key] = token
}

// brokenStore simulates a persistence layer that swallows its failures.
type brokenStore struct{}

func (brokenStore) Load(key string) (string, bool) { return "", false }
func (brokenStore) Save(key, token string)         {}

type statusLog struct {
	messages []string
}

func (l *statusLog) reporter() StatusReporter {
	return func(m string) { l.messages = append(l.messages, m) }
}

func newTestEngine() *fakeEngine {
	return &fakeEngine{
		handle: &fakeHandle{
			md:        engine.Metadata{Title: "Practical Preserving"},
			rendition: &fakeRendition{displayToken: "epubcfi(/6/2!/4/2)"},
		},
	}
}

func TestStart_MissingViewerFailsFast(t *testing.T) {
	eng := newTestEngine()
	session := NewSession(Config{
		Source: Source{Explicit: "/books/a.epub"},
		Engine: eng,
	})

	state, err := session.Start(context.Background())
	require.ErrorIs(t, err, ErrNoViewer)
	assert.Equal(t, StateIdle, state)
	assert.Empty(t, eng.loads, "engine must not run on configuration errors")
}

func TestStart_MissingEngineFailsFast(t *testing.T) {
	session := NewSession(Config{
		Source: Source{Explicit: "/books/a.epub"},
		Viewer: engine.NewViewer(80, 24),
	})

	state, err := session.Start(context.Background())
	require.ErrorIs(t, err, ErrNoEngine)
	assert.Equal(t, StateIdle, state)
}

func TestStart_NoBook(t *testing.T) {
	eng := newTestEngine()
	status := &statusLog{}
	session := NewSession(Config{
		Source: Source{},
		Engine: eng,
		Viewer: engine.NewViewer(80, 24),
		Status: status.reporter(),
	})

	state, err := session.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateNoBook, state)
	assert.Equal(t, []string{StatusNoBook}, status.messages)
	assert.Empty(t, eng.loads)
}

func TestStart_FirstOpen(t *testing.T) {
	eng := newTestEngine()
	store := newRecordingStore()
	status := &statusLog{}
	session := NewSession(Config{
		Source: Source{Explicit: "/books/a.epub"},
		Engine: eng,
		Viewer: engine.NewViewer(80, 24),
		Store:  store,
		Status: status.reporter(),
	})

	state, err := session.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, state)
	assert.Equal(t, []string{"/books/a.epub"}, eng.loads)

	// No saved position, so display starts from the default location.
	assert.Equal(t, []string{""}, eng.handle.rendition.displayed)

	// The first display's relocation is persisted under the derived key.
	key := StatePrefix + Fingerprint("/books/a.epub")
	require.Len(t, store.saves, 1)
	assert.Equal(t, key, store.saves[0][0])
	assert.Equal(t, "epubcfi(/6/2!/4/2)", store.saves[0][1])

	// Loading status first, cleared once ready.
	assert.Equal(t, []string{StatusLoading, ""}, status.messages)
}

func TestStart_ResumesSavedPosition(t *testing.T) {
	eng := newTestEngine()
	store := newRecordingStore()
	key := StatePrefix + Fingerprint("/books/a.epub")
	store.data[key] = "epubcfi(/6/4!/4/2)"

	session := NewSession(Config{
		Source: Source{Explicit: "/books/a.epub"},
		Engine: eng,
		Viewer: engine.NewViewer(80, 24),
		Store:  store,
	})

	state, err := session.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, state)
	assert.Equal(t, []string{"epubcfi(/6/4!/4/2)"}, eng.handle.rendition.displayed)
}

func TestStart_LoadFailure(t *testing.T) {
	eng := newTestEngine()
	eng.loadErr = errors.New("no such file")
	status := &statusLog{}
	session := NewSession(Config{
		Source: Source{Explicit: "/books/missing.epub"},
		Engine: eng,
		Viewer: engine.NewViewer(80, 24),
		Status: status.reporter(),
	})

	state, err := session.Start(context.Background())
	require.NoError(t, err, "load failures degrade to a status, not an error")
	assert.Equal(t, StateLoadError, state)
	assert.Equal(t, []string{StatusLoading, StatusLoadFailed}, status.messages)
}

func TestStart_RenderFailure(t *testing.T) {
	eng := newTestEngine()
	eng.handle.renderErr = errors.New("bad spine")
	session := NewSession(Config{
		Source: Source{Explicit: "/books/a.epub"},
		Engine: eng,
		Viewer: engine.NewViewer(80, 24),
	})

	state, err := session.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateLoadError, state)
}

func TestStart_DisplayFailure(t *testing.T) {
	eng := newTestEngine()
	eng.handle.rendition.displayErr = errors.New("empty book")
	status := &statusLog{}
	session := NewSession(Config{
		Source: Source{Explicit: "/books/a.epub"},
		Engine: eng,
		Viewer: engine.NewViewer(80, 24),
		Status: status.reporter(),
	})

	state, err := session.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateLoadError, state)
	assert.Equal(t, []string{StatusLoading, StatusLoadFailed}, status.messages)
}

func TestStart_NilStoreAndStatus(t *testing.T) {
	eng := newTestEngine()
	session := NewSession(Config{
		Source: Source{Explicit: "/books/a.epub"},
		Engine: eng,
		Viewer: engine.NewViewer(80, 24),
	})

	state, err := session.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, state)
}

func TestStart_StoreFailuresNeverSurface(t *testing.T) {
	eng := newTestEngine()
	router := NewKeyRouter(nil)
	session := NewSession(Config{
		Source:   Source{Explicit: "/books/a.epub"},
		Engine:   eng,
		Viewer:   engine.NewViewer(80, 24),
		Store:    brokenStore{},
		Controls: Controls{Keys: router},
	})

	state, err := session.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, state)

	// Navigation keeps working even though nothing persists.
	router.Press(KeyRight)
	router.Press(KeyRight)
	assert.Equal(t, 2, eng.handle.rendition.position)
}

func TestStart_RelocationsSavedInOrder(t *testing.T) {
	eng := newTestEngine()
	store := newRecordingStore()
	router := NewKeyRouter(nil)
	session := NewSession(Config{
		Source:   Source{Explicit: "/books/a.epub"},
		Engine:   eng,
		Viewer:   engine.NewViewer(80, 24),
		Store:    store,
		Controls: Controls{Keys: router},
	})

	_, err := session.Start(context.Background())
	require.NoError(t, err)

	router.Press(KeyRight)
	router.Press(KeyRight)
	router.Press(KeyLeft)

	require.Len(t, store.saves, 4)
	assert.Equal(t, "epubcfi(/6/2!/4/2)", store.saves[0][1])
	assert.Equal(t, "page-1", store.saves[1][1])
	assert.Equal(t, "page-2", store.saves[2][1])
	assert.Equal(t, "page-1", store.saves[3][1])
}

func TestStart_ControlsBoundBeforeDisplay(t *testing.T) {
	eng := newTestEngine()
	rendition := eng.handle.rendition
	router := NewKeyRouter(nil)
	session := NewSession(Config{
		Source:   Source{Explicit: "/books/a.epub"},
		Engine:   eng,
		Viewer:   engine.NewViewer(80, 24),
		Controls: Controls{Keys: router},
	})

	// Make display fail so binding must already have happened by then.
	rendition.displayErr = errors.New("first paint failed")

	state, err := session.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateLoadError, state)

	router.Press(KeyRight)
	assert.Equal(t, 1, rendition.position, "controls must work even when the first display fails")
}

func TestStart_TitleArrivesAsync(t *testing.T) {
	eng := newTestEngine()
	titles := make(chan string, 1)
	session := NewSession(Config{
		Source:  Source{Explicit: "/books/a.epub"},
		Engine:  eng,
		Viewer:  engine.NewViewer(80, 24),
		OnTitle: func(title string) { titles <- title },
	})

	state, err := session.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, state)

	select {
	case title := <-titles:
		assert.Equal(t, "Practical Preserving", title)
	case <-time.After(2 * time.Second):
		t.Fatal("title never delivered")
	}
}

func TestStart_MetadataFailureIsSilent(t *testing.T) {
	eng := newTestEngine()
	eng.handle.mdErr = errors.New("corrupt opf")
	titles := make(chan string, 1)
	status := &statusLog{}
	session := NewSession(Config{
		Source:  Source{Explicit: "/books/a.epub"},
		Engine:  eng,
		Viewer:  engine.NewViewer(80, 24),
		Status:  status.reporter(),
		OnTitle: func(title string) { titles <- title },
	})

	state, err := session.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, state)

	select {
	case title := <-titles:
		t.Fatalf("unexpected title %q after metadata failure", title)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, []string{StatusLoading, ""}, status.messages)
}

func TestSessionAddress(t *testing.T) {
	eng := newTestEngine()
	session := NewSession(Config{
		Source: Source{Explicit: "/books/a.epub"},
		Engine: eng,
		Viewer: engine.NewViewer(80, 24),
	})

	assert.Equal(t, "", session.Address())
	_, err := session.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/books/a.epub", session.Address())
	assert.Equal(t, StateReady, session.State())
}
