package views

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hollyoak/bayleaf/internal/config"
	"github.com/hollyoak/bayleaf/internal/engine"
	"github.com/hollyoak/bayleaf/internal/index"
	"github.com/hollyoak/bayleaf/internal/reader"
	"github.com/hollyoak/bayleaf/internal/ui/styles"
)

// Vertical cells reserved for the header and status bars around the viewer.
const readerChrome = 2

// ReaderView displays book content through a reading session
type ReaderView struct {
	db     *index.DB
	config *config.Config
	log    *slog.Logger

	// Current book
	address string
	title   string

	// Session state
	session *reader.Session
	viewer  *engine.Viewer
	router  *reader.KeyRouter
	state   reader.State
	status  string
	started bool

	// Chapter jump prompt
	gotoMode  bool
	gotoInput textinput.Model

	// Carries status and title updates from session goroutines into the
	// event loop.
	events chan tea.Msg

	// Dimensions
	width  int
	height int
}

// NewReaderView creates a new reader view
func NewReaderView(db *index.DB, cfg *config.Config, log *slog.Logger) *ReaderView {
	gotoInput := textinput.New()
	gotoInput.Placeholder = "chapter"
	gotoInput.CharLimit = 4
	gotoInput.Width = 10

	return &ReaderView{
		db:        db,
		config:    cfg,
		log:       log,
		gotoInput: gotoInput,
		width:     80,
		height:    24,
	}
}

// SetBook sets the book to open. The session starts on the next Init.
func (v *ReaderView) SetBook(address, title string) {
	v.SetSource(reader.Source{
		Explicit:   address,
		Configured: v.config.BookAddress,
	}, title)
}

// SetSource sets the book source directly, for hosts that carry query
// parameters or override the configured fallback.
func (v *ReaderView) SetSource(src reader.Source, title string) {
	v.address = src.Resolve()
	v.title = title
	v.state = reader.StateIdle
	v.status = ""
	v.started = false
	v.gotoMode = false
	v.gotoInput.Blur()
	v.gotoInput.SetValue("")

	v.events = make(chan tea.Msg, 16)
	v.viewer = engine.NewViewer(v.width, v.height-readerChrome)
	v.router = reader.NewKeyRouter(func() bool { return v.gotoMode })
	v.session = reader.NewSession(reader.Config{
		Source:   src,
		Engine:   engine.NewEPUB(),
		Viewer:   v.viewer,
		Store:    v.db.Positions(),
		Status:   func(message string) { v.post(statusChangedMsg{message}) },
		Controls: reader.Controls{Keys: v.router},
		OnTitle:  func(title string) { v.post(titleChangedMsg{title}) },
		Logger:   v.log,
	})
}

// Message types
type sessionStartedMsg struct {
	state reader.State
	err   error
}

type statusChangedMsg struct {
	status string
}

type titleChangedMsg struct {
	title string
}

// post hands an event to the bubbletea loop. Drops when the view is not
// listening; a stale status from an abandoned session is worthless anyway.
func (v *ReaderView) post(msg tea.Msg) {
	select {
	case v.events <- msg:
	default:
	}
}

// listen waits for the next session event
func (v *ReaderView) listen() tea.Cmd {
	events := v.events
	return func() tea.Msg {
		return <-events
	}
}

// Init implements View
func (v *ReaderView) Init() tea.Cmd {
	if v.session == nil || v.started {
		return nil
	}
	v.started = true
	session := v.session
	return tea.Batch(
		func() tea.Msg {
			state, err := session.Start(context.Background())
			return sessionStartedMsg{state: state, err: err}
		},
		v.listen(),
	)
}

// Update implements View
func (v *ReaderView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case sessionStartedMsg:
		if msg.err != nil {
			return v, SendError(msg.err)
		}
		v.state = msg.state
		if msg.state == reader.StateReady {
			_ = v.config.AddRecentlyRead(v.address, v.title)
		}
		return v, nil

	case statusChangedMsg:
		v.status = msg.status
		return v, v.listen()

	case titleChangedMsg:
		v.title = msg.title
		return v, v.listen()
	}

	return v, nil
}

// handleKeyMsg handles key presses in the reader
func (v *ReaderView) handleKeyMsg(msg tea.KeyMsg) (View, tea.Cmd) {
	if v.router == nil {
		return v, nil
	}

	// Directional keys always go through the router; it drops them while
	// the chapter prompt has focus so typing never turns pages.
	switch msg.String() {
	case "left", "h":
		v.router.Press(reader.KeyLeft)
	case "right", "l", " ":
		v.router.Press(reader.KeyRight)
	}

	if v.gotoMode {
		switch msg.String() {
		case "esc":
			v.closeGotoPrompt()
		case "enter":
			value := v.gotoInput.Value()
			v.closeGotoPrompt()
			return v, v.jumpToChapter(value)
		default:
			var cmd tea.Cmd
			v.gotoInput, cmd = v.gotoInput.Update(msg)
			return v, cmd
		}
		return v, nil
	}

	switch msg.String() {
	case ":":
		v.gotoMode = true
		v.gotoInput.Focus()
		return v, textinput.Blink
	case "g", "home":
		return v, v.jumpToChapter("1")
	}

	return v, nil
}

// CapturingInput reports whether the chapter prompt owns the keyboard
func (v *ReaderView) CapturingInput() bool {
	return v.gotoMode
}

func (v *ReaderView) closeGotoPrompt() {
	v.gotoMode = false
	v.gotoInput.Blur()
	v.gotoInput.SetValue("")
}

// jumpToChapter moves the rendition to the start of the 1-based chapter.
func (v *ReaderView) jumpToChapter(value string) tea.Cmd {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return nil
	}
	rendition := v.session.Rendition()
	if rendition == nil {
		return nil
	}
	return func() tea.Msg {
		_ = rendition.Display(context.Background(), fmt.Sprintf("loc:%d:0", n-1))
		return nil
	}
}

// View implements View
func (v *ReaderView) View() string {
	var b strings.Builder

	b.WriteString(v.renderHeader() + "\n")

	switch v.state {
	case reader.StateReady:
		b.WriteString(v.viewer.Frame())
	default:
		message := v.status
		if message == "" {
			message = reader.StatusLoading
		}
		style := styles.MutedText
		if v.state == reader.StateLoadError {
			style = styles.ErrorStyle
		}
		b.WriteString(lipgloss.Place(
			v.width,
			v.height-readerChrome,
			lipgloss.Center,
			lipgloss.Center,
			style.Render(message),
		))
	}

	b.WriteString("\n" + v.renderFooter())

	return b.String()
}

// SetSize implements View
func (v *ReaderView) SetSize(width, height int) {
	v.width = width
	v.height = height
	if v.viewer != nil {
		v.viewer.SetSize(width, height-readerChrome)
	}
}

// renderHeader renders the title bar
func (v *ReaderView) renderHeader() string {
	title := v.title
	if title == "" {
		title = filepath.Base(v.address)
	}
	header := styles.ReaderHeader.Render(" " + title + " ")

	location := ""
	if loc, ok := v.currentLocation(); ok {
		location = styles.ReaderProgress.Render(fmt.Sprintf(" %s  %d%% ",
			loc.ChapterTitle, int(loc.Progress*100)))
	}

	gap := v.width - lipgloss.Width(header) - lipgloss.Width(location)
	if gap < 0 {
		gap = 0
	}
	return header + strings.Repeat(" ", gap) + location
}

// renderFooter renders the status or help bar
func (v *ReaderView) renderFooter() string {
	if v.gotoMode {
		return styles.StatusBar.Render("Go to chapter: ") + v.gotoInput.View()
	}
	if v.status != "" {
		return styles.StatusBar.Render(v.status)
	}

	help := []string{
		styles.HelpKey.Render("←/h") + styles.Help.Render(" prev"),
		styles.HelpKey.Render("→/l") + styles.Help.Render(" next"),
		styles.HelpKey.Render(":") + styles.Help.Render(" go to chapter"),
		styles.HelpKey.Render("q") + styles.Help.Render(" library"),
	}
	footer := strings.Join(help, "  ")

	page := ""
	if loc, ok := v.currentLocation(); ok {
		page = styles.Help.Render(fmt.Sprintf(" %d/%d ", loc.ChapterPage, loc.ChapterPages))
	}

	gap := v.width - lipgloss.Width(footer) - lipgloss.Width(page)
	if gap < 0 {
		gap = 0
	}
	return footer + strings.Repeat(" ", gap) + page
}

// currentLocation reports the rendition's position when it exposes one.
func (v *ReaderView) currentLocation() (engine.Location, bool) {
	if v.session == nil {
		return engine.Location{}, false
	}
	rendition := v.session.Rendition()
	if rendition == nil {
		return engine.Location{}, false
	}
	located, ok := rendition.(interface{ Location() engine.Location })
	if !ok {
		return engine.Location{}, false
	}
	return located.Location(), true
}
