package ui

import (
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hollyoak/bayleaf/internal/config"
	"github.com/hollyoak/bayleaf/internal/index"
	"github.com/hollyoak/bayleaf/internal/reader"
	"github.com/hollyoak/bayleaf/internal/ui/styles"
	"github.com/hollyoak/bayleaf/internal/ui/views"
)

// App is the main application model
type App struct {
	config *config.Config
	db     *index.DB
	log    *slog.Logger
	keys   KeyMap

	// Current view state
	currentView views.ViewType
	prevView    views.ViewType

	// Window dimensions
	width  int
	height int

	// View models
	libraryView views.View
	readerView  views.View
	detailsView views.View
	recipesView views.View

	// Error/status message
	err      error
	showHelp bool
}

// inputCapturer is implemented by views that sometimes own the keyboard,
// for example while a search prompt has focus. Global bindings step aside
// while a view is capturing.
type inputCapturer interface {
	CapturingInput() bool
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, db *index.DB, log *slog.Logger) *App {
	app := &App{
		config:      cfg,
		db:          db,
		log:         log,
		keys:        DefaultKeyMap(),
		currentView: views.ViewLibrary,
		width:       80,
		height:      24,
	}

	app.libraryView = views.NewLibraryView(db, cfg)
	app.readerView = views.NewReaderView(db, cfg, log)
	app.detailsView = views.NewBookDetailsView(db, cfg)
	app.recipesView = views.NewRecipesView(db)

	return app
}

// OpenSource jumps straight into the reader for the given book source,
// used by bayleaf read.
func (a *App) OpenSource(src reader.Source) {
	a.readerView.(*views.ReaderView).SetSource(src, "")
	a.currentView = views.ViewReader
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.getCurrentView().Init(),
		tea.SetWindowTitle("bayleaf"),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.libraryView.SetSize(msg.Width, msg.Height)
		a.readerView.SetSize(msg.Width, msg.Height)
		a.detailsView.SetSize(msg.Width, msg.Height)
		a.recipesView.SetSize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Views that own the keyboard right now get every key.
		if c, ok := a.getCurrentView().(inputCapturer); ok && c.CapturingInput() {
			break
		}

		switch {
		case key.Matches(msg, a.keys.Quit):
			// In the reader, go back to the library instead of quitting
			if a.currentView == views.ViewReader {
				return a.switchView(views.ViewLibrary)
			}
			return a, tea.Quit

		case key.Matches(msg, a.keys.Help):
			a.showHelp = !a.showHelp
			return a, nil

		case key.Matches(msg, a.keys.Escape):
			if a.showHelp {
				a.showHelp = false
				return a, nil
			}
			if a.currentView != views.ViewLibrary {
				return a.switchView(views.ViewLibrary)
			}
		}

	case views.OpenBookMsg:
		a.readerView.(*views.ReaderView).SetBook(msg.Address, msg.Title)
		return a.switchView(views.ViewReader)

	case views.ShowBookDetailsMsg:
		a.detailsView.(*views.BookDetailsView).SetBook(msg.Book)
		return a.switchView(views.ViewBookDetails)

	case views.ErrorMsg:
		a.err = msg.Err
		return a, nil

	case views.ClearErrorMsg:
		a.err = nil
		return a, nil

	case views.SwitchViewMsg:
		return a.switchView(msg.View)
	}

	// Delegate to current view
	var cmd tea.Cmd
	switch a.currentView {
	case views.ViewLibrary:
		a.libraryView, cmd = a.libraryView.Update(msg)
	case views.ViewReader:
		a.readerView, cmd = a.readerView.Update(msg)
	case views.ViewBookDetails:
		a.detailsView, cmd = a.detailsView.Update(msg)
	case views.ViewRecipes:
		a.recipesView, cmd = a.recipesView.Update(msg)
	}
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// View implements tea.Model
func (a *App) View() string {
	content := a.getCurrentView().View()

	if a.err != nil {
		errorBar := styles.ErrorStyle.Render("Error: " + a.err.Error())
		content = lipgloss.JoinVertical(lipgloss.Left, content, errorBar)
	}

	if a.showHelp {
		content = a.renderHelp()
	}

	return content
}

// switchView changes the current view and initializes it
func (a *App) switchView(view views.ViewType) (*App, tea.Cmd) {
	a.prevView = a.currentView
	a.currentView = view
	a.err = nil

	return a, a.getCurrentView().Init()
}

// getCurrentView returns the current view model
func (a *App) getCurrentView() views.View {
	switch a.currentView {
	case views.ViewReader:
		return a.readerView
	case views.ViewBookDetails:
		return a.detailsView
	case views.ViewRecipes:
		return a.recipesView
	default:
		return a.libraryView
	}
}

// renderHelp renders the help overlay
func (a *App) renderHelp() string {
	help := styles.Dialog.Width(56).Render(
		styles.DialogTitle.Render("Keyboard Shortcuts") + "\n\n" +
			styles.HelpKey.Render("Library") + "\n" +
			"  j/↓ k/↑  Move\n" +
			"  /        Search\n" +
			"  Enter    Open book\n" +
			"  i        Book details\n" +
			"  R        Recently read\n" +
			"  c        Recipe search\n\n" +
			styles.HelpKey.Render("Reader") + "\n" +
			"  →/l      Next page\n" +
			"  ←/h      Previous page\n" +
			"  :        Go to chapter\n" +
			"  g        Book start\n\n" +
			styles.HelpKey.Render("General") + "\n" +
			"  q        Quit/Back\n" +
			"  Esc      Back\n" +
			"  ?        Toggle help\n",
	)

	return lipgloss.Place(
		a.width,
		a.height,
		lipgloss.Center,
		lipgloss.Center,
		help,
	)
}
