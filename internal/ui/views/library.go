package views

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hollyoak/bayleaf/internal/config"
	"github.com/hollyoak/bayleaf/internal/index"
	"github.com/hollyoak/bayleaf/internal/ui/styles"
	"github.com/hollyoak/bayleaf/pkg/models"
)

// LibraryView displays the indexed book library
type LibraryView struct {
	db     *index.DB
	config *config.Config

	// Books
	all    []models.Book // every indexed book
	books  []models.Book // after search/recently-read filtering
	cursor int
	offset int // For scrolling

	// State
	loading          bool
	err              error
	searchMode       bool
	searchInput      textinput.Model
	recentlyReadMode bool

	// Dimensions
	width  int
	height int
}

// NewLibraryView creates a new library view
func NewLibraryView(db *index.DB, cfg *config.Config) *LibraryView {
	searchInput := textinput.New()
	searchInput.Placeholder = "Search books..."
	searchInput.CharLimit = 100
	searchInput.Width = 40

	return &LibraryView{
		db:          db,
		config:      cfg,
		searchInput: searchInput,
		width:       80,
		height:      24,
	}
}

// booksLoadedMsg is sent when books are loaded from the index
type booksLoadedMsg struct {
	books []models.Book
	err   error
}

// Init implements View
func (v *LibraryView) Init() tea.Cmd {
	v.loading = true
	return v.loadBooks()
}

// Update implements View
func (v *LibraryView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Handle search mode
		if v.searchMode {
			switch msg.String() {
			case "esc":
				v.searchMode = false
				v.searchInput.Blur()
				v.searchInput.SetValue("")
				v.applyFilter()
				return v, nil
			case "enter":
				v.searchMode = false
				v.searchInput.Blur()
				return v, nil
			default:
				var cmd tea.Cmd
				v.searchInput, cmd = v.searchInput.Update(msg)
				v.applyFilter()
				return v, cmd
			}
		}

		// Normal mode key handling
		switch msg.String() {
		case "j", "down":
			v.moveCursor(1)
		case "k", "up":
			v.moveCursor(-1)
		case "g", "home":
			v.cursor = 0
			v.offset = 0
		case "G", "end":
			v.cursor = len(v.books) - 1
			v.updateOffset()
		case "ctrl+d", "pgdown":
			v.moveCursor(v.visibleLines() / 2)
		case "ctrl+u", "pgup":
			v.moveCursor(-v.visibleLines() / 2)
		case "/":
			v.searchMode = true
			v.searchInput.Focus()
			return v, textinput.Blink
		case "enter":
			if len(v.books) > 0 && v.cursor < len(v.books) {
				book := v.books[v.cursor]
				address := filepath.Join(v.config.LibraryDir, book.RelPath)
				title := book.DisplayTitle()
				return v, func() tea.Msg {
					return OpenBookMsg{Address: address, Title: title}
				}
			}
		case "i":
			if len(v.books) > 0 && v.cursor < len(v.books) {
				book := v.books[v.cursor]
				return v, func() tea.Msg {
					return ShowBookDetailsMsg{Book: book}
				}
			}
		case "R":
			v.recentlyReadMode = !v.recentlyReadMode
			v.cursor = 0
			v.offset = 0
			v.applyFilter()
		case "c":
			return v, SwitchTo(ViewRecipes)
		case "r":
			return v, v.loadBooks()
		}

	case booksLoadedMsg:
		v.loading = false
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		v.all = msg.books
		v.err = nil
		v.applyFilter()
		return v, nil
	}

	return v, nil
}

// View implements View
func (v *LibraryView) View() string {
	var b strings.Builder

	b.WriteString(v.renderHeader() + "\n")

	if v.searchMode {
		searchBar := styles.InputFieldFocused.Render(v.searchInput.View())
		b.WriteString(searchBar + "\n")
	}

	if v.loading {
		b.WriteString(v.centered(styles.MutedText.Render("Loading library...")))
		return b.String()
	}

	if v.err != nil {
		b.WriteString(v.centered(styles.ErrorStyle.Render("Error: " + v.err.Error())))
		return b.String()
	}

	if len(v.books) == 0 {
		empty := "No books found. Run bayleaf index to scan your library."
		if v.searchInput.Value() != "" {
			empty = "No books match the search"
		}
		b.WriteString(v.centered(styles.MutedText.Render(empty)))
		return b.String()
	}

	visibleLines := v.visibleLines()
	for i := v.offset; i < min(v.offset+visibleLines, len(v.books)); i++ {
		b.WriteString(v.renderBookLine(v.books[i], i == v.cursor) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(v.renderFooter())

	return b.String()
}

// SetSize implements View
func (v *LibraryView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.searchInput.Width = min(40, width-10)
}

// CapturingInput reports whether the search prompt owns the keyboard
func (v *LibraryView) CapturingInput() bool {
	return v.searchMode
}

// applyFilter recomputes the visible book list from the loaded set.
func (v *LibraryView) applyFilter() {
	books := v.all

	if v.recentlyReadMode {
		recent := v.config.RecentlyReadAddresses()
		byAddress := make(map[string]models.Book, len(books))
		for _, b := range books {
			byAddress[filepath.Join(v.config.LibraryDir, b.RelPath)] = b
		}
		ordered := make([]models.Book, 0, len(recent))
		for _, addr := range recent {
			if b, ok := byAddress[addr]; ok {
				ordered = append(ordered, b)
			}
		}
		books = ordered
	}

	if q := strings.TrimSpace(v.searchInput.Value()); q != "" {
		q = strings.ToLower(q)
		filtered := make([]models.Book, 0, len(books))
		for _, b := range books {
			if strings.Contains(strings.ToLower(b.DisplayTitle()), q) ||
				strings.Contains(strings.ToLower(b.Author), q) {
				filtered = append(filtered, b)
			}
		}
		books = filtered
	}

	v.books = books
	if v.cursor >= len(v.books) {
		v.cursor = max(0, len(v.books)-1)
	}
	v.updateOffset()
}

// renderHeader renders the header bar
func (v *LibraryView) renderHeader() string {
	titleText := " Library "
	if v.recentlyReadMode {
		titleText = " Recently Read "
	}
	title := styles.TitleBar.Render(titleText)

	searchInfo := ""
	if v.searchInput.Value() != "" {
		searchInfo = styles.SecondaryText.Render(fmt.Sprintf(" [Search: %s]", v.searchInput.Value()))
	}

	countInfo := styles.Help.Render(fmt.Sprintf(" %d books ", len(v.books)))

	left := title + searchInfo
	gap := v.width - lipgloss.Width(left) - lipgloss.Width(countInfo)
	if gap < 0 {
		gap = 0
	}

	return left + strings.Repeat(" ", gap) + countInfo
}

// renderBookLine renders a single book line
func (v *LibraryView) renderBookLine(book models.Book, selected bool) string {
	line := book.DisplayTitle()
	if book.Author != "" {
		line += " - " + book.Author
	}

	maxWidth := v.width - 6
	if maxWidth > 3 && len(line) > maxWidth {
		line = line[:maxWidth-3] + "..."
	}

	if selected {
		return styles.ListItemSelected.Width(v.width).Render("▸ " + line)
	}
	return styles.ListItem.Render("  " + line)
}

// renderFooter renders the footer help
func (v *LibraryView) renderFooter() string {
	help := []string{
		styles.HelpKey.Render("j/k") + styles.Help.Render(" nav"),
		styles.HelpKey.Render("enter") + styles.Help.Render(" open"),
		styles.HelpKey.Render("i") + styles.Help.Render(" info"),
		styles.HelpKey.Render("/") + styles.Help.Render(" search"),
		styles.HelpKey.Render("R") + styles.Help.Render(" recent"),
		styles.HelpKey.Render("c") + styles.Help.Render(" recipes"),
		styles.HelpKey.Render("q") + styles.Help.Render(" quit"),
	}
	return strings.Join(help, "  ")
}

// loadBooks fetches books from the local index
func (v *LibraryView) loadBooks() tea.Cmd {
	return func() tea.Msg {
		books, err := v.db.Books(context.Background())
		return booksLoadedMsg{books: books, err: err}
	}
}

// centered places content in the middle of the remaining space
func (v *LibraryView) centered(content string) string {
	return lipgloss.Place(
		v.width,
		v.height-4,
		lipgloss.Center,
		lipgloss.Center,
		content,
	)
}

// moveCursor moves the cursor by delta
func (v *LibraryView) moveCursor(delta int) {
	v.cursor += delta
	if v.cursor >= len(v.books) {
		v.cursor = len(v.books) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	v.updateOffset()
}

// updateOffset ensures the cursor is visible
func (v *LibraryView) updateOffset() {
	visibleLines := v.visibleLines()
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+visibleLines {
		v.offset = v.cursor - visibleLines + 1
	}
}

// visibleLines returns the number of visible book lines
func (v *LibraryView) visibleLines() int {
	lines := v.height - 5
	if v.searchMode {
		lines--
	}
	if lines < 1 {
		lines = 1
	}
	return lines
}

// Helper functions
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
