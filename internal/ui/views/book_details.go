package views

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hollyoak/bayleaf/internal/config"
	"github.com/hollyoak/bayleaf/internal/index"
	"github.com/hollyoak/bayleaf/internal/ui/styles"
	"github.com/hollyoak/bayleaf/pkg/models"
)

// BookDetailsView displays detailed book information
type BookDetailsView struct {
	db     *index.DB
	config *config.Config

	// Book being displayed
	book *models.Book

	// Recipe count (loaded async)
	recipeCount    int
	hasRecipeCount bool

	// Dimensions
	width  int
	height int
}

// NewBookDetailsView creates a new book details view
func NewBookDetailsView(db *index.DB, cfg *config.Config) *BookDetailsView {
	return &BookDetailsView{
		db:     db,
		config: cfg,
		width:  80,
		height: 24,
	}
}

// SetBook sets the book to display
func (v *BookDetailsView) SetBook(book models.Book) {
	v.book = &book
	v.recipeCount = 0
	v.hasRecipeCount = false
}

// recipeCountMsg is sent when the recipe count is loaded
type recipeCountMsg struct {
	bookID int64
	count  int
	err    error
}

// Init implements View
func (v *BookDetailsView) Init() tea.Cmd {
	if v.book == nil {
		return nil
	}
	bookID := v.book.ID
	db := v.db
	return func() tea.Msg {
		count, err := db.RecipeCount(context.Background(), bookID)
		return recipeCountMsg{bookID: bookID, count: count, err: err}
	}
}

// Update implements View
func (v *BookDetailsView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q", "i":
			return v, SwitchTo(ViewLibrary)
		case "enter":
			if v.book != nil {
				address := filepath.Join(v.config.LibraryDir, v.book.RelPath)
				title := v.book.DisplayTitle()
				return v, func() tea.Msg {
					return OpenBookMsg{Address: address, Title: title}
				}
			}
		}

	case recipeCountMsg:
		if v.book != nil && msg.bookID == v.book.ID && msg.err == nil {
			v.recipeCount = msg.count
			v.hasRecipeCount = true
		}
	}

	return v, nil
}

// View implements View
func (v *BookDetailsView) View() string {
	if v.book == nil {
		return ""
	}

	author := v.book.Author
	if author == "" {
		author = "Unknown author"
	}

	recipes := "…"
	if v.hasRecipeCount {
		recipes = fmt.Sprintf("%d", v.recipeCount)
	}

	body := styles.DialogTitle.Render(v.book.DisplayTitle()) + "\n" +
		styles.BookAuthor.Render("by "+author) + "\n\n" +
		styles.MutedText.Render("File:     ") + v.book.RelPath + "\n" +
		styles.MutedText.Render("Format:   ") + v.book.FileType + "\n" +
		styles.MutedText.Render("Size:     ") + formatSize(v.book.FileSize) + "\n" +
		styles.MutedText.Render("Modified: ") + time.Unix(v.book.ModifiedAt, 0).Format("2006-01-02") + "\n" +
		styles.MutedText.Render("Recipes:  ") + recipes + "\n\n" +
		styles.Help.Render("Press ") +
		styles.HelpKey.Render("enter") +
		styles.Help.Render(" to read, ") +
		styles.HelpKey.Render("esc") +
		styles.Help.Render(" to go back")

	dialog := styles.Dialog.Width(min(60, v.width-4)).Render(body)

	return lipgloss.Place(
		v.width,
		v.height,
		lipgloss.Center,
		lipgloss.Center,
		dialog,
	)
}

// SetSize implements View
func (v *BookDetailsView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
