package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hollyoak/bayleaf/internal/index"
	"github.com/hollyoak/bayleaf/internal/ui/styles"
	"github.com/hollyoak/bayleaf/pkg/models"
)

const searchLimit = 50

// RecipesView searches recipes extracted from the library's cookbooks
type RecipesView struct {
	db *index.DB

	searchInput textinput.Model
	hits        []models.RecipeHit
	cursor      int
	offset      int
	searched    bool
	err         error

	// Detail mode shows the selected recipe in full
	showDetail   bool
	detailOffset int

	width  int
	height int
}

// NewRecipesView creates a new recipe search view
func NewRecipesView(db *index.DB) *RecipesView {
	searchInput := textinput.New()
	searchInput.Placeholder = "Search recipes (e.g. lemon chicken)..."
	searchInput.CharLimit = 100
	searchInput.Width = 50

	return &RecipesView{
		db:          db,
		searchInput: searchInput,
		width:       80,
		height:      24,
	}
}

// recipesFoundMsg is sent when a search completes
type recipesFoundMsg struct {
	hits []models.RecipeHit
	err  error
}

// Init implements View
func (v *RecipesView) Init() tea.Cmd {
	v.searchInput.Focus()
	return textinput.Blink
}

// Update implements View
func (v *RecipesView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if v.showDetail {
			switch msg.String() {
			case "esc", "q", "enter":
				v.showDetail = false
				v.detailOffset = 0
			case "j", "down":
				v.detailOffset++
			case "k", "up":
				if v.detailOffset > 0 {
					v.detailOffset--
				}
			}
			return v, nil
		}

		if v.searchInput.Focused() {
			switch msg.String() {
			case "esc":
				v.searchInput.Blur()
				return v, nil
			case "enter":
				v.searchInput.Blur()
				return v, v.search()
			default:
				var cmd tea.Cmd
				v.searchInput, cmd = v.searchInput.Update(msg)
				return v, cmd
			}
		}

		switch msg.String() {
		case "j", "down":
			v.moveCursor(1)
		case "k", "up":
			v.moveCursor(-1)
		case "g", "home":
			v.cursor = 0
			v.offset = 0
		case "G", "end":
			v.cursor = len(v.hits) - 1
			v.updateOffset()
		case "/":
			v.searchInput.Focus()
			return v, textinput.Blink
		case "enter":
			if len(v.hits) > 0 && v.cursor < len(v.hits) {
				v.showDetail = true
				v.detailOffset = 0
			}
		}

	case recipesFoundMsg:
		v.searched = true
		v.err = msg.err
		v.hits = msg.hits
		v.cursor = 0
		v.offset = 0
		return v, nil
	}

	return v, nil
}

// View implements View
func (v *RecipesView) View() string {
	if v.showDetail && v.cursor < len(v.hits) {
		return v.renderDetail(v.hits[v.cursor])
	}

	var b strings.Builder

	title := styles.TitleBar.Render(" Recipe Search ")
	count := ""
	if v.searched && v.err == nil {
		count = styles.Help.Render(fmt.Sprintf(" %d recipes ", len(v.hits)))
	}
	gap := v.width - lipgloss.Width(title) - lipgloss.Width(count)
	if gap < 0 {
		gap = 0
	}
	b.WriteString(title + strings.Repeat(" ", gap) + count + "\n")

	inputStyle := styles.InputField
	if v.searchInput.Focused() {
		inputStyle = styles.InputFieldFocused
	}
	b.WriteString(inputStyle.Render(v.searchInput.View()) + "\n")

	switch {
	case v.err != nil:
		b.WriteString(styles.ErrorStyle.Render("Search failed: " + v.err.Error()))
	case !v.searched:
		b.WriteString(styles.MutedText.Render("  Type a query and press enter."))
	case len(v.hits) == 0:
		b.WriteString(styles.MutedText.Render("  No recipes match. Run bayleaf index --recipes first?"))
	default:
		visible := v.visibleLines()
		for i := v.offset; i < min(v.offset+visible, len(v.hits)); i++ {
			b.WriteString(v.renderHitLine(v.hits[i], i == v.cursor) + "\n")
		}
	}

	b.WriteString("\n")
	help := []string{
		styles.HelpKey.Render("/") + styles.Help.Render(" search"),
		styles.HelpKey.Render("j/k") + styles.Help.Render(" nav"),
		styles.HelpKey.Render("enter") + styles.Help.Render(" view"),
		styles.HelpKey.Render("esc") + styles.Help.Render(" library"),
	}
	b.WriteString(strings.Join(help, "  "))

	return b.String()
}

// SetSize implements View
func (v *RecipesView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.searchInput.Width = min(50, width-10)
}

// CapturingInput reports whether the search prompt owns the keyboard
func (v *RecipesView) CapturingInput() bool {
	return v.searchInput.Focused()
}

func (v *RecipesView) renderHitLine(hit models.RecipeHit, selected bool) string {
	line := hit.Title + "  " + styles.RecipeSnippet.Render(hit.BookTitle)
	if hit.Snippet != "" {
		line += "  " + styles.RecipeSnippet.Render(hit.Snippet)
	}

	if selected {
		return styles.ListItemSelected.Width(v.width).Render("▸ " + hit.Title + "  (" + hit.BookTitle + ")")
	}
	return styles.ListItem.Render("  " + line)
}

// renderDetail shows the full recipe text
func (v *RecipesView) renderDetail(hit models.RecipeHit) string {
	var sections []string
	sections = append(sections,
		styles.DialogTitle.Render(hit.Title),
		styles.BookAuthor.Render("from "+hit.BookTitle),
		"")

	if hit.IngredientsText != "" {
		sections = append(sections, styles.RecipeTitle.Render("Ingredients"), "")
		sections = append(sections, strings.Split(hit.IngredientsText, "\n")...)
		sections = append(sections, "")
	}
	sections = append(sections, styles.RecipeTitle.Render("Method"), "")
	sections = append(sections, strings.Split(hit.MethodText, "\n")...)

	// Rewrap and window the text to the terminal
	var lines []string
	wrapWidth := v.width - 4
	if wrapWidth < 20 {
		wrapWidth = 20
	}
	wrap := lipgloss.NewStyle().Width(wrapWidth)
	for _, s := range sections {
		lines = append(lines, strings.Split(wrap.Render(s), "\n")...)
	}

	visible := v.height - 2
	if visible < 1 {
		visible = 1
	}
	maxOffset := max(0, len(lines)-visible)
	if v.detailOffset > maxOffset {
		v.detailOffset = maxOffset
	}
	end := min(v.detailOffset+visible, len(lines))
	body := strings.Join(lines[v.detailOffset:end], "\n")

	footer := styles.Help.Render("j/k scroll  esc back")
	return body + "\n" + footer
}

// search runs the full-text query against the index
func (v *RecipesView) search() tea.Cmd {
	query := strings.TrimSpace(v.searchInput.Value())
	if query == "" {
		return nil
	}
	return func() tea.Msg {
		hits, err := v.db.SearchRecipes(context.Background(), query, searchLimit)
		return recipesFoundMsg{hits: hits, err: err}
	}
}

func (v *RecipesView) moveCursor(delta int) {
	v.cursor += delta
	if v.cursor >= len(v.hits) {
		v.cursor = len(v.hits) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	v.updateOffset()
}

func (v *RecipesView) updateOffset() {
	visible := v.visibleLines()
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+visible {
		v.offset = v.cursor - visible + 1
	}
}

func (v *RecipesView) visibleLines() int {
	lines := v.height - 6
	if lines < 1 {
		lines = 1
	}
	return lines
}
