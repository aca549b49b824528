package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary    = lipgloss.Color("#5F8700") // Olive
	Secondary  = lipgloss.Color("#06B6D4") // Cyan
	Warning    = lipgloss.Color("#F59E0B") // Amber
	Error      = lipgloss.Color("#EF4444") // Red
	Muted      = lipgloss.Color("#6B7280") // Gray
	Background = lipgloss.Color("#1F2937") // Dark gray
	Foreground = lipgloss.Color("#F9FAFB") // Light gray
	Border     = lipgloss.Color("#374151") // Gray border

	// Title bar
	TitleBar = lipgloss.NewStyle().
			Foreground(Foreground).
			Background(Primary).
			Padding(0, 1).
			Bold(true)

	// Status bar at bottom
	StatusBar = lipgloss.NewStyle().
			Foreground(Muted).
			Padding(0, 1)

	// Help text
	Help = lipgloss.NewStyle().
		Foreground(Muted)

	HelpKey = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	MutedText = lipgloss.NewStyle().
			Foreground(Muted)

	SecondaryText = lipgloss.NewStyle().
			Foreground(Secondary)

	// Error message
	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true).
			Padding(0, 1)

	// Input field
	InputField = lipgloss.NewStyle().
			Foreground(Foreground).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1)

	InputFieldFocused = InputField.
				BorderForeground(Primary)

	// List styles
	ListItem = lipgloss.NewStyle().
			Foreground(Foreground).
			Padding(0, 2)

	ListItemSelected = lipgloss.NewStyle().
				Foreground(Foreground).
				Background(Primary).
				Padding(0, 2).
				Bold(true)

	// Reader styles
	ReaderHeader = lipgloss.NewStyle().
			Foreground(Foreground).
			Background(Primary).
			Padding(0, 1).
			Bold(true)

	ReaderProgress = lipgloss.NewStyle().
			Foreground(Secondary).
			Align(lipgloss.Right)

	// Dialog styles
	Dialog = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Primary).
		Padding(1, 2)

	DialogTitle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			MarginBottom(1)

	// Book info styles
	BookTitle = lipgloss.NewStyle().
			Foreground(Foreground).
			Bold(true)

	BookAuthor = lipgloss.NewStyle().
			Foreground(Secondary)

	// Recipe search styles
	RecipeTitle = lipgloss.NewStyle().
			Foreground(Foreground).
			Bold(true)

	RecipeSnippet = lipgloss.NewStyle().
			Foreground(Muted)
)
