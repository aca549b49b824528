package views

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hollyoak/bayleaf/pkg/models"
)

// ViewType represents different screens in the application
type ViewType int

const (
	ViewLibrary ViewType = iota
	ViewReader
	ViewBookDetails
	ViewRecipes
)

// String returns the name of the view
func (v ViewType) String() string {
	switch v {
	case ViewLibrary:
		return "Library"
	case ViewReader:
		return "Reader"
	case ViewBookDetails:
		return "Book Details"
	case ViewRecipes:
		return "Recipe Search"
	default:
		return "Unknown"
	}
}

// View is the interface that all views must implement
type View interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (View, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// Message types for inter-view communication

// OpenBookMsg is sent when a book is selected to read
type OpenBookMsg struct {
	Address string
	Title   string
}

// ShowBookDetailsMsg requests the details screen for a book
type ShowBookDetailsMsg struct {
	Book models.Book
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Err error
}

// ClearErrorMsg clears the current error
type ClearErrorMsg struct{}

// SwitchViewMsg requests a view switch
type SwitchViewMsg struct {
	View ViewType
}

// SendError creates an error message command
func SendError(err error) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Err: err}
	}
}

// ClearError creates a command to clear errors
func ClearError() tea.Cmd {
	return func() tea.Msg {
		return ClearErrorMsg{}
	}
}

// SwitchTo creates a command to switch views
func SwitchTo(view ViewType) tea.Cmd {
	return func() tea.Msg {
		return SwitchViewMsg{View: view}
	}
}
