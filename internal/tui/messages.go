package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/reel/internal/uistate"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// HomeStateMsg carries a new home snapshot and the command that reads the next one
type HomeStateMsg struct {
	State   uistate.HomeState
	NextCmd tea.Cmd
}

// GenreStateMsg carries a new genre snapshot and the command that reads the next one
type GenreStateMsg struct {
	State   uistate.GenreState
	NextCmd tea.Cmd
}

// ClearStatusMsg clears the status if it is still the message numbered Seq
type ClearStatusMsg struct {
	Seq int
}
