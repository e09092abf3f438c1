package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/uistate"
)

// HomeCell is the part of uistate.Home the TUI drives
type HomeCell interface {
	Watch(ctx context.Context) <-chan uistate.HomeState
	Refresh()
	AcknowledgeError()
}

// GenreCell is the part of uistate.Genre the TUI drives
type GenreCell interface {
	Watch(ctx context.Context) <-chan uistate.GenreState
	FetchMovies(c domain.Category)
}

// WatchHomeCmd subscribes to home snapshots. Each HomeStateMsg carries the
// command that reads the next one.
func WatchHomeCmd(ctx context.Context, home HomeCell) tea.Cmd {
	return func() tea.Msg {
		return readHomeState(home.Watch(ctx))
	}
}

// readHomeState blocks for one snapshot and embeds the continuation command
func readHomeState(ch <-chan uistate.HomeState) tea.Msg {
	state, ok := <-ch
	if !ok {
		return ErrMsg{Err: uistate.ErrClosed, Context: "home"}
	}
	return HomeStateMsg{State: state, NextCmd: listenHomeCmd(ch)}
}

func listenHomeCmd(ch <-chan uistate.HomeState) tea.Cmd {
	return func() tea.Msg {
		return readHomeState(ch)
	}
}

// WatchGenreCmd subscribes to genre snapshots
func WatchGenreCmd(ctx context.Context, genre GenreCell) tea.Cmd {
	return func() tea.Msg {
		return readGenreState(genre.Watch(ctx))
	}
}

func readGenreState(ch <-chan uistate.GenreState) tea.Msg {
	state, ok := <-ch
	if !ok {
		return ErrMsg{Err: uistate.ErrClosed, Context: "genre"}
	}
	return GenreStateMsg{State: state, NextCmd: listenGenreCmd(ch)}
}

func listenGenreCmd(ch <-chan uistate.GenreState) tea.Cmd {
	return func() tea.Msg {
		return readGenreState(ch)
	}
}

// RefreshCmd starts a manual refresh of every home section
func RefreshCmd(home HomeCell) tea.Cmd {
	return func() tea.Msg {
		home.Refresh()
		return nil
	}
}

// FetchGenreCmd points the genre cell at c
func FetchGenreCmd(genre GenreCell, c domain.Category) tea.Cmd {
	return func() tea.Msg {
		genre.FetchMovies(c)
		return nil
	}
}

// ClearStatusCmd returns a command that clears status seq after a delay
func ClearStatusCmd(seq int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{Seq: seq}
	})
}

// AcknowledgeErrorCmd clears the home error flag once the toast has been shown
func AcknowledgeErrorCmd(home HomeCell) tea.Cmd {
	return func() tea.Msg {
		home.AcknowledgeError()
		return nil
	}
}
