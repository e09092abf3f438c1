package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the application
type KeyMap struct {
	// Navigation
	Back      key.Binding
	Action    key.Binding
	Animation key.Binding

	// Actions
	Refresh key.Binding
	Filter  key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "home"),
		),
		Action: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "action"),
		),
		Animation: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "animation"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// HomeHelp lists the bindings shown in the home footer
func (k KeyMap) HomeHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Action, k.Animation, k.Help, k.Quit}
}

// GenreHelp lists the bindings shown in the genre footer
func (k KeyMap) GenreHelp() []key.Binding {
	return []key.Binding{k.Filter, k.Back, k.Help, k.Quit}
}
