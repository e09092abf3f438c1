package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/outcome"
	"github.com/mmcdole/reel/internal/tui/components"
	"github.com/mmcdole/reel/internal/tui/styles"
	"github.com/mmcdole/reel/internal/uistate"
)

const titleSeparator = " · "

// View renders the current screen
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch {
	case m.ShowHelp:
		b.WriteString(m.renderHelp())
	case m.Screen == ScreenGenre:
		b.WriteString(m.renderGenre())
	default:
		b.WriteString(m.renderHome())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	header := styles.TitleStyle.Render("reel")
	if m.HomeState.IsRefreshing {
		header += " " + m.spinner.View() + styles.AccentStyle.Render(" refreshing")
	}
	return header
}

func (m Model) renderHome() string {
	var b strings.Builder
	for _, c := range domain.HomeCategories {
		section := m.HomeState.Section(c)
		b.WriteString(styles.SubtitleStyle.Render(c.Title()))
		if section.IsSuccess() && len(section.Data) > 0 {
			b.WriteString(" " + styles.SuccessStyle.Render(fmt.Sprintf("%d", len(section.Data))))
		}
		b.WriteString("\n")
		b.WriteString(m.renderSection(section))
		b.WriteString("\n\n")
	}
	return b.String()
}

// renderSection draws one home row: spinner, inline error or titles
func (m Model) renderSection(section uistate.Section) string {
	return outcome.Fold(section,
		func() string {
			return m.spinner.View() + styles.DimStyle.Render(" loading")
		},
		func(movies []domain.Movie) string {
			if len(movies) == 0 {
				return styles.DimStyle.Render("nothing cached yet")
			}
			titles := make([]string, len(movies))
			for i, mv := range movies {
				titles[i] = mv.Title
			}
			line := strings.Join(titles, titleSeparator)
			if m.Width > 0 {
				line = components.Truncate(line, m.Width)
			}
			return line
		},
		func(err error) string {
			return styles.ErrorStyle.Render("couldn't load: " + err.Error())
		},
	)
}

func (m Model) renderGenre() string {
	var b strings.Builder
	b.WriteString(styles.HighlightStyle.Render(m.GenreFor.Title()))
	b.WriteString("\n")

	section := outcome.Loading[[]domain.Movie]()
	if m.showsCurrentGenre() {
		section = m.GenreState.Movies
	}

	b.WriteString(outcome.Fold(section,
		func() string {
			return m.spinner.View() + styles.DimStyle.Render(" loading")
		},
		func([]domain.Movie) string {
			border := styles.ActiveBorder
			if m.Grid.IsFilterTyping() {
				border = styles.InactiveBorder
			}
			view := border.Render(m.Grid.View())
			if sel, ok := m.Grid.Selected(); ok {
				if poster := sel.PosterURLWith(m.opts.ImageBaseURL); poster != "" {
					view += "\n" + styles.DimStyle.Render(poster)
				}
			}
			return view
		},
		func(err error) string {
			return styles.ErrorStyle.Render("couldn't load: " + err.Error())
		},
	))
	return b.String()
}

func (m Model) renderFooter() string {
	if m.StatusMsg != "" {
		if m.StatusIsErr {
			return styles.StatusErrorStyle.Render(m.StatusMsg)
		}
		return styles.StatusBarStyle.Render(m.StatusMsg)
	}

	bindings := m.keys.HomeHelp()
	if m.Screen == ScreenGenre {
		bindings = m.keys.GenreHelp()
	}
	return renderBindings(bindings, "  ")
}

func (m Model) renderHelp() string {
	groups := []struct {
		title    string
		bindings []key.Binding
	}{
		{"Home", m.keys.HomeHelp()},
		{"Genre", append(m.keys.GenreHelp(), m.keys.Action, m.keys.Animation)},
	}

	var b strings.Builder
	for _, g := range groups {
		b.WriteString(styles.TitleStyle.Render(g.title))
		b.WriteString("\n")
		b.WriteString(renderBindings(g.bindings, "\n"))
		b.WriteString("\n\n")
	}
	b.WriteString(styles.DimStyle.Render("grid: arrows or hjkl to move, g/G for first/last"))
	return b.String()
}

func renderBindings(bindings []key.Binding, sep string) string {
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, fmt.Sprintf("%s %s", styles.HelpKeyStyle.Render(h.Key), styles.HelpDescStyle.Render(h.Desc)))
	}
	return strings.Join(parts, sep)
}
