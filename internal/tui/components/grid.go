package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/tui/styles"
)

const (
	// DefaultColumns is used when the grid is given a non-positive column count
	DefaultColumns = 4

	// Filter line plus the scroll indicator
	ChromeLines = 2
)

// Grid shows movie titles in fixed columns with an optional fuzzy filter
type Grid struct {
	movies []domain.Movie

	columns int
	cursor  int
	offset  int // first visible row

	width  int
	height int

	filterActive bool
	filterInput  textinput.Model
	filteredIdx  []int // indices into movies, nil when unfiltered
}

// NewGrid creates an empty grid
func NewGrid(columns int) Grid {
	if columns <= 0 {
		columns = DefaultColumns
	}
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	return Grid{columns: columns, filterInput: ti}
}

// SetMovies replaces the grid content, keeping any active filter
func (g *Grid) SetMovies(movies []domain.Movie) {
	g.movies = movies
	if g.filterActive {
		g.applyFilter()
		return
	}
	g.filteredIdx = nil
	g.SetCursor(g.cursor)
}

// Reset drops content and filter state
func (g *Grid) Reset() {
	g.movies = nil
	g.cursor = 0
	g.offset = 0
	g.clearFilter()
}

// SetSize sets the area the grid renders into
func (g *Grid) SetSize(width, height int) {
	g.width = width
	g.height = height
	g.ensureVisible()
}

// Len returns the number of visible movies after filtering
func (g Grid) Len() int {
	if g.filteredIdx != nil {
		return len(g.filteredIdx)
	}
	return len(g.movies)
}

// Cursor returns the cursor position among visible movies
func (g Grid) Cursor() int {
	return g.cursor
}

// SetCursor moves the cursor, clamped to the visible movies
func (g *Grid) SetCursor(pos int) {
	last := g.Len() - 1
	if last < 0 {
		g.cursor = 0
		g.offset = 0
		return
	}
	g.cursor = max(0, min(pos, last))
	g.ensureVisible()
}

// Selected returns the movie under the cursor
func (g Grid) Selected() (domain.Movie, bool) {
	if g.Len() == 0 {
		return domain.Movie{}, false
	}
	return g.movies[g.mapIndex(g.cursor)], true
}

// ToggleFilter opens the filter input
func (g *Grid) ToggleFilter() {
	g.filterActive = true
	g.filterInput.Focus()
}

// IsFiltering reports whether a filter is applied
func (g Grid) IsFiltering() bool {
	return g.filterActive
}

// IsFilterTyping reports whether keystrokes go to the filter input
func (g Grid) IsFilterTyping() bool {
	return g.filterActive && g.filterInput.Focused()
}

// FilterQuery returns the current filter text
func (g Grid) FilterQuery() string {
	return g.filterInput.Value()
}

// ClearFilter removes the filter and shows every movie
func (g *Grid) ClearFilter() {
	g.clearFilter()
}

func (g *Grid) clearFilter() {
	g.filterActive = false
	g.filteredIdx = nil
	g.filterInput.SetValue("")
	g.filterInput.Blur()
	g.SetCursor(g.cursor)
}

func (g *Grid) applyFilter() {
	query := g.filterInput.Value()
	if query == "" {
		g.filteredIdx = nil
		g.SetCursor(0)
		return
	}

	lowerTitles := make([]string, len(g.movies))
	for i, m := range g.movies {
		lowerTitles[i] = strings.ToLower(m.Title)
	}

	matches := fuzzy.Find(strings.ToLower(query), lowerTitles)
	g.filteredIdx = make([]int, len(matches))
	for i, match := range matches {
		g.filteredIdx[i] = match.Index
	}

	g.cursor = 0
	g.offset = 0
}

func (g Grid) mapIndex(i int) int {
	if g.filteredIdx != nil && i < len(g.filteredIdx) {
		return g.filteredIdx[i]
	}
	return i
}

func (g Grid) visibleRows() int {
	rows := g.height - ChromeLines
	if rows < 1 {
		return 1
	}
	return rows
}

func (g *Grid) ensureVisible() {
	row := g.cursor / g.columns
	rows := g.visibleRows()
	if row < g.offset {
		g.offset = row
	}
	if row >= g.offset+rows {
		g.offset = row - rows + 1
	}
}

// Update handles navigation and filter input
func (g Grid) Update(msg tea.Msg) (Grid, tea.Cmd) {
	keyMsg, isKey := msg.(tea.KeyMsg)

	if g.IsFilterTyping() {
		if isKey {
			switch keyMsg.String() {
			case "esc":
				g.clearFilter()
				return g, nil
			case "enter":
				g.filterInput.Blur()
				return g, nil
			case "backspace":
				if g.filterInput.Value() == "" {
					g.clearFilter()
					return g, nil
				}
			}
		}
		var cmd tea.Cmd
		g.filterInput, cmd = g.filterInput.Update(msg)
		g.applyFilter()
		return g, cmd
	}

	if !isKey {
		return g, nil
	}

	switch keyMsg.String() {
	case "left", "h":
		g.SetCursor(g.cursor - 1)
	case "right", "l":
		g.SetCursor(g.cursor + 1)
	case "up", "k":
		g.SetCursor(g.cursor - g.columns)
	case "down", "j":
		g.SetCursor(g.cursor + g.columns)
	case "g", "home":
		g.SetCursor(0)
	case "G", "end":
		g.SetCursor(g.Len() - 1)
	case "/":
		g.ToggleFilter()
	case "esc":
		if g.filterActive {
			g.clearFilter()
		}
	}
	return g, nil
}

// View renders the visible rows
func (g Grid) View() string {
	var b strings.Builder

	if g.filterActive {
		b.WriteString(g.filterInput.View())
	}
	b.WriteString("\n")

	count := g.Len()
	if count == 0 {
		if g.filterActive {
			b.WriteString(styles.DimStyle.Render("no matches"))
		} else {
			b.WriteString(styles.DimStyle.Render("no movies"))
		}
		return b.String()
	}

	cellWidth := 20
	if g.width > 0 {
		cellWidth = max(8, g.width/g.columns)
	}

	totalRows := (count + g.columns - 1) / g.columns
	end := min(totalRows, g.offset+g.visibleRows())
	for row := g.offset; row < end; row++ {
		cells := make([]string, 0, g.columns)
		for col := 0; col < g.columns; col++ {
			i := row*g.columns + col
			if i >= count {
				break
			}
			style := styles.NormalItemStyle
			if i == g.cursor {
				style = styles.SelectedItemStyle
			}
			title := Truncate(g.movies[g.mapIndex(i)].Title, cellWidth-2)
			cells = append(cells, style.Width(cellWidth).Render(title))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}

	if end < totalRows {
		b.WriteString(styles.DimStyle.Render("↓ more"))
	}
	return b.String()
}

// Truncate shortens s to width runes, marking the cut with an ellipsis
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
