package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/outcome"
	"github.com/mmcdole/reel/internal/tui/components"
	"github.com/mmcdole/reel/internal/tui/styles"
	"github.com/mmcdole/reel/internal/uistate"
)

// Screen identifies which view is showing
type Screen int

const (
	ScreenHome Screen = iota
	ScreenGenre
)

// Vertical chrome: header line, blank line, genre title, grid border and footer
const ChromeHeight = 6

const defaultStatusTimeout = 3 * time.Second

// Options tunes presentation
type Options struct {
	GridColumns   int
	StatusTimeout time.Duration
	ImageBaseURL  string
}

// Model is the main Bubble Tea model for the application
type Model struct {
	Screen Screen

	// State cells
	ctx   context.Context
	home  HomeCell
	genre GenreCell

	opts Options
	keys KeyMap

	// Latest snapshots
	HomeState  uistate.HomeState
	GenreState uistate.GenreState
	GenreFor   domain.Category // category the genre screen shows

	// UI Components
	Grid    components.Grid
	spinner spinner.Model

	// UI state
	StatusMsg   string
	StatusIsErr bool
	statusSeq   int  // bumped per status message; older clears are ignored
	errorShown  bool // toast already raised for the current IsError
	ShowHelp    bool

	Width  int
	Height int
}

// NewModel creates a model bound to the given state cells. Subscriptions end
// when ctx is cancelled.
func NewModel(ctx context.Context, home HomeCell, genre GenreCell, opts Options) Model {
	if opts.StatusTimeout <= 0 {
		opts.StatusTimeout = defaultStatusTimeout
	}
	if opts.ImageBaseURL == "" {
		opts.ImageBaseURL = domain.DefaultImageBaseURL
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.AccentStyle

	loading := outcome.Loading[[]domain.Movie]()
	return Model{
		ctx:   ctx,
		home:  home,
		genre: genre,
		opts:  opts,
		keys:  DefaultKeyMap(),
		HomeState: uistate.HomeState{
			TopRated:  loading,
			Action:    loading,
			Animation: loading,
		},
		GenreState: uistate.GenreState{Movies: loading},
		Grid:       components.NewGrid(opts.GridColumns),
		spinner:    s,
	}
}

// Init starts the spinner and both state subscriptions
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		WatchHomeCmd(m.ctx, m.home),
		WatchGenreCmd(m.ctx, m.genre),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Grid.SetSize(max(1, msg.Width-2), max(1, msg.Height-ChromeHeight))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case HomeStateMsg:
		settled := m.HomeState.IsRefreshing && !msg.State.IsRefreshing
		m.HomeState = msg.State
		cmds := []tea.Cmd{msg.NextCmd}
		switch {
		case msg.State.IsError && (!m.errorShown || settled):
			// Acknowledge right away so the next failure sets IsError afresh
			m.errorShown = true
			cmds = append(cmds, m.setStatus("Refresh failed", true), AcknowledgeErrorCmd(m.home))
		case !msg.State.IsError:
			m.errorShown = false
		}
		return m, tea.Batch(cmds...)

	case GenreStateMsg:
		m.GenreState = msg.State
		if m.Screen == ScreenGenre && m.showsCurrentGenre() && msg.State.Movies.IsSuccess() {
			m.Grid.SetMovies(msg.State.Movies.Data)
		}
		return m, msg.NextCmd

	case ErrMsg:
		return m, m.setStatus(msg.Error(), true)

	case ClearStatusMsg:
		if msg.Seq == m.statusSeq {
			m.StatusMsg = ""
			m.StatusIsErr = false
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// The filter input owns every other key while it is focused
	if m.Screen == ScreenGenre && m.Grid.IsFilterTyping() {
		var cmd tea.Cmd
		m.Grid, cmd = m.Grid.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.ShowHelp = !m.ShowHelp
		return m, nil
	case key.Matches(msg, m.keys.Action):
		return m.openGenre(domain.CategoryAction)
	case key.Matches(msg, m.keys.Animation):
		return m.openGenre(domain.CategoryAnimation)
	}

	switch m.Screen {
	case ScreenHome:
		if key.Matches(msg, m.keys.Refresh) {
			return m, RefreshCmd(m.home)
		}
	case ScreenGenre:
		if key.Matches(msg, m.keys.Back) && !m.Grid.IsFiltering() {
			m.Screen = ScreenHome
			m.Grid.Reset()
			return m, nil
		}
		var cmd tea.Cmd
		m.Grid, cmd = m.Grid.Update(msg)
		return m, cmd
	}
	return m, nil
}

// setStatus shows a status message and schedules its clear
func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.StatusMsg = text
	m.StatusIsErr = isErr
	return ClearStatusCmd(m.statusSeq, m.opts.StatusTimeout)
}

// openGenre switches to the genre screen and points the genre cell at c
func (m Model) openGenre(c domain.Category) (tea.Model, tea.Cmd) {
	if m.Screen == ScreenGenre && m.GenreFor == c {
		return m, nil
	}
	m.Screen = ScreenGenre
	m.GenreFor = c
	m.Grid.Reset()
	m.GenreState = uistate.GenreState{Genre: c, Active: true, Movies: outcome.Loading[[]domain.Movie]()}
	return m, FetchGenreCmd(m.genre, c)
}

// showsCurrentGenre reports whether the latest genre snapshot belongs to the
// screen being shown
func (m Model) showsCurrentGenre() bool {
	return m.GenreState.Active && m.GenreState.Genre == m.GenreFor
}
