// Package tui is the interactive search screen. It drives an app.Controller
// and renders its state with bubbletea.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/hts-derivatives/internal/app"
	"github.com/Veraticus/hts-derivatives/internal/cli"
	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/model"
	"github.com/Veraticus/hts-derivatives/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// State represents the current screen.
type State int

// Screens.
const (
	StateSearch State = iota
	StatePasscode
	StateHelp
)

func (s State) String() string {
	switch s {
	case StatePasscode:
		return "passcode"
	case StateHelp:
		return "help"
	default:
		return "search"
	}
}

// Model is the bubbletea model for the search screen.
type Model struct {
	ctx      context.Context
	ctrl     *app.Controller
	md       *cli.MarkdownRenderer
	help     help.Model
	keys     KeyMap
	theme    themes.Theme
	notice   string
	passErr  string
	spinner  spinner.Model
	input    textinput.Model
	passcode textinput.Model
	state    State
	width    int
	height   int

	searching   bool
	scanning    bool
	showDetails bool
	quitting    bool
}

// NewModel creates the search screen for ctrl.
func NewModel(ctx context.Context, ctrl *app.Controller, opts ...Option) Model {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newModel(ctx, ctrl, cfg)
}

func newModel(ctx context.Context, ctrl *app.Controller, cfg Config) Model {
	input := textinput.New()
	input.Prompt = cli.SearchIcon + " "
	input.Placeholder = "Enter HTS code (e.g. 7604.10)"
	input.CharLimit = 32
	input.Focus()

	pass := textinput.New()
	pass.Prompt = cli.LockIcon + " "
	pass.Placeholder = "Passcode"
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'
	pass.CharLimit = 64

	theme := themes.GetTheme(string(ctrl.Snapshot().Theme))

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		input:    input,
		passcode: pass,
		theme:    theme,
		width:    cfg.Width,
		height:   cfg.Height,
	}
	m.help.Width = cfg.Width
	m.md = cli.NewMarkdownRenderer(theme.Dark, m.contentWidth())
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.md = cli.NewMarkdownRenderer(m.theme.Dark, m.contentWidth())
		return m, nil

	case spinner.TickMsg:
		if !m.searching && !m.scanning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case searchDoneMsg:
		m.searching = false
		m.notice = m.searchNotice(msg.err)
		return m, nil

	case scanDoneMsg:
		m.scanning = false
		if msg.err != nil {
			m.notice = common.UserMessage(msg.err)
		} else {
			m.notice = fmt.Sprintf("Found %d headings in the reference document", msg.count)
		}
		return m, nil

	case providerSwitchedMsg:
		if msg.err != nil {
			m.notice = common.UserMessage(msg.err)
		} else {
			m.notice = "Provider: " + msg.name
		}
		return m, nil

	case themeToggledMsg:
		m.theme = themes.GetTheme(msg.theme)
		m.md = cli.NewMarkdownRenderer(m.theme.Dark, m.contentWidth())
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StatePasscode:
			return m.updatePasscode(msg)
		case StateHelp:
			return m.updateHelp(msg)
		default:
			return m.updateSearch(msg)
		}
	}

	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit), key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Search):
		return m.startSearch()

	case key.Matches(msg, m.keys.ToggleMode):
		m.ctrl.ToggleSearchMode()
		m.notice = ""
		return m, nil

	case key.Matches(msg, m.keys.Retry):
		if m.searching {
			return m, nil
		}
		if m.ctrl.Snapshot().Query == "" {
			m.notice = "Nothing to retry yet"
			return m, nil
		}
		m.searching = true
		m.notice = ""
		return m, tea.Batch(m.spinner.Tick, retryCmd(m.ctx, m.ctrl))

	case key.Matches(msg, m.keys.Clear):
		m.ctrl.ClearError()
		m.notice = ""
		return m, nil

	case key.Matches(msg, m.keys.Provider):
		return m, nextProviderCmd(m.ctx, m.ctrl)

	case key.Matches(msg, m.keys.Theme):
		return m, toggleThemeCmd(m.ctx, m.ctrl)

	case key.Matches(msg, m.keys.Admin):
		if m.ctrl.Snapshot().Authenticated {
			m.ctrl.Lock()
			m.notice = "Admin mode locked"
			return m, nil
		}
		m.state = StatePasscode
		m.passErr = ""
		m.passcode.Reset()
		m.input.Blur()
		return m, m.passcode.Focus()

	case key.Matches(msg, m.keys.Scan):
		if !m.ctrl.Snapshot().Authenticated {
			m.notice = "Admin login required to scan headings (press a)"
			return m, nil
		}
		if m.scanning {
			return m, nil
		}
		m.scanning = true
		m.notice = "Scanning reference document for headings..."
		return m, tea.Batch(m.spinner.Tick, scanCmd(m.ctx, m.ctrl))

	case key.Matches(msg, m.keys.Details):
		m.showDetails = !m.showDetails
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.state = StateHelp
		m.help.ShowAll = true
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != model.NormalizeQuery(v) {
		m.input.SetValue(model.NormalizeQuery(v))
	}
	return m, cmd
}

func (m Model) startSearch() (tea.Model, tea.Cmd) {
	if m.searching {
		return m, nil
	}
	code := m.input.Value()
	if code == "" {
		return m, nil
	}
	if !m.ctrl.Ready() {
		m.notice = m.notReadyNotice()
		return m, nil
	}
	m.searching = true
	m.notice = ""
	return m, tea.Batch(m.spinner.Tick, searchCmd(m.ctx, m.ctrl, code))
}

// searchNotice maps errors the controller does not record in its error slot.
func (m Model) searchNotice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, common.ErrNotReady):
		return m.notReadyNotice()
	case errors.Is(err, common.ErrBusy):
		return "A search is already running"
	case errors.Is(err, common.ErrNoQuery):
		return "Nothing to retry yet"
	default:
		return ""
	}
}

func (m Model) notReadyNotice() string {
	if m.ctrl.Snapshot().SearchMode == app.ModeLookup {
		return "Load a reference document first"
	}
	return "Load a reference document or add manual entries first"
}

func (m Model) updatePasscode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEsc:
		return m.leavePasscode(), nil
	case tea.KeyEnter:
		if err := m.ctrl.Login(m.passcode.Value()); err != nil {
			m.passErr = "Incorrect passcode"
			m.passcode.Reset()
			return m, nil
		}
		m = m.leavePasscode()
		m.notice = "Admin mode unlocked"
		return m, nil
	}

	var cmd tea.Cmd
	m.passcode, cmd = m.passcode.Update(msg)
	return m, cmd
}

func (m Model) leavePasscode() Model {
	m.state = StateSearch
	m.passErr = ""
	m.passcode.Reset()
	m.passcode.Blur()
	m.input.Focus()
	return m
}

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		m.quitting = true
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Quit) {
		m.state = StateSearch
		m.help.ShowAll = false
	}
	return m, nil
}

func (m Model) contentWidth() int {
	if m.width <= 4 {
		return 76
	}
	return m.width - 4
}
