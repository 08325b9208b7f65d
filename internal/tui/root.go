package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ViewMode represents the current view
type ViewMode int

const (
	ViewModeMain ViewMode = iota
	ViewModeHelp
)

type lineKind int

const (
	lineUser lineKind = iota
	lineResult
	lineError
	lineUsage
)

type outputLine struct {
	text string
	kind lineKind
}

// commandResultMsg carries the outcome of a backend command.
type commandResultMsg struct {
	lines []string
	err   error
}

const intro = "Welcome to Notflix. Type 'help' to see available commands."

// Model is the root Bubble Tea model
type Model struct {
	width  int
	height int
	ready  bool

	viewMode ViewMode

	api     Backend
	apiURL  string
	timeout time.Duration

	input          textinput.Model
	commandHistory []string
	historyIndex   int

	outputLines []outputLine
	viewport    viewport.Model

	// A backend command is in flight
	busy bool

	keys KeyMap
}

// NewRootModel creates the shell model. apiURL is only displayed; every
// request goes through api with the given per-command timeout.
func NewRootModel(api Backend, apiURL string, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Placeholder = "show list"
	ti.Prompt = "notflix> "
	ti.PromptStyle = InputPromptStyle
	ti.CharLimit = 0
	ti.Width = 80
	ti.Focus()

	return Model{
		viewMode:    ViewModeMain,
		api:         api,
		apiURL:      apiURL,
		timeout:     timeout,
		input:       ti,
		outputLines: []outputLine{{text: intro, kind: lineResult}},
		keys:        DefaultKeyMap(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		// header (2) + input box (3) + status bar (1) + output borders (2)
		m.viewport.Width = m.width - 4
		m.viewport.Height = m.height - 8
		if m.viewport.Height < 1 {
			m.viewport.Height = 1
		}
		m.input.Width = max(m.width-16, 10)
		m.refreshOutput()

	case commandResultMsg:
		m.busy = false
		for _, l := range msg.lines {
			m.outputLines = append(m.outputLines, outputLine{text: l, kind: lineResult})
		}
		if msg.err != nil {
			m.outputLines = append(m.outputLines, outputLine{text: errorLine(msg.err), kind: lineError})
		}
		m.refreshOutput()

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}

		if m.viewMode == ViewModeHelp {
			if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Escape) {
				m.viewMode = ViewModeMain
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Help):
			m.viewMode = ViewModeHelp
			return m, nil

		case key.Matches(msg, m.keys.Enter):
			line := m.input.Value()
			m.input.SetValue("")
			cmd := m.executeCommand(line)
			m.refreshOutput()
			return m, cmd

		case key.Matches(msg, m.keys.HistoryPrev):
			if len(m.commandHistory) > 0 && m.historyIndex > 0 {
				m.historyIndex--
				m.input.SetValue(m.commandHistory[m.historyIndex])
				m.input.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, m.keys.HistoryNext):
			if m.historyIndex < len(m.commandHistory)-1 {
				m.historyIndex++
				m.input.SetValue(m.commandHistory[m.historyIndex])
				m.input.CursorEnd()
			} else {
				m.historyIndex = len(m.commandHistory)
				m.input.SetValue("")
			}
			return m, nil

		case key.Matches(msg, m.keys.PageUp):
			m.viewport.HalfPageUp()
			return m, nil

		case key.Matches(msg, m.keys.PageDown):
			m.viewport.HalfPageDown()
			return m, nil

		case key.Matches(msg, m.keys.Bottom):
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// executeCommand parses one input line. Local commands are applied
// immediately; backend commands are returned as a tea.Cmd.
func (m *Model) executeCommand(line string) tea.Cmd {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	m.outputLines = append(m.outputLines, outputLine{text: m.input.Prompt + line, kind: lineUser})
	m.commandHistory = append(m.commandHistory, line)
	m.historyIndex = len(m.commandHistory)

	c, err := parseCommand(line)
	if err != nil {
		var uerr *usageError
		if errors.As(err, &uerr) {
			m.outputLines = append(m.outputLines, outputLine{text: uerr.msg, kind: lineError})
			for _, u := range strings.Split(uerr.usage, "\n") {
				m.outputLines = append(m.outputLines, outputLine{text: u, kind: lineUsage})
			}
			return nil
		}
		m.outputLines = append(m.outputLines, outputLine{text: capitalize(err.Error()), kind: lineError})
		return nil
	}

	switch c.kind {
	case cmdHelp:
		m.viewMode = ViewModeHelp
		return nil
	case cmdClear:
		m.outputLines = nil
		return nil
	case cmdQuit:
		return tea.Quit
	}

	if m.busy {
		m.outputLines = append(m.outputLines, outputLine{text: "A command is still running", kind: lineError})
		return nil
	}
	m.busy = true
	return m.runCmd(c)
}

func (m Model) runCmd(c command) tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		lines, err := run(ctx, api, c)
		return commandResultMsg{lines: lines, err: err}
	}
}

func (m *Model) refreshOutput() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderOutputContent())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.viewMode == ViewModeHelp {
		return m.helpView()
	}
	return m.mainView()
}

func (m Model) mainView() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		OutputStyle.Width(m.width-2).Render(m.viewport.View()),
		InputStyle.Width(m.width-4).Render(m.input.View()),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	title := HeaderStyle.Render("NOTFLIX")
	subtitle := lipgloss.NewStyle().
		Foreground(ColorFgMuted).
		Render("  " + m.apiURL)
	return lipgloss.NewStyle().Width(m.width).Render(title+subtitle) + "\n"
}

func (m Model) renderStatusBar() string {
	var status string
	if m.busy {
		status = StatusBusyStyle.Render("● Working")
	} else {
		status = StatusIdleStyle.Render("○ Ready")
	}

	mutedStyle := lipgloss.NewStyle().Foreground(ColorFgMuted)
	keyStyle := lipgloss.NewStyle().Foreground(ColorFgPrimary)
	hint := mutedStyle.Render(" │ ") +
		keyStyle.Render("Enter") + mutedStyle.Render(" run │ ") +
		keyStyle.Render("F1") + mutedStyle.Render(" help │ ") +
		keyStyle.Render("PgUp/PgDn") + mutedStyle.Render(" scroll │ ") +
		keyStyle.Render("Ctrl+C") + mutedStyle.Render(" quit")

	return StatusBarStyle.Render(status + hint)
}

func (m Model) renderOutputContent() string {
	width := m.viewport.Width
	var b strings.Builder
	for i, l := range m.outputLines {
		if i > 0 {
			b.WriteString("\n")
		}
		var style lipgloss.Style
		switch l.kind {
		case lineUser:
			style = UserTextStyle
		case lineError:
			style = ErrorStyle
		case lineUsage:
			style = DimStyle
		default:
			switch {
			case strings.Contains(l.text, "congratulations"):
				style = FinishedStyle
			case strings.HasPrefix(l.text, "Episode watched"), strings.HasPrefix(l.text, "Session initialized"):
				style = SuccessStyle
			default:
				style = SystemTextStyle
			}
		}
		if width > 0 {
			style = style.Width(width)
		}
		b.WriteString(style.Render(l.text))
	}
	return b.String()
}

// helpView renders the help overlay
func (m Model) helpView() string {
	title := HelpTitleStyle.Render("Commands")

	var b strings.Builder
	for _, u := range strings.Split(showUsage+"\n"+sessionUsage, "\n") {
		b.WriteString(HelpDescStyle.Render(u) + "\n")
	}
	b.WriteString(HelpDescStyle.Render("help | clear | quit") + "\n\n")

	b.WriteString(HelpTitleStyle.Render("Keys") + "\n")
	for _, group := range m.keys.FullHelp() {
		for _, k := range group {
			h := k.Help()
			b.WriteString(HelpKeyStyle.Render(padRight(h.Key, 8)) + HelpDescStyle.Render(h.Desc) + "\n")
		}
	}

	content := title + "\n\n" + b.String() + "\n" + HelpDescStyle.Render("Press F1 or Esc to close")

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		HelpStyle.Render(content),
	)
}

func padRight(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s + " "
}
