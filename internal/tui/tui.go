// Package tui is the interactive terminal front end: a session sidebar, the
// active conversation and an input line.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/comigor/neura-go/internal/agent"
	"github.com/comigor/neura-go/internal/chat"
)

type inputMode int

const (
	composeMode inputMode = iota
	renameMode
	filterMode
)

// reserved rows: header, thinking line, error line, input, help
const chromeHeight = 5

type model struct {
	chats *chat.Store
	agent *agent.Agent

	state    chat.State
	input    textinput.Model
	viewport viewport.Model
	mode     inputMode
	filter   string
	draft    string // compose text parked while renaming or filtering

	changes     <-chan struct{}
	unsubscribe func()

	ready  bool
	width  int
	height int
}

func initialModel(chats *chat.Store, a *agent.Agent) model {
	in := textinput.New()
	in.Placeholder = "Message " + a.AssistantName() + "..."
	in.Focus()

	changes, unsubscribe := subscribe(chats)
	return model{
		chats:       chats,
		agent:       a,
		state:       chats.Snapshot(),
		input:       in,
		changes:     changes,
		unsubscribe: unsubscribe,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForChangeCmd(m.changes))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		mainWidth, viewHeight := m.paneSize()
		if !m.ready {
			m.viewport = viewport.New(mainWidth, viewHeight)
			m.ready = true
		} else {
			m.viewport.Width = mainWidth
			m.viewport.Height = viewHeight
		}
		m.input.Width = mainWidth - 3
		m.refresh()

	case StateChangedMsg:
		m.state = m.chats.Snapshot()
		m.refresh()
		return m, waitForChangeCmd(m.changes)

	case ReplyMsg:
		// the store already holds the reply or the error text
		m.state = m.chats.Snapshot()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.unsubscribe()
			return m, tea.Quit
		}
		var cmd tea.Cmd
		var handled bool
		switch m.mode {
		case renameMode:
			m, handled = m.handleRenameKey(msg)
		case filterMode:
			m, handled = m.handleFilterKey(msg)
		default:
			m, cmd, handled = m.handleComposeKey(msg)
		}
		if handled {
			m.state = m.chats.Snapshot()
			m.refresh()
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.mode == filterMode {
		m.filter = m.input.Value()
	}
	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m model) handleComposeKey(msg tea.KeyMsg) (model, tea.Cmd, bool) {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.state.IsLoading {
			return m, nil, true
		}
		m.input.Reset()
		return m, sendCmd(m.agent, text), true

	case "ctrl+n":
		m.chats.CreateSession("")
		return m, nil, true

	case "ctrl+x":
		if m.state.ActiveSessionID != "" {
			m.chats.DeleteSession(m.state.ActiveSessionID)
		}
		return m, nil, true

	case "ctrl+up", "ctrl+k":
		m.moveSelection(-1)
		return m, nil, true

	case "ctrl+down", "ctrl+j":
		m.moveSelection(1)
		return m, nil, true

	case "ctrl+l":
		m.chats.ClearMessages()
		return m, nil, true

	case "ctrl+r":
		active, ok := m.state.ActiveSession()
		if !ok {
			return m, nil, true
		}
		m.draft = m.input.Value()
		m.mode = renameMode
		m.input.Placeholder = "New title"
		m.input.SetValue(active.Title)
		m.input.CursorEnd()
		return m, nil, true

	case "ctrl+f":
		m.draft = m.input.Value()
		m.mode = filterMode
		m.input.Placeholder = "Search chats"
		m.input.SetValue(m.filter)
		m.input.CursorEnd()
		return m, nil, true
	}
	return m, nil, false
}

func (m model) handleRenameKey(msg tea.KeyMsg) (model, bool) {
	switch msg.String() {
	case "enter":
		// blank titles are rejected by the store; keep the old one
		if err := m.chats.RenameActiveSession(m.input.Value()); err != nil && !errors.Is(err, chat.ErrEmptyTitle) {
			m.chats.SetError(err.Error())
		}
		m.leaveMode()
		return m, true
	case "esc":
		m.leaveMode()
		return m, true
	}
	return m, false
}

func (m model) handleFilterKey(msg tea.KeyMsg) (model, bool) {
	switch msg.String() {
	case "enter":
		m.filter = m.input.Value()
		m.leaveMode()
		return m, true
	case "esc":
		m.filter = ""
		m.leaveMode()
		return m, true
	}
	return m, false
}

func (m *model) leaveMode() {
	m.mode = composeMode
	m.input.Placeholder = "Message " + m.agent.AssistantName() + "..."
	m.input.SetValue(m.draft)
	m.input.CursorEnd()
	m.draft = ""
}

// visibleSessions applies the sidebar filter.
func (m model) visibleSessions() []chat.Session {
	if strings.TrimSpace(m.filter) == "" {
		return m.state.Sessions
	}
	var out []chat.Session
	for _, s := range m.state.Sessions {
		if chat.MatchesTitle(s, m.filter) {
			out = append(out, s)
		}
	}
	return out
}

func (m *model) moveSelection(delta int) {
	sessions := m.visibleSessions()
	if len(sessions) == 0 {
		return
	}
	idx := -1
	for i, s := range sessions {
		if s.ID == m.state.ActiveSessionID {
			idx = i
			break
		}
	}
	next := idx + delta
	if idx < 0 {
		next = 0
	}
	if next < 0 || next >= len(sessions) {
		return
	}
	if err := m.chats.SwitchSession(sessions[next].ID); err != nil {
		m.chats.SetError(err.Error())
	}
}

func (m model) paneSize() (int, int) {
	mainWidth := m.width - sidebarWidth - 3
	if mainWidth < 20 {
		mainWidth = 20
	}
	viewHeight := m.height - chromeHeight
	if viewHeight < 3 {
		viewHeight = 3
	}
	return mainWidth, viewHeight
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m model) renderMessages() string {
	active, ok := m.state.ActiveSession()
	if !ok || len(active.Messages) == 0 {
		return dimStyle.Render("What's on your mind today?")
	}
	body := lipgloss.NewStyle().Width(m.viewport.Width)
	var b strings.Builder
	for i, msg := range active.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if msg.Role == chat.RoleUser {
			b.WriteString(userLabelStyle.Render("You"))
		} else {
			b.WriteString(assistantLabelStyle.Render(m.agent.AssistantName()))
		}
		b.WriteString("\n")
		b.WriteString(body.Render(msg.Content))
	}
	return b.String()
}

func (m model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Chats"))
	if m.filter != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  /%s", m.filter)))
	}
	b.WriteString("\n\n")

	sessions := m.visibleSessions()
	if len(sessions) == 0 {
		if len(m.state.Sessions) == 0 {
			b.WriteString(dimStyle.Render("No chats yet"))
		} else {
			b.WriteString(dimStyle.Render("No matches"))
		}
	}
	for _, s := range sessions {
		title := truncate(s.Title, sidebarWidth-3)
		if s.ID == m.state.ActiveSessionID {
			b.WriteString(activeSessionStyle.Render("> " + title))
		} else {
			b.WriteString(sessionStyle.Render("  " + title))
		}
		b.WriteString("\n")
	}
	return sidebarStyle.Height(m.height - 1).Render(b.String())
}

func (m model) View() string {
	if !m.ready {
		return "Loading chat..."
	}

	title := chat.DefaultTitle
	if active, ok := m.state.ActiveSession(); ok {
		title = active.Title
	}

	var status string
	if m.state.IsLoading {
		status = dimStyle.Render(m.agent.AssistantName() + " is thinking...")
	}
	var errLine string
	if m.state.Error != "" {
		errLine = errorStyle.Render(m.state.Error)
	}

	help := "enter send • ctrl+n new • ctrl+x delete • ctrl+↑/↓ switch • ctrl+r rename • ctrl+f search • ctrl+l clear • ctrl+c quit"
	switch m.mode {
	case renameMode:
		help = "enter save title • esc cancel"
	case filterMode:
		help = "enter keep filter • esc clear filter"
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(truncate(title, m.viewport.Width)),
		m.viewport.View(),
		status,
		errLine,
		m.input.View(),
		dimStyle.Render(truncate(help, m.viewport.Width)),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), " ", main)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if limit <= 3 || len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

// ShowTUI runs the interactive client until the user quits.
func ShowTUI(chats *chat.Store, a *agent.Agent) error {
	m := initialModel(chats, a)
	defer m.unsubscribe()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
