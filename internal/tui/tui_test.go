package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/comigor/neura-go/internal/agent"
	"github.com/comigor/neura-go/internal/chat"
	"github.com/comigor/neura-go/internal/config"
	"github.com/comigor/neura-go/internal/gateway"
	"github.com/comigor/neura-go/internal/profile"
)

type replySender struct {
	reply any
}

func (s replySender) Send(ctx context.Context, p gateway.Payload) (any, error) {
	return s.reply, nil
}

func newTestModel(t *testing.T) (model, *chat.Store) {
	t.Helper()
	chats := chat.NewStore(chat.State{})
	a := agent.New(chats, profile.NewStore(profile.Profile{}), replySender{reply: map[string]any{"reply": "pong"}}, config.Config{AssistantName: "Neura"})
	m := initialModel(chats, a)
	t.Cleanup(m.unsubscribe)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(model), chats
}

func press(t *testing.T, m model, key tea.KeyType) (model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(tea.KeyMsg{Type: key})
	return updated.(model), cmd
}

func typeText(t *testing.T, m model, s string) model {
	t.Helper()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return updated.(model)
}

// TestModelInitialization tests the initial model setup
func TestModelInitialization(t *testing.T) {
	m, _ := newTestModel(t)
	require.True(t, m.ready)
	require.Equal(t, composeMode, m.mode)
	require.Contains(t, m.View(), "No chats yet")
	require.Contains(t, m.View(), "What's on your mind today?")
}

func TestSendThroughInput(t *testing.T) {
	m, chats := newTestModel(t)
	m = typeText(t, m, "ping")
	require.Equal(t, "ping", m.input.Value())

	m, cmd := press(t, m, tea.KeyEnter)
	require.NotNil(t, cmd)
	require.Empty(t, m.input.Value())

	msg := cmd()
	reply, ok := msg.(ReplyMsg)
	require.True(t, ok)
	require.NoError(t, reply.Error)

	updated, _ := m.Update(reply)
	m = updated.(model)
	sess, ok := chats.ActiveSession()
	require.True(t, ok)
	require.Len(t, sess.Messages, 2)
	view := m.View()
	require.Contains(t, view, "pong")
	require.Contains(t, view, "> ping")
}

func TestEnterIgnoredWhileLoading(t *testing.T) {
	m, chats := newTestModel(t)
	chats.SetLoading(true)
	updated, _ := m.Update(StateChangedMsg{})
	m = updated.(model)
	require.Contains(t, m.View(), "Neura is thinking...")

	m = typeText(t, m, "wait")
	m, cmd := press(t, m, tea.KeyEnter)
	require.Nil(t, cmd)
	require.Equal(t, "wait", m.input.Value())
}

func TestSessionKeys(t *testing.T) {
	m, chats := newTestModel(t)
	m, _ = press(t, m, tea.KeyCtrlN)
	m, _ = press(t, m, tea.KeyCtrlN)
	require.Len(t, m.state.Sessions, 2)
	newest := m.state.Sessions[0].ID
	older := m.state.Sessions[1].ID
	require.Equal(t, newest, m.state.ActiveSessionID)

	m, _ = press(t, m, tea.KeyCtrlDown)
	require.Equal(t, older, chats.Snapshot().ActiveSessionID)
	m, _ = press(t, m, tea.KeyCtrlUp)
	require.Equal(t, newest, chats.Snapshot().ActiveSessionID)

	m, _ = press(t, m, tea.KeyCtrlX)
	require.Len(t, m.state.Sessions, 1)
	require.Equal(t, older, m.state.ActiveSessionID)
}

func TestRenameMode(t *testing.T) {
	m, chats := newTestModel(t)
	m, _ = press(t, m, tea.KeyCtrlN)
	m = typeText(t, m, "draft")

	m, _ = press(t, m, tea.KeyCtrlR)
	require.Equal(t, renameMode, m.mode)
	require.Equal(t, chat.DefaultTitle, m.input.Value())

	m.input.SetValue("Recipes")
	m, _ = press(t, m, tea.KeyEnter)
	require.Equal(t, composeMode, m.mode)
	require.Equal(t, "draft", m.input.Value(), "compose text is restored")
	sess, _ := chats.ActiveSession()
	require.Equal(t, "Recipes", sess.Title)

	m, _ = press(t, m, tea.KeyCtrlR)
	m.input.SetValue("   ")
	m, _ = press(t, m, tea.KeyEnter)
	sess, _ = chats.ActiveSession()
	require.Equal(t, "Recipes", sess.Title)
	require.Empty(t, chats.Snapshot().Error)
}

func TestFilterMode(t *testing.T) {
	m, chats := newTestModel(t)
	chats.CreateSession("Groceries")
	chats.CreateSession("Holiday")
	updated, _ := m.Update(StateChangedMsg{})
	m = updated.(model)

	m, _ = press(t, m, tea.KeyCtrlF)
	require.Equal(t, filterMode, m.mode)
	m = typeText(t, m, " GROC")
	require.Len(t, m.visibleSessions(), 1)
	require.Equal(t, chats.Search(" GROC"), m.visibleSessions(), "sidebar and search agree")

	m, _ = press(t, m, tea.KeyEnter)
	require.Equal(t, " GROC", m.filter)
	sidebar := m.renderSidebar()
	require.Contains(t, sidebar, "Groceries")
	require.False(t, strings.Contains(sidebar, "Holiday"))

	m, _ = press(t, m, tea.KeyCtrlF)
	m, _ = press(t, m, tea.KeyEsc)
	require.Empty(t, m.filter)
	require.Len(t, m.visibleSessions(), 2)
}

func TestClearKey(t *testing.T) {
	m, chats := newTestModel(t)
	chats.CreateSession("")
	chats.AppendMessage(chat.Message{Role: chat.RoleUser, Content: "x"})
	m, _ = press(t, m, tea.KeyCtrlL)
	sess, _ := chats.ActiveSession()
	require.Empty(t, sess.Messages)
	require.Equal(t, "x", sess.Title)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "abcd...", truncate("abcdefghij", 7))
}
