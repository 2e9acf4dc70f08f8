package agent

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/neura-go/internal/chat"
	"github.com/comigor/neura-go/internal/config"
	"github.com/comigor/neura-go/internal/gateway"
	"github.com/comigor/neura-go/internal/profile"
)

type mockSender struct {
	calls    []gateway.Payload
	response any
	err      error
	// during runs inside Send, before the response is returned
	during func()
}

func (m *mockSender) Send(ctx context.Context, p gateway.Payload) (any, error) {
	m.calls = append(m.calls, p)
	if m.during != nil {
		m.during()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func newAgent(sender gateway.Sender) (*Agent, *chat.Store, *profile.Store) {
	chats := chat.NewStore(chat.State{})
	users := profile.NewStore(profile.Profile{
		Username:           "ana",
		Email:              "a@b.c",
		About:              "baker",
		CustomInstructions: "be brief",
		IsAuthenticated:    true,
	})
	return New(chats, users, sender, config.Config{AssistantName: "Neura"}), chats, users
}

func TestSend_CreatesSessionAndAppliesReply(t *testing.T) {
	sender := &mockSender{response: map[string]any{"reply": "Hello, ana!", "Memory": "ana bakes"}}
	a, chats, _ := newAgent(sender)

	res, err := a.Send(context.Background(), "  Hi there  ")
	require.NoError(t, err)
	require.False(t, res.Redirected())
	require.Equal(t, "Hello, ana!", res.Reply.Text)

	st := chats.Snapshot()
	require.Len(t, st.Sessions, 1)
	sess := st.Sessions[0]
	require.Equal(t, sess.ID, st.ActiveSessionID)
	require.Equal(t, "Hi there", sess.Title)
	require.Len(t, sess.Messages, 2)
	require.Equal(t, chat.RoleUser, sess.Messages[0].Role)
	require.Equal(t, "Hi there", sess.Messages[0].Content)
	require.Equal(t, chat.RoleAssistant, sess.Messages[1].Role)
	require.Equal(t, "ana bakes", st.Memory)
	require.False(t, st.IsLoading)
	require.Empty(t, st.Error)

	require.Len(t, sender.calls, 1)
	p := sender.calls[0]
	require.Equal(t, "Hi there", p.UserMessage)
	require.Equal(t, sess.ID, p.SessionID)
	require.Equal(t, chat.DefaultTitle, p.ChatTitle)
	require.Equal(t, "ana", p.Username)
	require.Equal(t, "baker", p.About)
	require.Equal(t, "a@b.c", p.Email)
	require.Equal(t, "be brief", p.CustomInstructions)
	require.Equal(t, "User: Hi there", p.CurrentChat)
	require.Equal(t, chat.DefaultTitle, p.ChatList)
}

func TestSend_TranscriptAndMemoryInPayload(t *testing.T) {
	sender := &mockSender{response: map[string]any{"reply": "two"}}
	a, chats, _ := newAgent(sender)
	chats.SetMemory("prior")

	_, err := a.Send(context.Background(), "one")
	require.NoError(t, err)
	_, err = a.Send(context.Background(), "three")
	require.NoError(t, err)

	p := sender.calls[1]
	require.Equal(t, "User: one\nNeura: two\nUser: three", p.CurrentChat)
	require.Equal(t, "prior", p.Memory)
	require.Equal(t, "one", p.ChatTitle)
}

func TestSend_RedirectedReply(t *testing.T) {
	sender := &mockSender{}
	a, chats, _ := newAgent(sender)
	other := chats.CreateSession("Other")
	origin := chats.CreateSession("")
	sender.response = `{"reply":"Hi!","Session_ID":"` + other + `","chat_title":"Moved"}`

	res, err := a.Send(context.Background(), "hello")
	require.NoError(t, err)
	require.True(t, res.Redirected())
	require.Equal(t, other, res.SessionID)

	o, _ := chats.Session(other)
	require.Equal(t, "Moved", o.Title)
	require.Len(t, o.Messages, 1)
	require.Equal(t, "Hi!", o.Messages[0].Content)

	src, _ := chats.Session(origin)
	require.Equal(t, "hello", src.Title)
	require.Len(t, src.Messages, 1)
}

func TestSend_LateReplyGoesToOrigin(t *testing.T) {
	sender := &mockSender{response: []any{map[string]any{"output": "late", "chat-title": "Renamed"}}}
	a, chats, _ := newAgent(sender)
	elsewhere := chats.CreateSession("Elsewhere")
	origin := chats.CreateSession("")
	sender.during = func() { require.NoError(t, chats.SwitchSession(elsewhere)) }

	_, err := a.Send(context.Background(), "question")
	require.NoError(t, err)

	src, _ := chats.Session(origin)
	require.Equal(t, "Renamed", src.Title)
	require.Len(t, src.Messages, 2)
	e, _ := chats.Session(elsewhere)
	require.Empty(t, e.Messages)
	require.Equal(t, "Elsewhere", e.Title)
}

func TestSend_OriginDeletedMidFlight(t *testing.T) {
	sender := &mockSender{response: map[string]any{"reply": "orphan"}}
	a, chats, _ := newAgent(sender)
	origin := chats.CreateSession("")
	sender.during = func() { chats.DeleteSession(origin) }

	_, err := a.Send(context.Background(), "question")
	require.NoError(t, err)
	require.Empty(t, chats.Snapshot().Sessions)
}

func TestSend_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", &gateway.StatusError{StatusCode: http.StatusNotFound}, "isn't registered"},
		{"server error", &gateway.StatusError{StatusCode: http.StatusInternalServerError}, "500 error"},
		{"other status", &gateway.StatusError{StatusCode: http.StatusBadGateway}, "Request failed (HTTP 502)"},
		{"transport", &gateway.TransportError{Err: errors.New("connection refused")}, "Network error"},
		{"unknown", errors.New("weird"), "Failed to connect"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, chats, _ := newAgent(&mockSender{err: tc.err})
			_, err := a.Send(context.Background(), "hello")
			require.ErrorIs(t, err, tc.err)

			st := chats.Snapshot()
			require.False(t, st.IsLoading, "loading is always released")
			require.True(t, strings.Contains(st.Error, tc.want), st.Error)
			require.Len(t, st.Sessions[0].Messages, 1, "user message stays, no assistant message")
		})
	}
}

func TestSend_ClearsPreviousError(t *testing.T) {
	sender := &mockSender{err: &gateway.StatusError{StatusCode: 500}}
	a, chats, _ := newAgent(sender)
	_, err := a.Send(context.Background(), "one")
	require.Error(t, err)
	require.NotEmpty(t, chats.Snapshot().Error)

	sender.err = nil
	sender.response = map[string]any{}
	_, err = a.Send(context.Background(), "two")
	require.NoError(t, err)
	require.Empty(t, chats.Snapshot().Error)

	sess, _ := chats.ActiveSession()
	require.Equal(t, FallbackReply, sess.Messages[len(sess.Messages)-1].Content)
}

func TestSend_RejectsBusyAndEmpty(t *testing.T) {
	sender := &mockSender{response: map[string]any{"reply": "x"}}
	a, chats, _ := newAgent(sender)

	_, err := a.Send(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)

	require.True(t, chats.BeginLoading())
	_, err = a.Send(context.Background(), "hello")
	require.ErrorIs(t, err, ErrBusy)
	require.Empty(t, sender.calls)
	require.True(t, chats.Snapshot().IsLoading, "a rejected send leaves the owner's flag alone")
}

func TestSend_AnonymousUser(t *testing.T) {
	sender := &mockSender{response: map[string]any{"reply": "x"}}
	chats := chat.NewStore(chat.State{})
	a := New(chats, profile.NewStore(profile.Profile{}), sender, config.Config{})

	_, err := a.Send(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "User", sender.calls[0].Username)
	require.Equal(t, "Neura", a.AssistantName())
}
