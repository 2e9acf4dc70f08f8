package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/qmuntal/stateless" // FSM library

	"github.com/comigor/neura-go/internal/chat"
	"github.com/comigor/neura-go/internal/config"
	"github.com/comigor/neura-go/internal/gateway"
	"github.com/comigor/neura-go/internal/logger"
	"github.com/comigor/neura-go/internal/profile"
)

var (
	// ErrBusy is returned while another send is awaiting its reply.
	ErrBusy = errors.New("a message is already being answered")
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")
)

// FSM states of one send cycle.
type requestState string

const (
	stateIdle          requestState = "Idle"
	stateAwaitingReply requestState = "AwaitingReply"
	stateApplyingReply requestState = "ApplyingReply"
	stateDone          requestState = "Done"   // Terminal: reply applied
	stateFailed        requestState = "Failed" // Terminal: error stored for display
)

// FSM triggers.
type requestTrigger string

const (
	triggerSend          requestTrigger = "Send"
	triggerReplyReceived requestTrigger = "ReplyReceived"
	triggerApplied       requestTrigger = "Applied"
	triggerFailed        requestTrigger = "Failed"
)

// Agent runs the send-and-apply cycle between the stores and the webhook.
type Agent struct {
	chats         *chat.Store
	users         *profile.Store
	sender        gateway.Sender
	assistantName string
}

// New creates a new agent.
func New(chats *chat.Store, users *profile.Store, sender gateway.Sender, cfg config.Config) *Agent {
	name := cfg.AssistantName
	if name == "" {
		name = "Neura"
	}
	return &Agent{chats: chats, users: users, sender: sender, assistantName: name}
}

// AssistantName is the label used for assistant lines.
func (a *Agent) AssistantName() string { return a.assistantName }

// Result describes an applied reply.
type Result struct {
	// SessionID is the session the reply was delivered to.
	SessionID string
	// Origin is the session the user message was sent from.
	Origin string
	Reply  Reply
}

// Redirected reports whether the webhook moved the reply to another session.
func (r Result) Redirected() bool { return r.SessionID != r.Origin }

// Send appends content as a user message to the active session (creating one
// if needed), forwards it to the webhook and applies the reply. Webhook errors
// are stored on the chat store for display and also returned.
func (a *Agent) Send(ctx context.Context, content string) (Result, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Result{}, ErrEmptyMessage
	}
	if !a.chats.BeginLoading() {
		return Result{}, ErrBusy
	}
	defer a.chats.SetLoading(false)
	a.chats.SetError("")

	session, ok := a.chats.ActiveSession()
	if !ok {
		id := a.chats.CreateSession("")
		session, _ = a.chats.Session(id)
	}

	userMsg := chat.NewMessage(chat.RoleUser, content)
	payload := a.buildPayload(session, userMsg)
	a.chats.AppendMessageToSession(session.ID, userMsg)

	// cycle is the FSM context data
	cycle := struct {
		raw    any
		result Result
		err    error
	}{result: Result{Origin: session.ID, SessionID: session.ID}}

	fsm := stateless.NewStateMachine(stateIdle)

	fsm.Configure(stateIdle).
		Permit(triggerSend, stateAwaitingReply)

	// State: AwaitingReply
	// Action: one webhook round trip.
	fsm.Configure(stateAwaitingReply).
		OnEntry(func(ctx context.Context, args ...any) error {
			logger.L.Info("inference request", "session", session.ID)
			raw, err := a.sender.Send(ctx, payload)
			if err != nil {
				logger.L.Error("webhook call failed", "session", session.ID, "error", err)
				cycle.err = err
				return fsm.FireCtx(ctx, triggerFailed)
			}
			cycle.raw = raw
			return fsm.FireCtx(ctx, triggerReplyReceived)
		}).
		Permit(triggerReplyReceived, stateApplyingReply).
		Permit(triggerFailed, stateFailed)

	// State: ApplyingReply
	// Action: normalize the response and route it to its session.
	fsm.Configure(stateApplyingReply).
		OnEntry(func(ctx context.Context, args ...any) error {
			reply := Normalize(cycle.raw)
			cycle.result.Reply = reply
			cycle.result.SessionID = a.apply(session.ID, reply)
			return fsm.FireCtx(ctx, triggerApplied)
		}).
		Permit(triggerApplied, stateDone)

	fsm.Configure(stateFailed).
		OnEntry(func(ctx context.Context, args ...any) error {
			a.chats.SetError(Describe(cycle.err))
			return nil
		})

	if err := fsm.FireCtx(ctx, triggerSend); err != nil {
		logger.L.Warn("FSM fire error", "error", err)
		if cycle.err == nil {
			cycle.err = fmt.Errorf("send cycle: %w", err)
			a.chats.SetError(Describe(cycle.err))
		}
	}

	if fsm.MustState() != stateDone {
		if cycle.err == nil {
			cycle.err = fmt.Errorf("send cycle ended in state %v", fsm.MustState())
			a.chats.SetError(Describe(cycle.err))
		}
		return cycle.result, cycle.err
	}
	return cycle.result, nil
}

func (a *Agent) buildPayload(session chat.Session, userMsg chat.Message) gateway.Payload {
	user := a.users.Snapshot()
	state := a.chats.Snapshot()

	title := session.Title
	if title == "" {
		title = chat.DefaultTitle
	}
	history := append(append([]chat.Message{}, session.Messages...), userMsg)

	return gateway.Payload{
		UserMessage:        userMsg.Content,
		SessionID:          session.ID,
		ChatTitle:          title,
		Username:           user.DisplayName(),
		About:              user.About,
		Email:              user.Email,
		CustomInstructions: user.CustomInstructions,
		CurrentChat:        gateway.FormatCurrentChat(history, a.assistantName),
		Memory:             state.Memory,
		ChatList:           gateway.ChatList(a.chats.Titles()),
	}
}

// apply writes memory, title and the assistant message, returning the session
// the reply went to. A reply naming a session that no longer exists is dropped.
func (a *Agent) apply(origin string, reply Reply) string {
	target := reply.Target(origin)
	if target != origin {
		logger.L.Info("reply redirected to another session", "origin", origin, "target", target)
	}

	if reply.HasMemory {
		a.chats.SetMemory(reply.Memory)
	}
	if reply.HasTitle {
		if err := a.chats.RenameSession(target, reply.Title); err != nil {
			logger.L.Warn("ignoring reply title", "error", err)
		}
	}
	a.chats.AppendMessageToSession(target, chat.NewMessage(chat.RoleAssistant, reply.Text))
	return target
}

// Describe converts a send error into the message shown to the user.
func Describe(err error) string {
	var statusErr *gateway.StatusError
	var transportErr *gateway.TransportError
	switch {
	case errors.As(err, &statusErr):
		switch statusErr.StatusCode {
		case http.StatusNotFound:
			return "The webhook isn't registered right now. In test mode you must click 'Execute workflow' and the test URL usually works for one call."
		case http.StatusInternalServerError:
			return "The webhook returned a 500 error. Check the workflow execution logs for details."
		default:
			return fmt.Sprintf("Request failed (HTTP %d). Please try again.", statusErr.StatusCode)
		}
	case errors.As(err, &transportErr):
		return "Network error calling the webhook. If running locally, ensure the dev proxy is running."
	default:
		return "Failed to connect to the AI agent. Please try again."
	}
}
