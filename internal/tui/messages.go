package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/comigor/neura-go/internal/agent"
	"github.com/comigor/neura-go/internal/chat"
)

// Message types for async operations
type (
	// StateChangedMsg signals that the chat store changed.
	StateChangedMsg struct{}

	// ReplyMsg carries the outcome of one send cycle.
	ReplyMsg struct {
		Result agent.Result
		Error  error
	}
)

// subscribe turns store notifications into a coalescing signal channel.
func subscribe(chats *chat.Store) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	unsubscribe := chats.Subscribe(func(chat.State) {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
	return ch, unsubscribe
}

// waitForChangeCmd blocks until the store changes.
func waitForChangeCmd(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return StateChangedMsg{}
	}
}

// sendCmd runs a send cycle off the UI goroutine.
func sendCmd(a *agent.Agent, content string) tea.Cmd {
	return func() tea.Msg {
		res, err := a.Send(context.Background(), content)
		return ReplyMsg{Result: res, Error: err}
	}
}
