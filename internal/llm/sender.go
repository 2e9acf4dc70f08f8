package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/neura-go/internal/gateway"
	"github.com/comigor/neura-go/internal/logger"
)

const defaultSystemPrompt = "You are a helpful AI assistant. Please respond to the user's request accurately and concisely."

// Sender answers webhook payloads with a chat completion so the client can
// run without the automation workflow. Its responses use the webhook shape.
type Sender struct {
	client Client
	model  string
}

// NewSender wraps a completion client.
func NewSender(client Client, model string) *Sender {
	return &Sender{client: client, model: model}
}

// Send implements gateway.Sender.
func (s *Sender) Send(ctx context.Context, p gateway.Payload) (any, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(p)},
			{Role: openai.ChatMessageRoleUser, Content: p.UserMessage},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
			return nil, &gateway.StatusError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
			return nil, &gateway.StatusError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
		}
		return nil, &gateway.TransportError{Err: err}
	}
	if len(resp.Choices) == 0 {
		logger.L.Warn("completion returned no choices", "session", p.SessionID)
		return map[string]any{"Session_ID": p.SessionID}, nil
	}

	return map[string]any{
		"reply":      resp.Choices[0].Message.Content,
		"Session_ID": p.SessionID,
	}, nil
}

func systemPrompt(p gateway.Payload) string {
	var b strings.Builder
	b.WriteString(defaultSystemPrompt)

	section := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(&b, "\n\n%s:\n%s", label, value)
	}
	section("User name", p.Username)
	section("About the user", p.About)
	section("Instructions from the user", p.CustomInstructions)
	section("Long-term memory", p.Memory)
	section("Current chat title", p.ChatTitle)
	section("Other chats", p.ChatList)
	section("Recent conversation", p.CurrentChat)
	return b.String()
}
