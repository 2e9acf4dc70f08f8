// Package llm provides an OpenAI-compatible completion backend that stands in
// for the webhook.
package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// Client is the completion call the Sender needs; *openai.Client satisfies it.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}
