package llm

import (
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/neura-go/internal/config"
)

// NewClient creates an OpenAI client; an empty base URL keeps the library default.
func NewClient(cfg config.LLMConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// NewConfiguredSender builds the completion-backed Sender from configuration.
func NewConfiguredSender(cfg config.LLMConfig) *Sender {
	return NewSender(NewClient(cfg), cfg.Model)
}
