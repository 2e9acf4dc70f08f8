// Package app wires configuration, persistence, stores and the send cycle.
package app

import (
	"context"

	"github.com/comigor/neura-go/internal/agent"
	"github.com/comigor/neura-go/internal/chat"
	"github.com/comigor/neura-go/internal/config"
	"github.com/comigor/neura-go/internal/gateway"
	"github.com/comigor/neura-go/internal/llm"
	"github.com/comigor/neura-go/internal/logger"
	"github.com/comigor/neura-go/internal/profile"
	"github.com/comigor/neura-go/internal/storage"
)

// App is one running client: rehydrated stores with write-through persistence.
type App struct {
	Config  *config.Config
	Chats   *chat.Store
	Users   *profile.Store
	Storage *storage.Adapter
	Agent   *agent.Agent

	detach func()
}

// Open loads persisted state and wires everything. The sender is chosen from
// cfg unless one is given.
func Open(ctx context.Context, cfg *config.Config, sender gateway.Sender) *App {
	store := storage.Open(cfg.Storage)
	snap := store.Load(ctx)

	chats := chat.NewStore(snap.Chat)
	users := profile.NewStore(snap.User)
	detach := store.Attach(chats, users)

	if sender == nil {
		sender = NewSender(cfg)
	}

	return &App{
		Config:  cfg,
		Chats:   chats,
		Users:   users,
		Storage: store,
		Agent:   agent.New(chats, users, sender, *cfg),
		detach:  detach,
	}
}

// NewSender picks the inference backend named by llm.provider.
func NewSender(cfg *config.Config) gateway.Sender {
	if cfg.LLM.Provider == config.ProviderOpenAI {
		logger.L.Info("using completion backend", "base_url", cfg.LLM.BaseURL, "model", cfg.LLM.Model)
		return llm.NewConfiguredSender(cfg.LLM)
	}
	client := gateway.NewClient(cfg)
	logger.L.Info("using webhook backend", "url", client.URL())
	return client
}

// Close stops write-through and releases storage.
func (a *App) Close() error {
	a.detach()
	return a.Storage.Close()
}
