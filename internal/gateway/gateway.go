// Package gateway talks to the workflow-automation webhook that performs inference.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/comigor/neura-go/internal/chat"
	"github.com/comigor/neura-go/internal/config"
	"github.com/comigor/neura-go/internal/logger"
)

const transcriptWindow = 10

// Payload is the request body the webhook expects.
type Payload struct {
	UserMessage        string `json:"User_Message"`
	SessionID          string `json:"Session_ID"`
	ChatTitle          string `json:"Chat_Title"`
	Username           string `json:"Username"`
	About              string `json:"About"`
	Email              string `json:"Email"`
	CustomInstructions string `json:"Custom_instructions"`
	CurrentChat        string `json:"Current_Chat"`
	Memory             string `json:"Memory"`
	ChatList           string `json:"Chat_List"`
}

// Sender delivers a payload and returns the undecoded-shape response body.
type Sender interface {
	Send(ctx context.Context, p Payload) (any, error)
}

// TransportError means the request never got an HTTP response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "webhook transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-2xx webhook response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// Client is a client for the inference webhook
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a new Client posting to the resolved webhook URL
func NewClient(cfg *config.Config) *Client {
	return &Client{
		url:    cfg.WebhookURL(),
		client: &http.Client{Timeout: cfg.Webhook.Timeout},
	}
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string { return c.url }

// Send posts p as JSON and returns the decoded body. Bodies that are not JSON
// come back as strings; interpreting the shape is left to the caller.
func (c *Client) Send(ctx context.Context, p Payload) (any, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	logger.L.Debug("webhook request", "url", c.url, "session", p.SessionID)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	logger.L.Debug("webhook response", "status", resp.StatusCode, "body", string(raw))

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return string(raw), nil
	}
	return out, nil
}

// FormatCurrentChat renders the last ten messages, oldest first, one per line.
func FormatCurrentChat(messages []chat.Message, assistantName string) string {
	if len(messages) > transcriptWindow {
		messages = messages[len(messages)-transcriptWindow:]
	}
	lines := make([]string, len(messages))
	for i, m := range messages {
		speaker := assistantName
		if m.Role == chat.RoleUser {
			speaker = "User"
		}
		lines[i] = speaker + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}

// ChatList joins session titles for the Chat_List field.
func ChatList(titles []string) string {
	return strings.Join(titles, ", ")
}
