// Package chat holds the session state container: the list of chat sessions,
// the active-session pointer, the shared memory blob and the request flags.
package chat

import (
	"strings"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultTitle is given to sessions created without an explicit title.
// A session keeps auto-titling until its title moves away from it.
const DefaultTitle = "New Chat"

const titleLimit = 30

// Message is a single chat message. Timestamp is epoch milliseconds.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// NewMessage stamps a message with the current time.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now().UnixMilli()}
}

// Session is one conversation thread.
type Session struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Messages    []Message `json:"messages"`
	LastUpdated int64     `json:"lastUpdated"`
}

// DeriveTitle cuts content to the first 30 characters, appending "..." only
// when something was cut.
func DeriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleLimit {
		return content
	}
	return string(runes[:titleLimit]) + "..."
}

// MatchesTitle reports whether the session title contains query,
// case-insensitively. A blank query matches every session.
func MatchesTitle(s Session, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Title), q)
}
