package storage

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/comigor/neura-go/internal/chat"
	"github.com/comigor/neura-go/internal/logger"
	"github.com/comigor/neura-go/internal/profile"
)

// CurrentVersion is the schema version written with every record.
const CurrentVersion = 2

const legacyTitle = "Legacy Chat"

// MigrateChat turns a stored chat blob of any known shape into the current
// State. It never fails: unrecognised input yields an empty state.
//
// Shapes, in order: a "sessions" array is already current; a flat legacy
// "messages" array becomes one synthesized session; anything else is empty.
func MigrateChat(raw json.RawMessage, now time.Time, newID func() string) chat.State {
	raw = unwrapString(raw)

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return emptyState("")
	}
	memory := stringField(probe["memory"])

	if isArray(probe["sessions"]) {
		return currentState(raw, memory)
	}

	if isArray(probe["messages"]) {
		var entries []json.RawMessage
		if err := json.Unmarshal(probe["messages"], &entries); err != nil {
			return emptyState(memory)
		}
		return legacyState(entries, memory, now, newID)
	}

	return emptyState(memory)
}

// currentState decodes the current shape one session at a time, so a single
// malformed session is skipped instead of discarding the rest.
func currentState(raw json.RawMessage, memory string) chat.State {
	var env struct {
		Sessions        []json.RawMessage `json:"sessions"`
		ActiveSessionID any               `json:"activeSessionId"`
		IsLoading       any               `json:"isLoading"`
		Error           any               `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return emptyState(memory)
	}

	st := emptyState(memory)
	for i, rawSession := range env.Sessions {
		var sess chat.Session
		if err := json.Unmarshal(rawSession, &sess); err != nil {
			logger.L.Warn("dropping undecodable stored session", "index", i, "error", err)
			continue
		}
		if sess.ID == "" {
			logger.L.Warn("dropping stored session without id", "index", i)
			continue
		}
		if sess.Messages == nil {
			sess.Messages = []chat.Message{}
		}
		st.Sessions = append(st.Sessions, sess)
	}
	if id, ok := env.ActiveSessionID.(string); ok {
		st.ActiveSessionID = id
	}
	if loading, ok := env.IsLoading.(bool); ok {
		st.IsLoading = loading
	}
	if e, ok := env.Error.(string); ok {
		st.Error = e
	}
	return st
}

func legacyState(entries []json.RawMessage, memory string, now time.Time, newID func() string) chat.State {
	messages := make([]chat.Message, 0, len(entries))
	titleBase := ""
	foundUser := false
	for _, e := range entries {
		msg, textContent, ok := lenientMessage(e)
		if !ok {
			continue
		}
		if !foundUser && msg.Role == chat.RoleUser && textContent {
			foundUser = true
			titleBase = strings.TrimSpace(msg.Content)
		}
		messages = append(messages, msg)
	}
	if titleBase == "" {
		titleBase = legacyTitle
	}

	id := "legacy-" + newID()
	return chat.State{
		Sessions: []chat.Session{{
			ID:          id,
			Title:       chat.DeriveTitle(titleBase),
			Messages:    messages,
			LastUpdated: now.UnixMilli(),
		}},
		ActiveSessionID: id,
		Memory:          memory,
	}
}

// lenientMessage accepts any JSON object. A missing or non-string role is
// read as assistant; non-string content is kept as its JSON text. textContent
// reports whether content was a string.
func lenientMessage(raw json.RawMessage) (msg chat.Message, textContent bool, ok bool) {
	var m struct {
		Role      any `json:"role"`
		Content   any `json:"content"`
		Timestamp any `json:"timestamp"`
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return chat.Message{}, false, false
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return chat.Message{}, false, false
	}

	role := chat.RoleAssistant
	if r, isString := m.Role.(string); isString && r != "" {
		role = chat.Role(r)
	}

	var content string
	switch c := m.Content.(type) {
	case nil:
	case string:
		content, textContent = c, true
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return chat.Message{}, false, false
		}
		content = string(b)
	}

	var ts int64
	if f, isNumber := m.Timestamp.(float64); isNumber {
		ts = int64(f)
	}
	return chat.Message{Role: role, Content: content, Timestamp: ts}, textContent, true
}

// MigrateProfile decodes a stored profile, falling back to the zero profile.
func MigrateProfile(raw json.RawMessage) profile.Profile {
	var p profile.Profile
	if err := json.Unmarshal(unwrapString(raw), &p); err != nil {
		return profile.Profile{}
	}
	return p
}

func emptyState(memory string) chat.State {
	return chat.State{Sessions: []chat.Session{}, Memory: memory}
}

// unwrapString decodes a JSON string holding JSON, the way browser storage
// exports nest each slice of state.
func unwrapString(raw json.RawMessage) json.RawMessage {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return raw
	}
	return json.RawMessage(s)
}

func isArray(raw json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("["))
}

func stringField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
