package agent

import (
	"encoding/json"
	"strings"
)

// FallbackReply is shown when the webhook answers without usable text.
const FallbackReply = "I received your message but couldn't generate a text response."

// Accepted spellings per field, tried in order.
var (
	sessionIDKeys = []string{"Session_ID", "session_id", "sessionId"}
	replyKeys     = []string{"reply", "output", "text", "response", "message"}
	memoryKeys    = []string{"Memory", "memory", "updated_memory"}
	titleKeys     = []string{"chat-title", "chat_title"}
)

// Reply is the normalized webhook response.
type Reply struct {
	// SessionID is the session the webhook addressed, if it named one.
	SessionID string
	Text      string
	Memory    string
	HasMemory bool
	Title     string
	HasTitle  bool
}

// Target picks the session the reply belongs to: the one the response names
// when it differs from origin, else origin.
func (r Reply) Target(origin string) string {
	if r.SessionID != "" && r.SessionID != origin {
		return r.SessionID
	}
	return origin
}

// Normalize extracts the known fields from a loosely-shaped webhook response.
// It accepts an object, an array of objects, or a string holding either.
func Normalize(raw any) Reply {
	v := reparse(raw)
	r := Reply{Text: FallbackReply}

	if id, ok := firstMatch(v, sessionIDKeys); ok {
		r.SessionID, _ = id.(string)
	}
	if text, ok := firstMatch(v, replyKeys); ok {
		r.Text = renderText(text)
	}
	if mem, ok := firstMatch(v, memoryKeys); ok {
		r.Memory, r.HasMemory = mem.(string)
	}
	if title, ok := firstMatch(v, titleKeys); ok {
		if s, isString := title.(string); isString && strings.TrimSpace(s) != "" {
			r.Title, r.HasTitle = strings.TrimSpace(s), true
		}
	}
	return r
}

func reparse(raw any) any {
	s, ok := raw.(string)
	if !ok {
		return raw
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return raw
	}
	var out any
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return raw
	}
	return out
}

// firstMatch tries each key in turn; for arrays every element is checked for
// a key before moving to the next key. JSON null counts as absent.
func firstMatch(v any, keys []string) (any, bool) {
	for _, key := range keys {
		if found, ok := lookup(v, key); ok {
			return found, true
		}
	}
	return nil, false
}

func lookup(v any, key string) (any, bool) {
	switch t := v.(type) {
	case map[string]any:
		found, ok := t[key]
		return found, ok && found != nil
	case []any:
		for _, item := range t {
			if obj, ok := item.(map[string]any); ok {
				if found, ok := lookup(obj, key); ok {
					return found, true
				}
			}
		}
	}
	return nil, false
}

func renderText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return FallbackReply
	}
	return string(b)
}
