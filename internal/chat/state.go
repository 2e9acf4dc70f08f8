package chat

import "encoding/json"

// State is the full session-store state. Empty ActiveSessionID and Error mean
// "none" and are persisted as JSON null.
type State struct {
	Sessions        []Session
	ActiveSessionID string
	Memory          string
	IsLoading       bool
	Error           string
}

type stateJSON struct {
	Sessions        []Session `json:"sessions"`
	ActiveSessionID *string   `json:"activeSessionId"`
	Memory          string    `json:"memory"`
	IsLoading       bool      `json:"isLoading"`
	Error           *string   `json:"error"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MarshalJSON implements json.Marshaler.
func (s State) MarshalJSON() ([]byte, error) {
	sessions := s.Sessions
	if sessions == nil {
		sessions = []Session{}
	}
	return json.Marshal(stateJSON{
		Sessions:        sessions,
		ActiveSessionID: nullable(s.ActiveSessionID),
		Memory:          s.Memory,
		IsLoading:       s.IsLoading,
		Error:           nullable(s.Error),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *State) UnmarshalJSON(data []byte) error {
	var w stateJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = State{
		Sessions:        w.Sessions,
		ActiveSessionID: deref(w.ActiveSessionID),
		Memory:          w.Memory,
		IsLoading:       w.IsLoading,
		Error:           deref(w.Error),
	}
	return nil
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	if s.Sessions != nil {
		out.Sessions = make([]Session, len(s.Sessions))
		for i, sess := range s.Sessions {
			out.Sessions[i] = sess.clone()
		}
	}
	return out
}

func (s Session) clone() Session {
	out := s
	out.Messages = append([]Message{}, s.Messages...)
	return out
}

func (s *State) find(id string) *Session {
	for i := range s.Sessions {
		if s.Sessions[i].ID == id {
			return &s.Sessions[i]
		}
	}
	return nil
}

// Session returns the session with the given id.
func (s State) Session(id string) (Session, bool) {
	for _, sess := range s.Sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return Session{}, false
}

// ActiveSession returns the session the active pointer references.
func (s State) ActiveSession() (Session, bool) {
	if s.ActiveSessionID == "" {
		return Session{}, false
	}
	return s.Session(s.ActiveSessionID)
}
