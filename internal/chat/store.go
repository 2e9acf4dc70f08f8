package chat

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when an operation names an unknown session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEmptyTitle is returned when a rename would leave a blank title.
	ErrEmptyTitle = errors.New("title cannot be empty")
)

// Store is the process-wide session state container. All transitions are
// atomic; observers are notified with a copy of the resulting state.
type Store struct {
	mu    sync.Mutex
	state State
	now   func() time.Time
	newID func() string

	// notifyMu keeps notifications in mutation order. Observers must not
	// mutate the store synchronously.
	notifyMu  sync.Mutex
	observers map[int]func(State)
	nextObs   int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore creates a store seeded with initial, typically the rehydrated state.
func NewStore(initial State, opts ...Option) *Store {
	s := &Store{
		state:     initial.Clone(),
		now:       time.Now,
		newID:     uuid.NewString,
		observers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to be called after every state change.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.notifyMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.notifyMu.Unlock()

	return func() {
		s.notifyMu.Lock()
		delete(s.observers, id)
		s.notifyMu.Unlock()
	}
}

// update applies fn under the lock and notifies observers when it reports a change.
func (s *Store) update(fn func(st *State) bool) {
	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return
	}
	snap := s.state.Clone()
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, obs := range s.observers {
		obs(snap.Clone())
	}
}

func (s *Store) stamp() int64 {
	return s.now().UnixMilli()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// ActiveSession returns a copy of the active session.
func (s *Store) ActiveSession() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.state.ActiveSession()
	return sess.clone(), ok
}

// Session returns a copy of the session with the given id.
func (s *Store) Session(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.state.Session(id)
	return sess.clone(), ok
}

// Titles lists session titles in sidebar order.
func (s *Store) Titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := make([]string, len(s.state.Sessions))
	for i, sess := range s.state.Sessions {
		titles[i] = sess.Title
	}
	return titles
}

// Search returns the sessions whose title contains query, case-insensitively.
// A blank query matches everything.
func (s *Store) Search(query string) []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Session
	for _, sess := range s.state.Sessions {
		if MatchesTitle(sess, query) {
			out = append(out, sess.clone())
		}
	}
	return out
}

// CreateSession prepends a new empty session, makes it active and returns its id.
func (s *Store) CreateSession(title string) string {
	if title == "" {
		title = DefaultTitle
	}
	id := s.newID()
	s.update(func(st *State) bool {
		sess := Session{ID: id, Title: title, Messages: []Message{}, LastUpdated: s.stamp()}
		st.Sessions = append([]Session{sess}, st.Sessions...)
		st.ActiveSessionID = id
		return true
	})
	return id
}

// SwitchSession makes id the active session. Unknown ids are rejected and the
// pointer is left alone.
func (s *Store) SwitchSession(id string) error {
	var err error
	s.update(func(st *State) bool {
		if st.find(id) == nil {
			err = ErrSessionNotFound
			return false
		}
		if st.ActiveSessionID == id {
			return false
		}
		st.ActiveSessionID = id
		return true
	})
	return err
}

// DeleteSession removes a session. Deleting the active session activates the
// first remaining one, or none.
func (s *Store) DeleteSession(id string) {
	s.update(func(st *State) bool {
		idx := -1
		for i := range st.Sessions {
			if st.Sessions[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return false
		}
		st.Sessions = append(st.Sessions[:idx:idx], st.Sessions[idx+1:]...)
		if st.ActiveSessionID == id {
			st.ActiveSessionID = ""
			if len(st.Sessions) > 0 {
				st.ActiveSessionID = st.Sessions[0].ID
			}
		}
		return true
	})
}

// AppendMessage appends msg to the active session. No-op without one.
func (s *Store) AppendMessage(msg Message) {
	s.update(func(st *State) bool {
		return s.appendTo(st.find(st.ActiveSessionID), msg)
	})
}

// AppendMessageToSession appends msg to session id. No-op when the session is
// gone, which happens when a reply arrives after its session was deleted.
func (s *Store) AppendMessageToSession(id string, msg Message) {
	s.update(func(st *State) bool {
		return s.appendTo(st.find(id), msg)
	})
}

func (s *Store) appendTo(sess *Session, msg Message) bool {
	if sess == nil {
		return false
	}
	sess.Messages = append(sess.Messages, msg)
	sess.LastUpdated = s.stamp()
	if sess.Title == DefaultTitle && msg.Role == RoleUser {
		sess.Title = DeriveTitle(msg.Content)
	}
	return true
}

// SetMemory replaces the shared memory blob.
func (s *Store) SetMemory(text string) {
	s.update(func(st *State) bool {
		st.Memory = text
		return true
	})
}

// SetLoading sets the in-flight flag.
func (s *Store) SetLoading(loading bool) {
	s.update(func(st *State) bool {
		st.IsLoading = loading
		return true
	})
}

// BeginLoading sets the in-flight flag unless it is already set, reporting
// whether the caller now owns the request slot.
func (s *Store) BeginLoading() bool {
	acquired := false
	s.update(func(st *State) bool {
		if st.IsLoading {
			return false
		}
		st.IsLoading = true
		acquired = true
		return true
	})
	return acquired
}

// SetError stores a user-visible error; an empty string clears it.
func (s *Store) SetError(text string) {
	s.update(func(st *State) bool {
		st.Error = text
		return true
	})
}

// ClearMessages empties the active session, keeping its id, title and LastUpdated.
func (s *Store) ClearMessages() {
	s.update(func(st *State) bool {
		sess := st.find(st.ActiveSessionID)
		if sess == nil {
			return false
		}
		sess.Messages = []Message{}
		return true
	})
}

// RenameSession sets a session title. Blank titles and unknown ids are
// rejected without changing anything.
func (s *Store) RenameSession(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	var err error
	s.update(func(st *State) bool {
		sess := st.find(id)
		if sess == nil {
			err = ErrSessionNotFound
			return false
		}
		sess.Title = title
		sess.LastUpdated = s.stamp()
		return true
	})
	return err
}

// RenameActiveSession renames whichever session is active.
func (s *Store) RenameActiveSession(title string) error {
	s.mu.Lock()
	id := s.state.ActiveSessionID
	s.mu.Unlock()
	return s.RenameSession(id, title)
}
