// Package profile keeps the local user profile and its demo credential check.
// The password is stored and compared in plaintext; this is not an auth system.
package profile

import (
	"errors"
	"sync"
)

const minPasswordLen = 6

var (
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrNoUser             = errors.New("no user found")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Describe converts a profile error into the sentence shown to the user.
func Describe(err error) string {
	switch {
	case errors.Is(err, ErrPasswordMismatch):
		return "Passwords do not match."
	case errors.Is(err, ErrPasswordTooShort):
		return "Password must be at least 6 characters."
	case errors.Is(err, ErrNoUser):
		return "No user found. Please sign up first."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	default:
		return "Something went wrong. Please try again."
	}
}

// Profile is the persisted user record.
type Profile struct {
	Username           string `json:"username"`
	Email              string `json:"email"`
	Password           string `json:"password"`
	About              string `json:"about"`
	CustomInstructions string `json:"customInstructions"`
	IsAuthenticated    bool   `json:"isAuthenticated"`
}

// DisplayName is the name sent upstream; anonymous users are "User".
func (p Profile) DisplayName() string {
	if p.Username == "" {
		return "User"
	}
	return p.Username
}

// Registration is the sign-up form.
type Registration struct {
	Username           string
	Email              string
	Password           string
	ConfirmPassword    string
	About              string
	CustomInstructions string
}

// Changes is a partial profile update; nil fields are left alone.
type Changes struct {
	Username           *string
	Email              *string
	About              *string
	CustomInstructions *string
}

// Store holds the single process-wide profile.
type Store struct {
	mu        sync.Mutex
	profile   Profile
	notifyMu  sync.Mutex
	observers map[int]func(Profile)
	nextObs   int
}

// NewStore creates a store seeded with the rehydrated profile.
func NewStore(initial Profile) *Store {
	return &Store{profile: initial, observers: make(map[int]func(Profile))}
}

// Subscribe registers fn to be called after every change.
func (s *Store) Subscribe(fn func(Profile)) (unsubscribe func()) {
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

func (s *Store) set(fn func(p *Profile)) {
	s.mu.Lock()
	fn(&s.profile)
	snap := s.profile
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, obs := range s.observers {
		obs(snap)
	}
}

// Snapshot returns the current profile.
func (s *Store) Snapshot() Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// SignUp replaces the stored profile and marks it authenticated.
func (s *Store) SignUp(r Registration) error {
	if r.Password != r.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if len(r.Password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	s.set(func(p *Profile) {
		*p = Profile{
			Username:           r.Username,
			Email:              r.Email,
			Password:           r.Password,
			About:              r.About,
			CustomInstructions: r.CustomInstructions,
			IsAuthenticated:    true,
		}
	})
	return nil
}

// Login checks the credentials against the stored profile.
func (s *Store) Login(email, password string) error {
	current := s.Snapshot()
	if current.Email == "" {
		return ErrNoUser
	}
	if email != current.Email || password != current.Password {
		return ErrInvalidCredentials
	}
	s.set(func(p *Profile) { p.IsAuthenticated = true })
	return nil
}

// Update applies the non-nil fields of c.
func (s *Store) Update(c Changes) {
	s.set(func(p *Profile) {
		if c.Username != nil {
			p.Username = *c.Username
		}
		if c.Email != nil {
			p.Email = *c.Email
		}
		if c.About != nil {
			p.About = *c.About
		}
		if c.CustomInstructions != nil {
			p.CustomInstructions = *c.CustomInstructions
		}
	})
}

// Logout resets the profile to its zero value.
func (s *Store) Logout() {
	s.set(func(p *Profile) { *p = Profile{} })
}
