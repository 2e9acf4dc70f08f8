package profile

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignUp(t *testing.T) {
	s := NewStore(Profile{})

	err := s.SignUp(Registration{Email: "a@b.c", Password: "secret1", ConfirmPassword: "secret2"})
	require.ErrorIs(t, err, ErrPasswordMismatch)

	err = s.SignUp(Registration{Email: "a@b.c", Password: "abc", ConfirmPassword: "abc"})
	require.ErrorIs(t, err, ErrPasswordTooShort)
	require.False(t, s.Snapshot().IsAuthenticated)

	var notified []Profile
	s.Subscribe(func(p Profile) { notified = append(notified, p) })

	require.NoError(t, s.SignUp(Registration{
		Username:        "ana",
		Email:           "a@b.c",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		About:           "baker",
	}))
	p := s.Snapshot()
	require.True(t, p.IsAuthenticated)
	require.Equal(t, "ana", p.DisplayName())
	require.Equal(t, "baker", p.About)
	require.Len(t, notified, 1)
}

func TestLogin(t *testing.T) {
	s := NewStore(Profile{})
	require.ErrorIs(t, s.Login("a@b.c", "secret1"), ErrNoUser)

	s = NewStore(Profile{Email: "a@b.c", Password: "secret1"})
	require.ErrorIs(t, s.Login("a@b.c", "nope"), ErrInvalidCredentials)
	require.ErrorIs(t, s.Login("x@b.c", "secret1"), ErrInvalidCredentials)
	require.NoError(t, s.Login("a@b.c", "secret1"))
	require.True(t, s.Snapshot().IsAuthenticated)
}

func TestUpdateAndLogout(t *testing.T) {
	s := NewStore(Profile{Username: "ana", Email: "a@b.c", IsAuthenticated: true})
	about := "loves maps"
	s.Update(Changes{About: &about})

	p := s.Snapshot()
	require.Equal(t, "loves maps", p.About)
	require.Equal(t, "ana", p.Username)
	require.True(t, p.IsAuthenticated)

	s.Logout()
	require.Equal(t, Profile{}, s.Snapshot())
	require.Equal(t, "User", s.Snapshot().DisplayName())
}

func TestDescribe(t *testing.T) {
	cases := map[error]string{
		ErrPasswordMismatch:   "Passwords do not match.",
		ErrPasswordTooShort:   "Password must be at least 6 characters.",
		ErrNoUser:             "No user found. Please sign up first.",
		ErrInvalidCredentials: "Invalid email or password.",
	}
	for err, want := range cases {
		require.Equal(t, want, Describe(err))
		require.Equal(t, want, Describe(fmt.Errorf("login: %w", err)))
	}
	require.Equal(t, "Something went wrong. Please try again.", Describe(errors.New("boom")))
}
