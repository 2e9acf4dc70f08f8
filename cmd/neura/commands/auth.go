package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comigor/neura-go/internal/app"
	"github.com/comigor/neura-go/internal/profile"
)

// describedError shows a user-facing sentence while keeping the cause for errors.Is.
type describedError struct {
	msg string
	err error
}

func (e describedError) Error() string { return e.msg }

func (e describedError) Unwrap() error { return e.err }

// NewSignupCommand creates the signup command
func NewSignupCommand(opts *globalOptions) *cobra.Command {
	var r profile.Registration
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create the local profile",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			if err := a.Users.SignUp(r); err != nil {
				return describedError{msg: profile.Describe(err), err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s!\n", a.Users.Snapshot().DisplayName())
			return nil
		}),
	}
	cmd.Flags().StringVar(&r.Username, "username", "", "display name")
	cmd.Flags().StringVar(&r.Email, "email", "", "email address")
	cmd.Flags().StringVar(&r.Password, "password", "", "password (at least 6 characters)")
	cmd.Flags().StringVar(&r.ConfirmPassword, "confirm-password", "", "password again")
	cmd.Flags().StringVar(&r.About, "about", "", "a few words about you")
	cmd.Flags().StringVar(&r.CustomInstructions, "instructions", "", "custom instructions for the assistant")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("confirm-password")
	return cmd
}

// NewLoginCommand creates the login command
func NewLoginCommand(opts *globalOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the local profile",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			if err := a.Users.Login(email, password); err != nil {
				return describedError{msg: profile.Describe(err), err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome back, %s!\n", a.Users.Snapshot().DisplayName())
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out, keeping the profile on disk",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			a.Users.Logout()
			return nil
		}),
	}
}

// NewProfileCommand creates the profile command. Without flags it prints the
// profile; any given flag updates that field.
func NewProfileCommand(opts *globalOptions) *cobra.Command {
	var username, email, about, instructions string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the local profile",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			var c profile.Changes
			flags := cmd.Flags()
			if flags.Changed("username") {
				c.Username = &username
			}
			if flags.Changed("email") {
				c.Email = &email
			}
			if flags.Changed("about") {
				c.About = &about
			}
			if flags.Changed("instructions") {
				c.CustomInstructions = &instructions
			}
			if c != (profile.Changes{}) {
				a.Users.Update(c)
			}

			p := a.Users.Snapshot()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Username:      %s\n", p.DisplayName())
			fmt.Fprintf(out, "Email:         %s\n", p.Email)
			fmt.Fprintf(out, "About:         %s\n", p.About)
			fmt.Fprintf(out, "Instructions:  %s\n", p.CustomInstructions)
			fmt.Fprintf(out, "Logged in:     %t\n", p.IsAuthenticated)
			return nil
		}),
	}
	cmd.Flags().StringVar(&username, "username", "", "new display name")
	cmd.Flags().StringVar(&email, "email", "", "new email address")
	cmd.Flags().StringVar(&about, "about", "", "new about text")
	cmd.Flags().StringVar(&instructions, "instructions", "", "new custom instructions")
	return cmd
}
