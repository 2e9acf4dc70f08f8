package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/comigor/neura-go/internal/app"
	"github.com/comigor/neura-go/internal/chat"
)

// NewSessionsCommand creates the sessions command and its subcommands
func NewSessionsCommand(opts *globalOptions) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List and manage chat sessions",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			st := a.Chats.Snapshot()
			if len(st.Sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No chats yet")
				return nil
			}
			printSessions(cmd.OutOrStdout(), st.Sessions, st.ActiveSessionID)
			return nil
		}),
	}

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "new [title...]",
		Short: "Start a new chat and make it active",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			id := a.Chats.CreateSession(strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		}),
	})

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "switch <id>",
		Short: "Make a chat the active one",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			if err := a.Chats.SwitchSession(args[0]); err != nil {
				return fmt.Errorf("switch to %s: %w", args[0], err)
			}
			return nil
		}),
	})

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a chat",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			if _, ok := a.Chats.Session(args[0]); !ok {
				return fmt.Errorf("delete %s: %w", args[0], chat.ErrSessionNotFound)
			}
			a.Chats.DeleteSession(args[0])
			return nil
		}),
	})

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "rename <id> <title...>",
		Short: "Rename a chat",
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			if err := a.Chats.RenameSession(args[0], strings.Join(args[1:], " ")); err != nil {
				return fmt.Errorf("rename %s: %w", args[0], err)
			}
			return nil
		}),
	})

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every message from the active chat",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			a.Chats.ClearMessages()
			return nil
		}),
	})

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "show [id]",
		Short: "Print the messages of a chat (the active one by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			var sess chat.Session
			var ok bool
			if len(args) == 1 {
				sess, ok = a.Chats.Session(args[0])
			} else {
				sess, ok = a.Chats.ActiveSession()
			}
			if !ok {
				return chat.ErrSessionNotFound
			}
			printMessages(cmd.OutOrStdout(), sess, a.Agent.AssistantName())
			return nil
		}),
	})

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "search <query...>",
		Short: "List chats whose title contains the query",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			found := a.Chats.Search(strings.Join(args, " "))
			if len(found) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matches")
				return nil
			}
			printSessions(cmd.OutOrStdout(), found, a.Chats.Snapshot().ActiveSessionID)
			return nil
		}),
	})

	return sessionsCmd
}

// withApp opens the app for a non-interactive command and closes it after.
func withApp(opts *globalOptions, run func(cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, closeApp, err := openApp(cmd, opts, false)
		if err != nil {
			return err
		}
		defer closeApp()
		return run(cmd, a, args)
	}
}

func printSessions(w io.Writer, sessions []chat.Session, activeID string) {
	for _, s := range sessions {
		marker := " "
		if s.ID == activeID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s  %s\n", marker, s.ID, s.Title)
		fmt.Fprintf(w, "    Messages: %d  Last Activity: %s\n", len(s.Messages), formatStamp(s.LastUpdated))
	}
}

func printMessages(w io.Writer, s chat.Session, assistantName string) {
	fmt.Fprintf(w, "%s\n", s.Title)
	fmt.Fprintln(w, strings.Repeat("=", len([]rune(s.Title))))
	if len(s.Messages) == 0 {
		fmt.Fprintln(w, "No messages yet")
		return
	}
	for _, msg := range s.Messages {
		who := "You"
		if msg.Role == chat.RoleAssistant {
			who = assistantName
		}
		fmt.Fprintf(w, "\n[%s] %s:\n%s\n", formatStamp(msg.Timestamp), who, msg.Content)
	}
}

func formatStamp(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}
