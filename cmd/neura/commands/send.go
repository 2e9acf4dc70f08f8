package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/comigor/neura-go/internal/agent"
	"github.com/comigor/neura-go/internal/app"
)

// NewSendCommand creates the send command
func NewSendCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send <message...>",
		Short: "Send one message to the active chat and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			res, err := a.Agent.Send(cmd.Context(), strings.Join(args, " "))
			if errors.Is(err, agent.ErrEmptyMessage) || errors.Is(err, agent.ErrBusy) {
				return err
			}
			if err != nil {
				return fmt.Errorf("%s (%w)", agent.Describe(err), err)
			}

			out := cmd.OutOrStdout()
			if res.Redirected() {
				if sess, ok := a.Chats.Session(res.SessionID); ok {
					fmt.Fprintf(out, "(reply delivered to %q)\n", sess.Title)
				}
			}
			fmt.Fprintf(out, "%s: %s\n", a.Agent.AssistantName(), res.Reply.Text)
			return nil
		}),
	}
}
