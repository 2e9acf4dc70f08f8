package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/comigor/neura-go/internal/app"
)

// NewMemoryCommand creates the memory command
func NewMemoryCommand(opts *globalOptions) *cobra.Command {
	memoryCmd := &cobra.Command{
		Use:   "memory",
		Short: "Show the memory the assistant keeps across chats",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			memory := a.Chats.Snapshot().Memory
			if memory == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Memory is empty")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), memory)
			return nil
		}),
	}

	memoryCmd.AddCommand(&cobra.Command{
		Use:   "set <text...>",
		Short: "Replace the memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			a.Chats.SetMemory(strings.Join(args, " "))
			return nil
		}),
	})

	return memoryCmd
}
