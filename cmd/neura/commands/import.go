package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/comigor/neura-go/internal/app"
)

// NewImportCommand creates the import command
func NewImportCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace local state with an exported state file",
		Long: `Replace local state with an exported state file. Older layouts, including a
raw browser storage export with string-encoded fields, are migrated on import.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			snap, err := a.Storage.Import(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d chats for %s\n", len(snap.Chat.Sessions), snap.User.DisplayName())
			return nil
		}),
	}
}
