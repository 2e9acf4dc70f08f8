package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/comigor/neura-go/internal/app"
	"github.com/comigor/neura-go/internal/config"
	"github.com/comigor/neura-go/internal/logger"
	"github.com/comigor/neura-go/internal/tui"
)

type globalOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "neura",
		Short: "Chat with the Neura assistant from the terminal",
		Long: `neura is a terminal chat client. Conversations, the shared memory and the
local profile are kept in a SQLite file; each message is answered by the
configured webhook or completion backend.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $CONFIG_PATH, ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(NewSendCommand(opts))
	rootCmd.AddCommand(NewSessionsCommand(opts))
	rootCmd.AddCommand(NewMemoryCommand(opts))
	rootCmd.AddCommand(NewSignupCommand(opts))
	rootCmd.AddCommand(NewLoginCommand(opts))
	rootCmd.AddCommand(NewLogoutCommand(opts))
	rootCmd.AddCommand(NewProfileCommand(opts))
	rootCmd.AddCommand(NewImportCommand(opts))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, opts *globalOptions) error {
	a, closeApp, err := openApp(cmd, opts, true)
	if err != nil {
		return err
	}
	defer closeApp()

	if err := tui.ShowTUI(a.Chats, a.Agent); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// openApp loads configuration, points the logger somewhere that does not
// fight with the command's output and rehydrates the stores.
func openApp(cmd *cobra.Command, opts *globalOptions, interactive bool) (*app.App, func(), error) {
	path := opts.configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.Log.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger.SetLevel(level)

	closeLog, err := setLogOutput(cfg.Log.File, interactive, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	a := app.Open(cmd.Context(), cfg, nil)
	return a, func() {
		if err := a.Close(); err != nil {
			logger.L.Warn("failed to close app", "error", err)
		}
		closeLog()
	}, nil
}

// setLogOutput sends logs to log.file when configured. Otherwise logs go to
// stderr, or nowhere while the TUI owns the terminal.
func setLogOutput(file string, interactive bool, stderr io.Writer) (func(), error) {
	if file == "" {
		if interactive {
			logger.SetOutput(io.Discard)
		} else {
			logger.SetOutput(stderr)
		}
		return func() {}, nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(f)
	return func() { _ = f.Close() }, nil
}
