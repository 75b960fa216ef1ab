package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	seclog "github.com/nao1215/scriptorium/internal/log"
)

// NewRootCmd creates the root command for scriptorium.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scriptorium",
		Short: "Recover the unlock code chain of a gated manuscript catalog",
		Long: `scriptorium logs in to a manuscript catalog, processes its items oldest
century first and recovers each item's unlock code from its downloaded
document or from the challenge API. Every code obtained unlocks the next item.

Credentials are read from SCRIPTORIUM_EMAIL and SCRIPTORIUM_PASSWORD or the
configuration file. Run "scriptorium init" to create one.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write log lines as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .scriptorium in current, XDG config or home directory)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewExtractCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the secure logger for a command and installs it as
// the slog default. Logs go to stderr so that reports on stdout stay clean.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	asJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		asJSON = false
	}
	logger := seclog.New(cmd.ErrOrStderr(), getVerboseFlag(cmd), asJSON)
	slog.SetDefault(logger)
	return logger
}
