package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visitdesk",
		Short: "Visitdesk - staff workflow tool for visit registration",
		Long: `Visitdesk is the staff-side workflow tool of the pet-sitting portal.

It turns a customer email into a structured visit draft via the remote
interpreter, resolves the customer record, lets you review and edit the
draft, and commits it to the backend exactly once.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newRegisterCommand())
	cmd.AddCommand(newCustomersCommand())
	cmd.AddCommand(newBadgesCommand())
	cmd.AddCommand(newPingCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
