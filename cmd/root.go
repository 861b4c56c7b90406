// Package cmd provides the goalchat CLI commands.
//
// Commands:
//   - serve: HTTP API server over the conversation store
//   - version: build information
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "goalchat",
	Short:         "Conversation persistence and chat proxy server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// Execute runs the CLI. It is the only entry point main calls.
func Execute() error {
	return rootCmd.Execute()
}
