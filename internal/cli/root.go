// Package cli defines the agui command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root agui command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agui",
		Short: "Session-scoped streaming bridge for a tool-augmented agent",
		Long: `agui runs a conversational agent behind a streaming HTTP endpoint.

Each request opens one turn on a session keyed by (app_id, user_id); the
server streams the turn back as server-sent events while the model reasons
and calls tools.

Examples:
  agui serve
  agui serve --config config.yaml
  agui chat --app-id demo --user-id alice "what's the weather in Paris?"
  agui tools`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewChatCmd())
	cmd.AddCommand(NewToolsCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
