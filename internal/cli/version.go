package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edderleonardo/adk-agui-tutorial/pkg/agui"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agui %s (%s)\n", Version, agui.ProtocolVersion)
		},
	}
}
