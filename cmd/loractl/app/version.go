package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build metadata, set at link time via -ldflags.
var (
	// Version is the loractl release version.
	Version = "dev"

	// BuildTime is the binary build timestamp.
	BuildTime = "unknown"

	// GitCommit is the source revision the binary was built from.
	GitCommit = "unknown"
)

// NewVersionCommand creates the version command.
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for displaying version info
func NewVersionCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Version:    %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Build Time: %s\n", BuildTime)
			fmt.Fprintf(cmd.OutOrStdout(), "Git Commit: %s\n", GitCommit)
			return nil
		},
	}

	return cmd
}
