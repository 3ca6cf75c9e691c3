package app

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/embedops/loractl/internal/runtime"
)

// RmOptions holds options for the rm command
type RmOptions struct {
	*GlobalOptions

	// Names are the jobs to remove
	Names []string
}

// NewRmCommand creates the rm command.
//
// The rm command removes finished training job containers. Running jobs
// are force-removed.
//
// Usage:
//
//	loractl rm NAME [NAME...]
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for removing jobs
func NewRmCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &RmOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "rm NAME [NAME...]",
		Short: "Remove training job containers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Names = args
			return runRm(opts)
		},
	}

	return cmd
}

// runRm executes the rm command logic
func runRm(opts *RmOptions) error {
	rt, err := runtime.NewRuntime()
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, name := range opts.Names {
		if err := rt.Remove(ctx, name); err != nil {
			return err
		}
	}

	return nil
}
