package app

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/embedops/loractl/internal/runtime"
)

// StopOptions holds options for the stop command
type StopOptions struct {
	*GlobalOptions

	// Name is the job to stop
	Name string
}

// NewStopCommand creates the stop command.
//
// The stop command terminates a running training job out-of-band. The
// training process receives SIGTERM and is killed after the grace
// period; the container is preserved for log inspection.
//
// Usage:
//
//	loractl stop NAME
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for stopping a job
func NewStopCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &StopOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "stop NAME",
		Short: "Stop a running training job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Name = args[0]
			return runStop(opts)
		},
	}

	return cmd
}

// runStop executes the stop command logic
func runStop(opts *StopOptions) error {
	rt, err := runtime.NewRuntime()
	if err != nil {
		return err
	}

	return rt.Stop(context.Background(), opts.Name)
}
