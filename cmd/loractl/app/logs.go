package app

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/embedops/loractl/internal/runtime"
)

// LogsOptions holds options for the logs command
type LogsOptions struct {
	*GlobalOptions

	// Name is the job to read logs from
	Name string

	// Follow continues streaming logs in real-time
	Follow bool
}

// NewLogsCommand creates the logs command.
//
// The logs command displays training output from a job container.
//
// Usage:
//
//	loractl logs NAME [OPTIONS]
//
// Examples:
//
//	# Show existing logs
//	loractl logs train-20260829-101500
//
//	# Follow logs in real-time (press Ctrl+C to stop)
//	loractl logs train-20260829-101500 -f
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for viewing job logs
func NewLogsCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &LogsOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "logs NAME",
		Short: "View logs from a training job",
		Long: `View logs from a training job container.

By default, shows existing logs and exits. Use -f/--follow to stream
logs in real-time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Name = args[0]
			return runLogs(opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false,
		"follow log output (stream logs in real-time)")

	return cmd
}

// runLogs executes the logs command logic
func runLogs(opts *LogsOptions) error {
	rt, err := runtime.NewRuntime()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.Follow {
		// Cancel the stream on Ctrl+C instead of dying mid-read
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			<-sigCh
			cancel()
		}()
	}

	stream, err := rt.Logs(ctx, opts.Name, opts.Follow)
	if err != nil {
		return err
	}
	defer stream.Close()

	if _, err := io.Copy(os.Stdout, stream); err != nil && ctx.Err() == nil {
		return err
	}

	return nil
}
