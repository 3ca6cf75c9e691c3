package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/embedops/loractl/internal/runtime"
)

// PsOptions holds options for the ps command
type PsOptions struct {
	*GlobalOptions
}

// NewPsCommand creates the ps command.
//
// The ps command lists training job containers, including finished jobs
// from previous invocations rediscovered through container labels.
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for listing jobs
func NewPsCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &PsOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List training jobs",
		Long: `List training job containers known to loractl.

Shows running jobs and finished jobs from previous invocations, with
their state and exit code.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPs(opts)
		},
	}

	return cmd
}

// runPs executes the ps command logic
func runPs(opts *PsOptions) error {
	rt, err := runtime.NewRuntime()
	if err != nil {
		return err
	}

	jobs, err := rt.List(context.Background())
	if err != nil {
		return err
	}

	sortJobs(jobs)

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "NAME\tIMAGE\tSTATE\tEXIT CODE\tCREATED")
	for _, job := range jobs {
		exitCode := "-"
		if job.State == runtime.StateExited || job.State == runtime.StateFailed {
			exitCode = fmt.Sprintf("%d", job.ExitCode)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			job.ID, job.Image, job.State, exitCode,
			job.CreatedAt.Format(time.RFC3339))
	}

	return nil
}

// sortJobs orders jobs oldest first so repeated listings are stable.
// Jobs created in the same second fall back to name order.
func sortJobs(jobs []*runtime.Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
}
