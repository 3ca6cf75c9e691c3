package runtime

import "time"

// JobState represents the lifecycle state of a training job container.
//
// A job moves through single unconditional transitions: created when the
// container exists, running once started, then exited, failed or stopped
// depending on how the external process terminated.
type JobState string

const (
	StateCreated JobState = "created"
	StateRunning JobState = "running"
	StateExited  JobState = "exited"  // Terminated with exit code 0
	StateFailed  JobState = "failed"  // Terminated with non-zero exit code
	StateStopped JobState = "stopped" // Stopped out-of-band
	StateUnknown JobState = "unknown" // Unable to determine real state
)

// Job represents a training job container.
type Job struct {
	ID         string
	Image      string
	State      JobState
	ExitCode   int64
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
	Metadata   map[string]string
}

// CreateParams contains the parameters for creating a training job.
type CreateParams struct {
	// JobID is the unique job identifier, used as the container name.
	JobID string

	// Image is the full training image reference.
	Image string

	// Cmd is the assembled launch argument vector.
	Cmd []string

	// WorkDir overrides the image working directory when non-empty.
	WorkDir string

	// Mounts maps host paths to container paths for bind mounts.
	Mounts map[string]string

	// Env holds additional environment variables for the container.
	Env map[string]string

	// ShmSize is the shared-memory size in bytes (0 keeps the default).
	ShmSize int64

	// GPUs requests all host GPUs be visible inside the container.
	GPUs bool

	// TTY allocates a pseudo-terminal for interactive output.
	TTY bool
}

// LogStream provides access to job logs.
type LogStream interface {
	Read(p []byte) (n int, err error)
	Close() error
}
