// Package runtime manages training job containers through the Docker
// Engine API.
//
// The runtime owns the full container lifecycle for a training job:
// creation with GPU access and project bind mounts, start, a blocking
// wait for the external process to exit, log streaming, out-of-band
// stop, and removal. Containers carry loractl labels so jobs from
// previous CLI invocations are rediscovered on startup.
//
// All state transitions are driven by the external process's own
// lifecycle; the runtime performs no retries and no recovery.
package runtime

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"

	"github.com/embedops/loractl/internal/logger"
)

// Container labels used for job tracking and rediscovery.
const (
	LabelJobID = "loractl.job_id"
	LabelImage = "loractl.image"
)

// stopTimeoutSeconds is the grace period before Docker escalates from
// SIGTERM to SIGKILL on an out-of-band stop.
const stopTimeoutSeconds = 30

// Runtime manages training job containers.
//
// Thread-safety: all public methods are safe for concurrent use; the
// jobs map is protected by an RWMutex.
type Runtime struct {
	client *client.Client
	mu     sync.RWMutex
	jobs   map[string]*Job
}

// NewRuntime creates a Docker-backed job runtime.
//
// This function:
//  1. Initializes the Docker client with environment-based configuration
//     (DOCKER_HOST etc.) and API version negotiation
//  2. Verifies Docker daemon connectivity with a 5-second timeout
//  3. Loads job containers from previous runs via label rediscovery
//
// Returns:
//   - Configured runtime instance
//   - Error if the Docker daemon is unreachable
func NewRuntime() (*Runtime, error) {
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("Docker daemon is not accessible: %w", err)
	}

	rt := &Runtime{
		client: cli,
		jobs:   make(map[string]*Job),
	}

	if err := rt.loadExistingContainers(context.Background()); err != nil {
		logger.Warn("Failed to load existing job containers: %v", err)
	}

	logger.Debug("Docker job runtime initialized")

	return rt, nil
}

// Create creates a training job container but does not start it.
//
// The container is configured with:
//   - The assembled launch command as its command
//   - Bind mounts of the host project directories (shared volume model:
//     the external process is the sole writer to the output directory)
//   - A GPU device request covering all host GPUs when requested
//   - loractl labels for rediscovery after CLI restarts
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - params: Job creation parameters
//
// Returns:
//   - Job metadata with the container ID recorded
//   - Error if a job with the same ID exists or creation fails
func (r *Runtime) Create(ctx context.Context, params *CreateParams) (*Job, error) {
	if params == nil || params.JobID == "" {
		return nil, fmt.Errorf("invalid parameters: job ID is required")
	}
	if params.Image == "" {
		return nil, fmt.Errorf("invalid parameters: image is required")
	}
	if len(params.Cmd) == 0 {
		return nil, fmt.Errorf("invalid parameters: command is required")
	}

	r.mu.RLock()
	if _, exists := r.jobs[params.JobID]; exists {
		r.mu.RUnlock()
		return nil, fmt.Errorf("job %s already exists", params.JobID)
	}
	r.mu.RUnlock()

	logger.Info("Creating training job: %s (image: %s)", params.JobID, params.Image)

	envList := make([]string, 0, len(params.Env))
	for k, v := range params.Env {
		envList = append(envList, fmt.Sprintf("%s=%s", k, v))
	}

	labels := map[string]string{
		LabelJobID: params.JobID,
		LabelImage: params.Image,
	}

	containerConfig := &container.Config{
		Image:      params.Image,
		Cmd:        params.Cmd,
		WorkingDir: params.WorkDir,
		Env:        envList,
		Tty:        params.TTY,
		Labels:     labels,
	}

	mounts := make([]mount.Mount, 0, len(params.Mounts))
	for src, dst := range params.Mounts {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeBind,
			Source: src,
			Target: dst,
		})
	}

	hostConfig := &container.HostConfig{
		Mounts:      mounts,
		ShmSize:     params.ShmSize,
		NetworkMode: "bridge",
		Init:        boolPtr(true), // Proper signal handling for the launcher
	}
	if params.GPUs {
		hostConfig.Resources = container.Resources{
			DeviceRequests: gpuDeviceRequests(),
		}
	}

	resp, err := r.client.ContainerCreate(
		ctx,
		containerConfig,
		hostConfig,
		nil, // Network config
		nil, // Platform config
		params.JobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	job := &Job{
		ID:        params.JobID,
		Image:     params.Image,
		State:     StateCreated,
		CreatedAt: time.Now(),
		Metadata: map[string]string{
			"container_id": resp.ID,
		},
	}

	r.mu.Lock()
	r.jobs[params.JobID] = job
	r.mu.Unlock()

	logger.Info("Training job created: %s (container: %s)", params.JobID, resp.ID[:12])

	return job, nil
}

// Start starts a created job container. The external process begins
// executing immediately.
func (r *Runtime) Start(ctx context.Context, jobID string) error {
	job, containerID, err := r.lookup(jobID)
	if err != nil {
		return err
	}

	logger.Info("Starting training job: %s", jobID)

	if err := r.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}

	r.mu.Lock()
	job.State = StateRunning
	job.StartedAt = time.Now()
	r.mu.Unlock()

	return nil
}

// Wait blocks until the job container terminates and returns its exit
// code.
//
// This is the single blocking operation of a training run: termination
// is controlled entirely by the external process or by an out-of-band
// stop. The job state is updated to exited or failed based on the code.
//
// Parameters:
//   - ctx: Context for cancellation
//   - jobID: Job to wait for
//
// Returns:
//   - The container exit code
//   - Error if the wait itself fails or the context is cancelled
func (r *Runtime) Wait(ctx context.Context, jobID string) (int64, error) {
	job, containerID, err := r.lookup(jobID)
	if err != nil {
		return -1, err
	}

	statusCh, errCh := r.client.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)

	select {
	case err := <-errCh:
		return -1, fmt.Errorf("failed to wait for container: %w", err)
	case status := <-statusCh:
		r.mu.Lock()
		job.ExitCode = status.StatusCode
		job.FinishedAt = time.Now()
		if status.StatusCode == 0 {
			job.State = StateExited
		} else {
			job.State = StateFailed
		}
		if status.Error != nil {
			job.Error = status.Error.Message
		}
		r.mu.Unlock()

		return status.StatusCode, nil
	}
}

// Stop gracefully stops a running job container.
//
// Docker sends SIGTERM and escalates to SIGKILL after the grace period.
// The container is preserved for log inspection and removal.
func (r *Runtime) Stop(ctx context.Context, jobID string) error {
	job, containerID, err := r.lookup(jobID)
	if err != nil {
		return err
	}

	logger.Info("Stopping training job: %s", jobID)

	timeout := stopTimeoutSeconds
	if err := r.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}

	r.mu.Lock()
	job.State = StateStopped
	job.FinishedAt = time.Now()
	r.mu.Unlock()

	logger.Info("Training job stopped: %s (container preserved)", jobID)

	return nil
}

// Remove removes a job container and its tracking entry.
func (r *Runtime) Remove(ctx context.Context, jobID string) error {
	_, containerID, err := r.lookup(jobID)
	if err != nil {
		return err
	}

	logger.Info("Removing training job: %s", jobID)

	removeOptions := container.RemoveOptions{
		Force:         true, // Remove even if running
		RemoveVolumes: true, // Clean up anonymous volumes
	}
	if err := r.client.ContainerRemove(ctx, containerID, removeOptions); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}

	r.mu.Lock()
	delete(r.jobs, jobID)
	r.mu.Unlock()

	return nil
}

// Get retrieves job information by ID.
func (r *Runtime) Get(ctx context.Context, jobID string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, exists := r.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	return job, nil
}

// List returns all jobs known to this runtime, including rediscovered
// containers from previous runs.
func (r *Runtime) List(ctx context.Context) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// Logs retrieves container logs for a job.
//
// The returned stream must be closed by the caller. When the container
// runs with a TTY the stream is raw terminal output; otherwise it uses
// Docker's multiplexed format.
//
// Parameters:
//   - ctx: Context for cancellation
//   - jobID: Job to read logs from
//   - follow: Stream new logs in real time when true
func (r *Runtime) Logs(ctx context.Context, jobID string, follow bool) (LogStream, error) {
	_, containerID, err := r.lookup(jobID)
	if err != nil {
		return nil, err
	}

	options := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
		Tail:       "all",
	}

	reader, err := r.client.ContainerLogs(ctx, containerID, options)
	if err != nil {
		return nil, fmt.Errorf("failed to get container logs: %w", err)
	}

	return &logStream{reader: reader}, nil
}

// loadExistingContainers discovers job containers from previous runs.
//
// Containers carrying the loractl job label are registered in the jobs
// map so ps, logs, stop and rm work across CLI invocations.
func (r *Runtime) loadExistingContainers(ctx context.Context) error {
	containers, err := r.client.ContainerList(ctx, container.ListOptions{
		All: true, // Include exited containers
		Filters: filters.NewArgs(
			filters.Arg("label", LabelJobID),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range containers {
		jobID := c.Labels[LabelJobID]
		if jobID == "" {
			continue
		}

		job := &Job{
			ID:        jobID,
			Image:     c.Labels[LabelImage],
			State:     jobStateFromContainer(c.State),
			CreatedAt: time.Unix(c.Created, 0),
			Metadata: map[string]string{
				"container_id": c.ID,
			},
		}

		// Exit codes live in the inspect response, not the list entry.
		if inspect, err := r.client.ContainerInspect(ctx, c.ID); err == nil && inspect.State != nil {
			job.ExitCode = int64(inspect.State.ExitCode)
			if job.State == StateExited && job.ExitCode != 0 {
				job.State = StateFailed
			}
		}

		r.jobs[jobID] = job
		logger.Debug("Loaded existing job: %s (state: %s)", jobID, job.State)
	}

	return nil
}

// lookup resolves a job and its container ID under the read lock.
func (r *Runtime) lookup(jobID string) (*Job, string, error) {
	r.mu.RLock()
	job, exists := r.jobs[jobID]
	r.mu.RUnlock()

	if !exists {
		return nil, "", fmt.Errorf("job not found: %s", jobID)
	}

	containerID := job.Metadata["container_id"]
	if containerID == "" {
		return nil, "", fmt.Errorf("container ID not found for job: %s", jobID)
	}

	return job, containerID, nil
}

// gpuDeviceRequests returns a device request exposing all host GPUs to
// the container, equivalent to `docker run --gpus all`.
func gpuDeviceRequests() []container.DeviceRequest {
	return []container.DeviceRequest{
		{
			Count:        -1, // All GPUs
			Capabilities: [][]string{{"gpu"}},
		},
	}
}

// jobStateFromContainer maps a Docker container state string to a job
// state. Exit codes are resolved separately via inspection.
func jobStateFromContainer(state string) JobState {
	switch state {
	case "created":
		return StateCreated
	case "running", "restarting", "paused":
		return StateRunning
	case "exited", "dead":
		return StateExited
	default:
		return StateUnknown
	}
}

// logStream implements LogStream over the Docker log reader.
type logStream struct {
	reader io.ReadCloser
}

func (s *logStream) Read(p []byte) (n int, err error) {
	return s.reader.Read(p)
}

func (s *logStream) Close() error {
	return s.reader.Close()
}

// boolPtr returns a pointer to a bool value, for Docker API fields that
// distinguish false from unset.
func boolPtr(b bool) *bool {
	return &b
}
