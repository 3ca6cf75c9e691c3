package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/embedops/loractl/internal/config"
	"github.com/embedops/loractl/internal/image"
	"github.com/embedops/loractl/internal/launch"
	"github.com/embedops/loractl/internal/logger"
	"github.com/embedops/loractl/internal/runtime"
)

// containerProjectDir is where the host project directory is mounted,
// shadowing the copy baked into the image so outputs land on the host.
const containerProjectDir = "/workspace"

// TrainOptions holds options for the train command
type TrainOptions struct {
	*GlobalOptions

	// Name is the job name; a timestamped name is generated when empty
	Name string

	// DryRun prints the assembled command without executing anything
	DryRun bool

	// NoGPU disables the GPU device request (CPU-only debugging runs)
	NoGPU bool

	// Hyperparameter overrides, applied only when the flag was set
	NumProcesses    int
	MixedPrecision  string
	Dataset         string
	MaxLength       int
	Model           string
	TrainBatchSize  int
	EvalBatchSize   int
	LearningRate    string
	WeightDecay     string
	Epochs          int
	MaxSteps        int
	GradAccumSteps  int
	Scheduler       string
	WarmupSteps     int
	OutputDir       string
	ReportTo        string
	Seed            int
	Checkpointing   string
	DatasetHandling string
	ResumeFrom      string
}

// NewTrainCommand creates the train command.
//
// The train command assembles the launch invocation and runs it inside
// the training image, synchronously. The training process exit code
// becomes the command's exit code.
//
// Usage:
//
//	loractl train [OPTIONS]
//
// Examples:
//
//	# Run with the configured hyperparameters
//	loractl train
//
//	# Inspect the exact command without executing
//	loractl train --dry-run
//
//	# Override hyperparameters for a quick experiment
//	loractl train --epochs 1 --dataset-handling memory
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for launching a training run
func NewTrainCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &TrainOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Launch a fine-tuning run",
		Long: `Launch the LoRA fine-tuning script inside the training image.

The command assembles the accelerate launch invocation from configuration
and flag overrides, creates a container with GPU access and the project
directory mounted, and waits for the training process to terminate. Any
non-zero exit from the training process propagates as the exit code of
this command. There is no retry and no timeout.

Use --dry-run to print the exact assembled command without building,
creating or running anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "",
		"job name (default: train-<timestamp>)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false,
		"print the assembled launch command and exit")
	cmd.Flags().BoolVar(&opts.NoGPU, "no-gpu", false,
		"run without a GPU device request")

	cmd.Flags().IntVar(&opts.NumProcesses, "num-processes", 0,
		"launcher process count")
	cmd.Flags().StringVar(&opts.MixedPrecision, "mixed-precision", "",
		"numeric mode: no, fp16 or bf16")
	cmd.Flags().StringVar(&opts.Dataset, "dataset", "",
		"dataset path or hub name")
	cmd.Flags().IntVar(&opts.MaxLength, "max-length", 0,
		"maximum tokenized sequence length")
	cmd.Flags().StringVar(&opts.Model, "model", "",
		"base model identifier or path")
	cmd.Flags().IntVar(&opts.TrainBatchSize, "train-batch-size", 0,
		"per-device training batch size")
	cmd.Flags().IntVar(&opts.EvalBatchSize, "eval-batch-size", 0,
		"per-device evaluation batch size")
	cmd.Flags().StringVar(&opts.LearningRate, "learning-rate", "",
		"initial learning rate")
	cmd.Flags().StringVar(&opts.WeightDecay, "weight-decay", "",
		"weight decay")
	cmd.Flags().IntVar(&opts.Epochs, "epochs", 0,
		"number of training epochs")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0,
		"total training steps, overrides epochs")
	cmd.Flags().IntVar(&opts.GradAccumSteps, "grad-accum", 0,
		"gradient accumulation steps")
	cmd.Flags().StringVar(&opts.Scheduler, "scheduler", "",
		"learning-rate scheduler type")
	cmd.Flags().IntVar(&opts.WarmupSteps, "warmup-steps", 0,
		"scheduler warmup steps")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "",
		"model artifact and log output directory")
	cmd.Flags().StringVar(&opts.ReportTo, "report-to", "",
		"tracking backend: tensorboard, wandb, comet_ml, clearml or all")
	cmd.Flags().IntVar(&opts.Seed, "seed", 0,
		"random seed")
	cmd.Flags().StringVar(&opts.Checkpointing, "checkpointing", "",
		"checkpointing granularity: \"epoch\" or a step count")
	cmd.Flags().StringVar(&opts.DatasetHandling, "dataset-handling", "",
		"dataset handling mode: memory or streaming")
	cmd.Flags().StringVar(&opts.ResumeFrom, "resume-from", "",
		"checkpoint folder to resume from")

	return cmd
}

// runTrain executes the train command logic.
//
// Control flow: assemble and validate the argument vector, then create
// the container, start it, stream its logs and block until the external
// process exits. A non-zero exit code terminates this process with the
// same code.
func runTrain(cmd *cobra.Command, opts *TrainOptions) error {
	cfg, err := loadConfig(opts.GlobalOptions)
	if err != nil {
		return err
	}
	applyTrainingOverrides(cmd, opts, &cfg.Training)

	args, err := launch.Args(&cfg.Training)
	if err != nil {
		return err
	}

	if opts.DryRun {
		fmt.Fprintln(cmd.OutOrStdout(), launch.CommandLine(args))
		return nil
	}

	ctx := context.Background()

	projectDir, err := filepath.Abs(opts.ProjectDir)
	if err != nil {
		return fmt.Errorf("failed to resolve project directory: %w", err)
	}

	// Fail fast on a missing dataset before any Docker call, so a bad
	// path never costs an image check or a container start.
	if hostPath, ok := hostDatasetPath(projectDir, cfg.Image.WorkDir, cfg.Training.DatasetName); ok {
		if _, err := os.Stat(hostPath); err != nil {
			return fmt.Errorf("dataset %s not found at %s: %w",
				cfg.Training.DatasetName, hostPath, err)
		}
	}

	ref := cfg.Image.Ref()
	exists, err := image.Exists(ctx, ref)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("image %s not found locally, run 'loractl build' first", ref)
	}

	shmSize, err := cfg.Image.ShmSizeBytes()
	if err != nil {
		return err
	}

	rt, err := runtime.NewRuntime()
	if err != nil {
		return err
	}

	jobID := opts.Name
	if jobID == "" {
		jobID = fmt.Sprintf("train-%s", time.Now().Format("20060102-150405"))
	}

	code, err := executeJob(ctx, rt, &runtime.CreateParams{
		JobID:   jobID,
		Image:   ref,
		Cmd:     args,
		WorkDir: cfg.Image.WorkDir,
		Mounts:  map[string]string{projectDir: containerProjectDir},
		ShmSize: shmSize,
		GPUs:    !opts.NoGPU,
		TTY:     true,
	}, os.Stdout)
	if err != nil {
		return err
	}

	if code != 0 {
		logger.Error("Training job %s failed with exit code %d", jobID, code)
		os.Exit(int(code))
	}

	logger.Info("Training job %s finished successfully", jobID)

	return nil
}

// trainerRuntime is the slice of the job runtime the train loop uses.
type trainerRuntime interface {
	Create(ctx context.Context, params *runtime.CreateParams) (*runtime.Job, error)
	Start(ctx context.Context, jobID string) error
	Stop(ctx context.Context, jobID string) error
	Wait(ctx context.Context, jobID string) (int64, error)
	Logs(ctx context.Context, jobID string, follow bool) (runtime.LogStream, error)
}

// logDrainTimeout bounds the wait for the log stream to finish after
// the training process has exited.
const logDrainTimeout = 5 * time.Second

// executeJob creates and starts a training job, streams its output to
// out, and blocks until the external process exits.
//
// The log stream is drained after Wait returns: the daemon closes a
// followed stream once the process exits, but its final bytes — the
// error output explaining a failure — may still be in flight when the
// wait fires. Returning before the copy finishes would truncate them.
//
// Returns:
//   - The training process exit code
//   - Error if any container operation fails
func executeJob(ctx context.Context, rt trainerRuntime, params *runtime.CreateParams, out io.Writer) (int64, error) {
	job, err := rt.Create(ctx, params)
	if err != nil {
		return -1, err
	}

	if err := rt.Start(ctx, job.ID); err != nil {
		return -1, err
	}

	// Forward Ctrl+C to a graceful container stop. A second signal
	// kills this process and leaves the container to Docker.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Warn("Interrupt received, stopping job %s", job.ID)
		if err := rt.Stop(context.Background(), job.ID); err != nil {
			logger.Error("Failed to stop job: %v", err)
		}
	}()

	// Stream training output while waiting for termination.
	logDone := make(chan struct{})
	go func() {
		defer close(logDone)
		stream, err := rt.Logs(ctx, job.ID, true)
		if err != nil {
			logger.Warn("Failed to stream job logs: %v", err)
			return
		}
		defer stream.Close()
		io.Copy(out, stream)
	}()

	code, err := rt.Wait(ctx, job.ID)
	if err != nil {
		return -1, err
	}

	select {
	case <-logDone:
	case <-time.After(logDrainTimeout):
		logger.Warn("Timed out draining logs for job %s", job.ID)
	}

	return code, nil
}

// hostDatasetPath resolves a container dataset path to its host
// location under the project mount.
//
// Only values that look like filesystem paths are resolved: relative
// paths (./ or ../ prefixed) against the image working directory, and
// absolute paths directly. Anything else is a dataset hub name and has
// no host-side file to check. Paths resolving outside the project
// mount cannot be checked either.
//
// Returns:
//   - The host path and true when the dataset is checkable on the host
//   - false when the value is a hub name or outside the mount
func hostDatasetPath(projectDir, workDir, dataset string) (string, bool) {
	if !strings.HasPrefix(dataset, "./") && !strings.HasPrefix(dataset, "../") && !path.IsAbs(dataset) {
		return "", false
	}

	inContainer := dataset
	if !path.IsAbs(inContainer) {
		inContainer = path.Join(workDir, dataset)
	}

	rel, err := filepath.Rel(containerProjectDir, inContainer)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}

	return filepath.Join(projectDir, filepath.FromSlash(rel)), true
}

// applyTrainingOverrides merges flag overrides into the training
// configuration. Only flags the user actually set are applied, so the
// configuration file keeps authority over untouched fields.
func applyTrainingOverrides(cmd *cobra.Command, opts *TrainOptions, cfg *config.TrainingConfig) {
	flags := cmd.Flags()

	if flags.Changed("num-processes") {
		cfg.NumProcesses = opts.NumProcesses
	}
	if flags.Changed("mixed-precision") {
		cfg.MixedPrecision = opts.MixedPrecision
	}
	if flags.Changed("dataset") {
		cfg.DatasetName = opts.Dataset
	}
	if flags.Changed("max-length") {
		cfg.MaxLength = opts.MaxLength
	}
	if flags.Changed("model") {
		cfg.ModelNameOrPath = opts.Model
	}
	if flags.Changed("train-batch-size") {
		cfg.PerDeviceTrainBatchSize = opts.TrainBatchSize
	}
	if flags.Changed("eval-batch-size") {
		cfg.PerDeviceEvalBatchSize = opts.EvalBatchSize
	}
	if flags.Changed("learning-rate") {
		cfg.LearningRate = opts.LearningRate
	}
	if flags.Changed("weight-decay") {
		cfg.WeightDecay = opts.WeightDecay
	}
	if flags.Changed("epochs") {
		cfg.NumTrainEpochs = opts.Epochs
	}
	if flags.Changed("max-steps") {
		cfg.MaxTrainSteps = opts.MaxSteps
	}
	if flags.Changed("grad-accum") {
		cfg.GradientAccumulationSteps = opts.GradAccumSteps
	}
	if flags.Changed("scheduler") {
		cfg.LRSchedulerType = opts.Scheduler
	}
	if flags.Changed("warmup-steps") {
		cfg.NumWarmupSteps = opts.WarmupSteps
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = opts.OutputDir
	}
	if flags.Changed("report-to") {
		cfg.ReportTo = opts.ReportTo
		cfg.WithTracking = true
	}
	if flags.Changed("seed") {
		cfg.Seed = opts.Seed
	}
	if flags.Changed("checkpointing") {
		cfg.CheckpointingSteps = opts.Checkpointing
	}
	if flags.Changed("dataset-handling") {
		cfg.DatasetHandling = opts.DatasetHandling
	}
	if flags.Changed("resume-from") {
		cfg.ResumeFromCheckpoint = opts.ResumeFrom
	}
}
