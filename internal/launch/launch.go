// Package launch assembles the command line for the external training
// entry point.
//
// The package turns a TrainingConfig into the argument vector handed to
// the distributed-training launcher:
//
//	accelerate launch --num_processes=1 --mixed_precision=fp16 \
//	    peft_lora_embedding_semantic_search.py --dataset_name=... ...
//
// Assembly is deterministic: the same configuration always yields the
// same vector, field order is fixed, and optional fields that are unset
// are omitted rather than substituted with defaults. Validation covers
// exactly the constraints the script's own argument parser enforces
// (enum choices, flag interdependencies); every value is otherwise
// passed through opaquely.
package launch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/embedops/loractl/internal/config"
)

// Enum choices accepted by the launcher and the training script.
var (
	mixedPrecisionChoices = []string{"no", "fp16", "bf16"}

	lrSchedulerChoices = []string{
		"linear",
		"cosine",
		"cosine_with_restarts",
		"polynomial",
		"constant",
		"constant_with_warmup",
	}

	reportToChoices = []string{"tensorboard", "wandb", "comet_ml", "clearml", "all"}

	datasetHandlingChoices = []string{
		config.DatasetHandlingMemory,
		config.DatasetHandlingStreaming,
	}
)

// Validate checks a training configuration against the constraints of
// the launcher and the training script's argument parser.
//
// Validation fails fast, before any image build or container creation,
// so a bad enum value never costs a container start.
//
// Returns:
//   - nil if the configuration assembles into a command the external
//     launcher accepts
//   - Error naming the offending field otherwise
func Validate(cfg *config.TrainingConfig) error {
	if cfg.NumProcesses < 1 {
		return fmt.Errorf("num_processes must be at least 1, got %d", cfg.NumProcesses)
	}
	if err := checkChoice("mixed_precision", cfg.MixedPrecision, mixedPrecisionChoices); err != nil {
		return err
	}
	if cfg.Script == "" {
		return fmt.Errorf("script must not be empty")
	}
	if cfg.DatasetName == "" {
		return fmt.Errorf("dataset_name is required")
	}
	if cfg.ModelNameOrPath == "" {
		return fmt.Errorf("model_name_or_path is required")
	}
	if cfg.MaxLength <= 0 {
		return fmt.Errorf("max_length must be positive, got %d", cfg.MaxLength)
	}
	if cfg.PerDeviceTrainBatchSize <= 0 {
		return fmt.Errorf("per_device_train_batch_size must be positive, got %d", cfg.PerDeviceTrainBatchSize)
	}
	if cfg.PerDeviceEvalBatchSize <= 0 {
		return fmt.Errorf("per_device_eval_batch_size must be positive, got %d", cfg.PerDeviceEvalBatchSize)
	}
	if err := checkFloat("learning_rate", cfg.LearningRate); err != nil {
		return err
	}
	if err := checkFloat("weight_decay", cfg.WeightDecay); err != nil {
		return err
	}
	if cfg.NumTrainEpochs <= 0 && cfg.MaxTrainSteps <= 0 {
		return fmt.Errorf("either num_train_epochs or max_train_steps must be positive")
	}
	if cfg.GradientAccumulationSteps <= 0 {
		return fmt.Errorf("gradient_accumulation_steps must be positive, got %d", cfg.GradientAccumulationSteps)
	}
	if cfg.LRSchedulerType != "" {
		if err := checkChoice("lr_scheduler_type", cfg.LRSchedulerType, lrSchedulerChoices); err != nil {
			return err
		}
	}
	if cfg.WithTracking {
		if err := checkChoice("report_to", cfg.ReportTo, reportToChoices); err != nil {
			return err
		}
	}
	if cfg.CheckpointingSteps != "" && cfg.CheckpointingSteps != "epoch" {
		n, err := strconv.Atoi(cfg.CheckpointingSteps)
		if err != nil || n <= 0 {
			return fmt.Errorf("checkpointing_steps must be \"epoch\" or a positive integer, got %q", cfg.CheckpointingSteps)
		}
	}
	if err := checkChoice("dataset_handling", cfg.DatasetHandling, datasetHandlingChoices); err != nil {
		return err
	}
	// The script asserts an output_dir exists when pushing to the hub.
	if cfg.PushToHub && cfg.OutputDir == "" {
		return fmt.Errorf("push_to_hub requires output_dir to be set")
	}

	return nil
}

// Args assembles the full argument vector for the training invocation,
// starting with the launcher binary name.
//
// The vector contains exactly the configured flags with their configured
// values: boolean script switches appear as bare flags only when enabled
// and optional fields are omitted when unset.
//
// Parameters:
//   - cfg: Training configuration to assemble
//
// Returns:
//   - Argument vector, argv[0] being the launcher binary
//   - Error if the configuration fails validation
func Args(cfg *config.TrainingConfig) ([]string, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	args := []string{
		config.DefaultLauncher,
		"launch",
		fmt.Sprintf("--num_processes=%d", cfg.NumProcesses),
		fmt.Sprintf("--mixed_precision=%s", cfg.MixedPrecision),
		cfg.Script,
	}

	args = append(args,
		fmt.Sprintf("--dataset_name=%s", cfg.DatasetName),
		fmt.Sprintf("--max_length=%d", cfg.MaxLength),
		fmt.Sprintf("--model_name_or_path=%s", cfg.ModelNameOrPath),
		fmt.Sprintf("--per_device_train_batch_size=%d", cfg.PerDeviceTrainBatchSize),
		fmt.Sprintf("--per_device_eval_batch_size=%d", cfg.PerDeviceEvalBatchSize),
		fmt.Sprintf("--learning_rate=%s", cfg.LearningRate),
		fmt.Sprintf("--weight_decay=%s", cfg.WeightDecay),
		fmt.Sprintf("--num_train_epochs=%d", cfg.NumTrainEpochs),
	)
	if cfg.MaxTrainSteps > 0 {
		args = append(args, fmt.Sprintf("--max_train_steps=%d", cfg.MaxTrainSteps))
	}
	args = append(args, fmt.Sprintf("--gradient_accumulation_steps=%d", cfg.GradientAccumulationSteps))
	if cfg.LRSchedulerType != "" {
		args = append(args, fmt.Sprintf("--lr_scheduler_type=%s", cfg.LRSchedulerType))
	}
	if cfg.NumWarmupSteps > 0 {
		args = append(args, fmt.Sprintf("--num_warmup_steps=%d", cfg.NumWarmupSteps))
	}
	if cfg.OutputDir != "" {
		args = append(args, fmt.Sprintf("--output_dir=%s", cfg.OutputDir))
	}
	if cfg.WithTracking {
		args = append(args, "--with_tracking", fmt.Sprintf("--report_to=%s", cfg.ReportTo))
	}
	args = append(args, fmt.Sprintf("--seed=%d", cfg.Seed))
	if cfg.UsePEFT {
		args = append(args, "--use_peft")
	}
	if cfg.CheckpointingSteps != "" {
		args = append(args, fmt.Sprintf("--checkpointing_steps=%s", cfg.CheckpointingSteps))
	}
	if cfg.ResumeFromCheckpoint != "" {
		args = append(args, fmt.Sprintf("--resume_from_checkpoint=%s", cfg.ResumeFromCheckpoint))
	}
	args = append(args, fmt.Sprintf("--dataset_handling=%s", cfg.DatasetHandling))
	if cfg.PushToHub {
		args = append(args, "--push_to_hub")
		if cfg.HubModelID != "" {
			args = append(args, fmt.Sprintf("--hub_model_id=%s", cfg.HubModelID))
		}
		if cfg.HubToken != "" {
			args = append(args, fmt.Sprintf("--hub_token=%s", cfg.HubToken))
		}
	}

	return args, nil
}

// CommandLine renders the assembled vector as a single shell-safe line
// for dry-run display.
//
// Arguments containing whitespace or shell metacharacters are
// single-quoted; everything else is printed verbatim.
func CommandLine(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

// checkChoice validates an enum-valued field against its accepted values.
func checkChoice(field, value string, choices []string) error {
	for _, c := range choices {
		if value == c {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of [%s], got %q", field, strings.Join(choices, ", "), value)
}

// checkFloat validates that a verbatim numeric field parses as a float.
func checkFloat(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return fmt.Errorf("%s must be numeric, got %q", field, value)
	}
	return nil
}

// shellQuote single-quotes an argument when it contains characters a
// POSIX shell would interpret.
func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, " \t\n\"'`$&|;<>()*?[]#~%{}\\") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
