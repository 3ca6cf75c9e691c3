package launch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedops/loractl/internal/config"
)

// referenceArgs is the exact invocation for the default configuration.
var referenceArgs = []string{
	"accelerate",
	"launch",
	"--num_processes=1",
	"--mixed_precision=fp16",
	"peft_lora_embedding_semantic_search.py",
	"--dataset_name=../data/quora_dq_train.csv",
	"--max_length=70",
	"--model_name_or_path=intfloat/e5-small-v2",
	"--per_device_train_batch_size=64",
	"--per_device_eval_batch_size=128",
	"--learning_rate=5e-4",
	"--weight_decay=0.0",
	"--num_train_epochs=3",
	"--gradient_accumulation_steps=1",
	"--output_dir=../model/peft_lora_e5",
	"--with_tracking",
	"--report_to=tensorboard",
	"--seed=42",
	"--use_peft",
	"--checkpointing_steps=epoch",
	"--dataset_handling=streaming",
}

func TestArgsReferenceConfig(t *testing.T) {
	cfg := config.NewDefaultTrainingConfig()

	args, err := Args(&cfg)
	require.NoError(t, err)

	assert.Equal(t, referenceArgs, args)
}

func TestArgsDeterministic(t *testing.T) {
	cfg := config.NewDefaultTrainingConfig()

	first, err := Args(&cfg)
	require.NoError(t, err)
	second, err := Args(&cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestArgsOptionalFieldsOmitted(t *testing.T) {
	cfg := config.NewDefaultTrainingConfig()

	args, err := Args(&cfg)
	require.NoError(t, err)

	// Unset optional fields must not appear with substituted defaults.
	for _, arg := range args {
		assert.NotContains(t, arg, "--max_train_steps")
		assert.NotContains(t, arg, "--lr_scheduler_type")
		assert.NotContains(t, arg, "--num_warmup_steps")
		assert.NotContains(t, arg, "--resume_from_checkpoint")
		assert.NotContains(t, arg, "--push_to_hub")
	}
}

func TestArgsOptionalFieldsIncluded(t *testing.T) {
	cfg := config.NewDefaultTrainingConfig()
	cfg.MaxTrainSteps = 1000
	cfg.LRSchedulerType = "cosine"
	cfg.NumWarmupSteps = 100
	cfg.ResumeFromCheckpoint = "../model/peft_lora_e5/epoch_1"

	args, err := Args(&cfg)
	require.NoError(t, err)

	assert.Contains(t, args, "--max_train_steps=1000")
	assert.Contains(t, args, "--lr_scheduler_type=cosine")
	assert.Contains(t, args, "--num_warmup_steps=100")
	assert.Contains(t, args, "--resume_from_checkpoint=../model/peft_lora_e5/epoch_1")
}

func TestArgsDatasetHandlingChoices(t *testing.T) {
	for _, mode := range []string{"memory", "streaming"} {
		cfg := config.NewDefaultTrainingConfig()
		cfg.DatasetHandling = mode

		args, err := Args(&cfg)
		require.NoError(t, err, "mode %s must be accepted", mode)
		assert.Contains(t, args, "--dataset_handling="+mode)
	}
}

func TestArgsTrackingDisabled(t *testing.T) {
	cfg := config.NewDefaultTrainingConfig()
	cfg.WithTracking = false

	args, err := Args(&cfg)
	require.NoError(t, err)

	assert.NotContains(t, args, "--with_tracking")
	assert.NotContains(t, args, "--report_to=tensorboard")
}

func TestArgsPushToHub(t *testing.T) {
	cfg := config.NewDefaultTrainingConfig()
	cfg.PushToHub = true
	cfg.HubModelID = "someuser/peft-lora-e5"

	args, err := Args(&cfg)
	require.NoError(t, err)

	assert.Contains(t, args, "--push_to_hub")
	assert.Contains(t, args, "--hub_model_id=someuser/peft-lora-e5")
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.TrainingConfig)
	}{
		{"zero processes", func(c *config.TrainingConfig) { c.NumProcesses = 0 }},
		{"bad mixed precision", func(c *config.TrainingConfig) { c.MixedPrecision = "fp8" }},
		{"empty dataset", func(c *config.TrainingConfig) { c.DatasetName = "" }},
		{"empty model", func(c *config.TrainingConfig) { c.ModelNameOrPath = "" }},
		{"zero max length", func(c *config.TrainingConfig) { c.MaxLength = 0 }},
		{"zero train batch", func(c *config.TrainingConfig) { c.PerDeviceTrainBatchSize = 0 }},
		{"zero eval batch", func(c *config.TrainingConfig) { c.PerDeviceEvalBatchSize = 0 }},
		{"bad learning rate", func(c *config.TrainingConfig) { c.LearningRate = "fast" }},
		{"empty learning rate", func(c *config.TrainingConfig) { c.LearningRate = "" }},
		{"bad weight decay", func(c *config.TrainingConfig) { c.WeightDecay = "none" }},
		{"no epochs or steps", func(c *config.TrainingConfig) { c.NumTrainEpochs = 0 }},
		{"zero grad accum", func(c *config.TrainingConfig) { c.GradientAccumulationSteps = 0 }},
		{"bad scheduler", func(c *config.TrainingConfig) { c.LRSchedulerType = "exponential" }},
		{"bad report backend", func(c *config.TrainingConfig) { c.ReportTo = "mlflow" }},
		{"bad checkpointing", func(c *config.TrainingConfig) { c.CheckpointingSteps = "hourly" }},
		{"negative checkpointing", func(c *config.TrainingConfig) { c.CheckpointingSteps = "-5" }},
		{"bad dataset handling", func(c *config.TrainingConfig) { c.DatasetHandling = "mmap" }},
		{"hub push without output dir", func(c *config.TrainingConfig) {
			c.PushToHub = true
			c.OutputDir = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultTrainingConfig()
			tt.mutate(&cfg)

			require.Error(t, Validate(&cfg))

			_, err := Args(&cfg)
			require.Error(t, err, "Args must fail validation too")
		})
	}
}

func TestValidateNumericCheckpointing(t *testing.T) {
	cfg := config.NewDefaultTrainingConfig()
	cfg.CheckpointingSteps = "500"

	require.NoError(t, Validate(&cfg))
}

func TestCommandLine(t *testing.T) {
	args := []string{"accelerate", "launch", "--seed=42", "script.py"}
	assert.Equal(t, "accelerate launch --seed=42 script.py", CommandLine(args))
}

func TestCommandLineQuoting(t *testing.T) {
	args := []string{"accelerate", "--dataset_name=my data.csv", "--note=it's"}
	assert.Equal(t, `accelerate '--dataset_name=my data.csv' '--note=it'\''s'`, CommandLine(args))
}
