package config

// Training script and launcher identifiers. The script is an external
// dependency baked into the image; loractl only assembles its invocation.
const (
	// DefaultScript is the training entry point inside the container.
	DefaultScript = "peft_lora_embedding_semantic_search.py"

	// DefaultLauncher is the distributed-training launcher binary.
	DefaultLauncher = "accelerate"
)

// Dataset handling modes accepted by the training script.
const (
	DatasetHandlingMemory    = "memory"
	DatasetHandlingStreaming = "streaming"
)

// TrainingConfig is the mapping of hyperparameter names to values handed
// to the external training entry point.
//
// All values are opaque to loractl: they are validated only as far as the
// script's own argument parser constrains them (enum choices, positive
// counts) and are never otherwise interpreted or transformed. Learning
// rate and weight decay are kept as strings so the assembled command
// reproduces the configured spelling exactly (e.g., "5e-4" stays "5e-4").
type TrainingConfig struct {
	// NumProcesses is the process count for the launcher. The reference
	// setup runs single-process, which disables distributed coordination.
	NumProcesses int `yaml:"num_processes"`

	// MixedPrecision is the launcher's numeric mode: no, fp16 or bf16.
	MixedPrecision string `yaml:"mixed_precision"`

	// Script is the training entry point filename, resolved relative to
	// the image working directory.
	Script string `yaml:"script"`

	// DatasetName is the dataset path or HF hub name passed through to
	// the script.
	DatasetName string `yaml:"dataset_name"`

	// MaxLength is the maximum tokenized sequence length.
	MaxLength int `yaml:"max_length"`

	// ModelNameOrPath is the base model identifier or local path.
	ModelNameOrPath string `yaml:"model_name_or_path"`

	// PerDeviceTrainBatchSize is the per-device training batch size.
	PerDeviceTrainBatchSize int `yaml:"per_device_train_batch_size"`

	// PerDeviceEvalBatchSize is the per-device evaluation batch size.
	PerDeviceEvalBatchSize int `yaml:"per_device_eval_batch_size"`

	// LearningRate is the initial learning rate, passed verbatim.
	LearningRate string `yaml:"learning_rate"`

	// WeightDecay is the weight decay, passed verbatim.
	WeightDecay string `yaml:"weight_decay"`

	// NumTrainEpochs is the total number of training epochs.
	NumTrainEpochs int `yaml:"num_train_epochs"`

	// MaxTrainSteps optionally caps total steps, overriding epochs.
	// Zero means unset and the flag is omitted.
	MaxTrainSteps int `yaml:"max_train_steps"`

	// GradientAccumulationSteps is the number of update steps to
	// accumulate before a backward pass.
	GradientAccumulationSteps int `yaml:"gradient_accumulation_steps"`

	// LRSchedulerType selects the learning-rate schedule. Empty means
	// the script's own default; the flag is omitted.
	LRSchedulerType string `yaml:"lr_scheduler_type"`

	// NumWarmupSteps is the scheduler warmup step count. Zero matches
	// the script default and the flag is omitted.
	NumWarmupSteps int `yaml:"num_warmup_steps"`

	// OutputDir is where the trained model artifact and logs are written.
	OutputDir string `yaml:"output_dir"`

	// Seed is the random seed for reproducible training.
	Seed int `yaml:"seed"`

	// WithTracking enables experiment tracking in the script.
	WithTracking bool `yaml:"with_tracking"`

	// ReportTo is the tracking backend: tensorboard, wandb, comet_ml,
	// clearml or all. Only meaningful when WithTracking is set.
	ReportTo string `yaml:"report_to"`

	// UsePEFT enables parameter-efficient fine-tuning (LoRA adapters).
	UsePEFT bool `yaml:"use_peft"`

	// CheckpointingSteps is "epoch" or a step count as a string.
	// Empty means checkpointing is left to the script default.
	CheckpointingSteps string `yaml:"checkpointing_steps"`

	// ResumeFromCheckpoint optionally resumes from a checkpoint folder.
	ResumeFromCheckpoint string `yaml:"resume_from_checkpoint"`

	// DatasetHandling selects how the dataset is read: "memory" loads it
	// fully, "streaming" reads it incrementally. Mutually exclusive
	// string choices.
	DatasetHandling string `yaml:"dataset_handling"`

	// PushToHub publishes the trained model to the HF hub.
	PushToHub bool `yaml:"push_to_hub"`

	// HubModelID is the hub repository kept in sync with OutputDir.
	HubModelID string `yaml:"hub_model_id"`

	// HubToken authenticates the hub push. Never logged.
	HubToken string `yaml:"hub_token"`
}

// NewDefaultTrainingConfig returns the literal reference configuration
// for the quora duplicate-questions fine-tuning run.
func NewDefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		NumProcesses:              1,
		MixedPrecision:            "fp16",
		Script:                    DefaultScript,
		DatasetName:               "../data/quora_dq_train.csv",
		MaxLength:                 70,
		ModelNameOrPath:           "intfloat/e5-small-v2",
		PerDeviceTrainBatchSize:   64,
		PerDeviceEvalBatchSize:    128,
		LearningRate:              "5e-4",
		WeightDecay:               "0.0",
		NumTrainEpochs:            3,
		GradientAccumulationSteps: 1,
		OutputDir:                 "../model/peft_lora_e5",
		Seed:                      42,
		WithTracking:              true,
		ReportTo:                  "tensorboard",
		UsePEFT:                   true,
		CheckpointingSteps:        "epoch",
		DatasetHandling:           DatasetHandlingStreaming,
	}
}
