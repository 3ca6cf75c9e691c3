package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 1, cfg.Training.NumProcesses)
	assert.Equal(t, "fp16", cfg.Training.MixedPrecision)
	assert.Equal(t, "../data/quora_dq_train.csv", cfg.Training.DatasetName)
	assert.Equal(t, 70, cfg.Training.MaxLength)
	assert.Equal(t, "intfloat/e5-small-v2", cfg.Training.ModelNameOrPath)
	assert.Equal(t, 64, cfg.Training.PerDeviceTrainBatchSize)
	assert.Equal(t, 128, cfg.Training.PerDeviceEvalBatchSize)
	assert.Equal(t, "5e-4", cfg.Training.LearningRate)
	assert.Equal(t, "0.0", cfg.Training.WeightDecay)
	assert.Equal(t, 3, cfg.Training.NumTrainEpochs)
	assert.Equal(t, 1, cfg.Training.GradientAccumulationSteps)
	assert.Equal(t, "../model/peft_lora_e5", cfg.Training.OutputDir)
	assert.Equal(t, 42, cfg.Training.Seed)
	assert.True(t, cfg.Training.WithTracking)
	assert.Equal(t, "tensorboard", cfg.Training.ReportTo)
	assert.True(t, cfg.Training.UsePEFT)
	assert.Equal(t, "epoch", cfg.Training.CheckpointingSteps)
	assert.Equal(t, DatasetHandlingStreaming, cfg.Training.DatasetHandling)

	assert.Equal(t, "peft-lora-e5:latest", cfg.Image.Ref())
	assert.Equal(t, DefaultWorkDir, cfg.Image.WorkDir)
	assert.NotEmpty(t, cfg.Image.Requirements)
}

func TestLoadMissingOptional(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), true)
	require.NoError(t, err)

	assert.Equal(t, NewDefaultConfig(), cfg)
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.Error(t, err)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loractl.yaml")
	content := `
image:
  name: my-trainer
  tag: v2
training:
  num_train_epochs: 10
  dataset_handling: memory
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, "my-trainer:v2", cfg.Image.Ref())
	assert.Equal(t, 10, cfg.Training.NumTrainEpochs)
	assert.Equal(t, DatasetHandlingMemory, cfg.Training.DatasetHandling)

	// Untouched fields keep their defaults.
	assert.Equal(t, "intfloat/e5-small-v2", cfg.Training.ModelNameOrPath)
	assert.Equal(t, DefaultBaseImage, cfg.Image.BaseImage)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loractl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("image: ["), 0644))

	_, err := Load(path, false)
	require.Error(t, err)
}

func TestApplyEnvFile(t *testing.T) {
	os.Unsetenv(EnvImageName)
	os.Unsetenv(EnvImageTag)
	t.Cleanup(func() {
		os.Unsetenv(EnvImageName)
		os.Unsetenv(EnvImageTag)
	})

	path := filepath.Join(t.TempDir(), ".env")
	content := "IMAGE_NAME=custom-trainer\nIMAGE_TAG=2026-08\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := NewDefaultConfig()
	require.NoError(t, cfg.ApplyEnvFile(path))

	assert.Equal(t, "custom-trainer:2026-08", cfg.Image.Ref())
}

func TestApplyEnvFileMissing(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.ApplyEnvFile(filepath.Join(t.TempDir(), ".env")))

	assert.Equal(t, DefaultImageName, cfg.Image.Name)
}

func TestShmSizeBytes(t *testing.T) {
	cfg := NewDefaultImageConfig()

	size, err := cfg.ShmSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(8*1024*1024*1024), size)

	cfg.ShmSize = "lots"
	_, err = cfg.ShmSizeBytes()
	require.Error(t, err)
}

func TestRequirementString(t *testing.T) {
	assert.Equal(t, "peft==0.10.0", Requirement{Name: "peft", Version: "0.10.0"}.String())
	assert.Equal(t, "tqdm", Requirement{Name: "tqdm"}.String())
}
