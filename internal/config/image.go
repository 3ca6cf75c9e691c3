package config

import (
	"fmt"

	units "github.com/docker/go-units"
)

const (
	// DefaultBaseImage is the CUDA-enabled base layer for the training image.
	DefaultBaseImage = "pytorch/pytorch:2.2.2-cuda12.1-cudnn8-runtime"

	// DefaultImageName is the training image name when no .env override exists.
	DefaultImageName = "peft-lora-e5"

	// DefaultImageTag is the training image tag when no .env override exists.
	DefaultImageTag = "latest"

	// DefaultWorkDir is the in-container working directory, set to the
	// location of the launch script.
	DefaultWorkDir = "/workspace/script"

	// DefaultShmSize is the shared-memory size for training containers.
	// PyTorch dataloader workers communicate through /dev/shm, and the
	// Docker default of 64MB is too small for batch tensors.
	DefaultShmSize = "8g"
)

// Requirement is a single name/version entry of the dependency manifest.
type Requirement struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// String renders the entry in pip requirements format.
func (r Requirement) String() string {
	if r.Version == "" {
		return r.Name
	}
	return fmt.Sprintf("%s==%s", r.Name, r.Version)
}

// ImageConfig describes the reproducible execution environment for the
// training run: a base image reference, a dependency manifest and the
// working directory of the launch script.
type ImageConfig struct {
	// BaseImage is the GPU-enabled base layer reference.
	BaseImage string `yaml:"base_image"`

	// Name is the built image name. Overridable via IMAGE_NAME in .env.
	Name string `yaml:"name"`

	// Tag is the built image tag. Overridable via IMAGE_TAG in .env.
	Tag string `yaml:"tag"`

	// WorkDir is the in-container working directory where the training
	// script lives.
	WorkDir string `yaml:"workdir"`

	// ShmSize is the container shared-memory size as a human-readable
	// string (e.g., "8g").
	ShmSize string `yaml:"shm_size"`

	// Requirements is the Python dependency manifest installed into the
	// image. Versions are pinned for reproducibility.
	Requirements []Requirement `yaml:"requirements"`
}

// NewDefaultImageConfig returns the image configuration for the reference
// fine-tuning environment. The manifest pins the libraries the training
// script imports.
func NewDefaultImageConfig() ImageConfig {
	return ImageConfig{
		BaseImage: DefaultBaseImage,
		Name:      DefaultImageName,
		Tag:       DefaultImageTag,
		WorkDir:   DefaultWorkDir,
		ShmSize:   DefaultShmSize,
		Requirements: []Requirement{
			{Name: "peft", Version: "0.10.0"},
			{Name: "transformers", Version: "4.39.3"},
			{Name: "accelerate", Version: "0.29.2"},
			{Name: "datasets", Version: "2.18.0"},
			{Name: "evaluate", Version: "0.4.1"},
			{Name: "huggingface_hub", Version: "0.22.2"},
			{Name: "tensorboard", Version: "2.16.2"},
			{Name: "pandas", Version: "2.2.1"},
			{Name: "tinydb", Version: "4.8.0"},
			{Name: "tqdm", Version: "4.66.2"},
		},
	}
}

// Ref returns the full image reference in name:tag form.
func (c *ImageConfig) Ref() string {
	return fmt.Sprintf("%s:%s", c.Name, c.Tag)
}

// ShmSizeBytes parses the configured shared-memory size into bytes.
//
// Returns:
//   - Size in bytes
//   - Error if the string is not a valid size (e.g., "8g", "512mb")
func (c *ImageConfig) ShmSizeBytes() (int64, error) {
	size, err := units.RAMInBytes(c.ShmSize)
	if err != nil {
		return 0, fmt.Errorf("invalid shm_size %q: %w", c.ShmSize, err)
	}
	return size, nil
}
