// Package config provides configuration management for the loractl application.
//
// This package handles all configuration-related functionality including:
//   - Training image definition (base image, dependency manifest, working dir)
//   - Training launch hyperparameters
//   - Default values matching the reference fine-tuning setup
//
// Configuration is loaded in three layers, later layers overriding earlier:
//   1. Built-in defaults (NewDefaultConfig)
//   2. An optional YAML file (loractl.yaml)
//   3. An optional .env file supplying the image name and tag
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/embedops/loractl/internal/logger"
)

const (
	// DefaultConfigFile is the YAML configuration file looked up in the
	// project directory when --config is not given.
	DefaultConfigFile = "loractl.yaml"

	// DefaultEnvFile is the dotenv file providing IMAGE_NAME and IMAGE_TAG.
	DefaultEnvFile = ".env"

	// EnvImageName is the .env variable overriding the image name.
	EnvImageName = "IMAGE_NAME"

	// EnvImageTag is the .env variable overriding the image tag.
	EnvImageTag = "IMAGE_TAG"
)

// Config is the root configuration for loractl.
//
// It combines the container image definition with the training launch
// parameters. The struct is serialized to/from YAML for the config file.
type Config struct {
	// Image holds the container image build configuration.
	Image ImageConfig `yaml:"image"`

	// Training holds the hyperparameters passed to the external
	// training entry point.
	Training TrainingConfig `yaml:"training"`
}

// NewDefaultConfig creates a configuration instance with the reference
// defaults for the e5-small-v2 semantic-search fine-tuning run.
//
// Returns:
//   - A pointer to a newly created Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Image:    NewDefaultImageConfig(),
		Training: NewDefaultTrainingConfig(),
	}
}

// Load reads a YAML configuration file on top of the defaults.
//
// Fields absent from the file keep their default values. A missing file
// is not an error when optional is true, so a bare checkout works with
// defaults only.
//
// Parameters:
//   - path: Path to the YAML configuration file
//   - optional: If true, a missing file yields the default configuration
//
// Returns:
//   - Loaded configuration
//   - Error if the file cannot be read or parsed
func Load(path string, optional bool) (*Config, error) {
	cfg := NewDefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && optional {
			logger.Debug("Config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	logger.Debug("Loaded configuration from %s", path)

	return cfg, nil
}

// ApplyEnvFile loads a dotenv file and applies the image name/tag
// overrides it provides.
//
// A missing file is silently ignored so .env files remain optional.
// Variables already present in the process environment take precedence,
// matching godotenv's non-overriding load semantics.
//
// Parameters:
//   - path: Path to the .env file
//
// Returns:
//   - Error if the file exists but cannot be parsed
func (c *Config) ApplyEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}

	if name := os.Getenv(EnvImageName); name != "" {
		logger.Debug("Image name overridden from environment: %s", name)
		c.Image.Name = name
	}
	if tag := os.Getenv(EnvImageTag); tag != "" {
		logger.Debug("Image tag overridden from environment: %s", tag)
		c.Image.Tag = tag
	}

	return nil
}
