// Package app provides the command-line interface implementation for
// loractl.
//
// This package contains all CLI commands and their implementations,
// organized hierarchically with cobra: a root command and one subcommand
// per operation (build, train, ps, logs, stop, rm, version).
package app

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/embedops/loractl/internal/config"
	"github.com/embedops/loractl/internal/logger"
)

const (
	// cliName is the name of the CLI application
	cliName = "loractl"

	// cliDescription is the short description shown in help text
	cliDescription = "loractl - containerized LoRA fine-tuning launcher"
)

// GlobalOptions holds options that are common to all commands
type GlobalOptions struct {
	// ProjectDir is the project directory containing the training script,
	// dataset and output directories. It becomes the image build context
	// and the container bind mount.
	ProjectDir string

	// ConfigFile is the YAML configuration file path. Empty means
	// loractl.yaml in the project directory, used only when present.
	ConfigFile string

	// EnvFile is the dotenv file supplying IMAGE_NAME and IMAGE_TAG.
	EnvFile string

	// Verbose enables debug output
	Verbose bool
}

// NewLoractlCommand creates the root loractl command with all subcommands.
//
// Returns:
//   - A configured cobra.Command ready for execution
func NewLoractlCommand() *cobra.Command {
	opts := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:   cliName,
		Short: cliDescription,
		Long: `loractl builds a GPU training image and launches parameter-efficient
LoRA fine-tuning for a sentence-embedding model inside it.

The tool wraps an external training script invoked through the accelerate
launcher: it builds the container image holding the script's dependencies,
assembles the launch command from configuration, and runs it synchronously,
propagating the training process exit code.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetVerbose(opts.Verbose)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ProjectDir, "project", "p", ".",
		"project directory (build context and container mount)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "",
		"configuration file (default: loractl.yaml in the project directory)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "",
		"dotenv file with IMAGE_NAME/IMAGE_TAG (default: .env in the project directory)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false,
		"verbose output")

	cmd.AddCommand(
		NewBuildCommand(opts),
		NewTrainCommand(opts),
		NewPsCommand(opts),
		NewLogsCommand(opts),
		NewStopCommand(opts),
		NewRmCommand(opts),
		NewVersionCommand(opts),
	)

	return cmd
}

// loadConfig loads the layered configuration for a command.
//
// Defaults are overlaid with the YAML config file (optional unless given
// explicitly) and then with the .env image name/tag overrides.
//
// Parameters:
//   - opts: Global options carrying the project directory and file paths
//
// Returns:
//   - Loaded configuration
//   - Error if an explicitly named file is missing or malformed
func loadConfig(opts *GlobalOptions) (*config.Config, error) {
	configFile := opts.ConfigFile
	optional := configFile == ""
	if optional {
		configFile = filepath.Join(opts.ProjectDir, config.DefaultConfigFile)
	}

	cfg, err := config.Load(configFile, optional)
	if err != nil {
		return nil, err
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = filepath.Join(opts.ProjectDir, config.DefaultEnvFile)
	}
	if err := cfg.ApplyEnvFile(envFile); err != nil {
		return nil, err
	}

	return cfg, nil
}
