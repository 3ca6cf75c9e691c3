package app

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/embedops/loractl/internal/image"
)

// BuildOptions holds options for the build command
type BuildOptions struct {
	*GlobalOptions

	// BaseImage overrides the configured base image reference
	BaseImage string

	// PullBase pulls the base image before building
	PullBase bool

	// Force overwrites an existing Dockerfile and requirements manifest
	Force bool

	// RenderOnly writes the Dockerfile and manifest without building
	RenderOnly bool
}

// NewBuildCommand creates the build command.
//
// The build command renders the Dockerfile and dependency manifest into
// the project directory and builds the training image from it.
//
// Usage:
//
//	loractl build [OPTIONS]
//
// Examples:
//
//	# Build with the configured base image
//	loractl build
//
//	# Regenerate the Dockerfile and build on a different base
//	loractl build --force --base nvcr.io/nvidia/pytorch:24.02-py3
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for building the training image
func NewBuildCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &BuildOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the training image",
		Long: `Build the container image for the training run.

The image is composed of the GPU-enabled base layer, the pinned Python
dependency manifest, and the project tree with the working directory set
to the launch script location. The image name and tag come from the
configuration, overridable through IMAGE_NAME and IMAGE_TAG in .env.

A failed dependency install aborts the entire build; the installer's
output is shown verbatim.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts)
		},
	}

	cmd.Flags().StringVar(&opts.BaseImage, "base", "",
		"base image reference (overrides configuration)")
	cmd.Flags().BoolVar(&opts.PullBase, "pull-base", false,
		"pull the base image before building")
	cmd.Flags().BoolVar(&opts.Force, "force", false,
		"overwrite an existing Dockerfile and requirements.txt")
	cmd.Flags().BoolVar(&opts.RenderOnly, "render-only", false,
		"write the Dockerfile and requirements.txt without building")

	return cmd
}

// runBuild executes the build command logic
func runBuild(opts *BuildOptions) error {
	cfg, err := loadConfig(opts.GlobalOptions)
	if err != nil {
		return err
	}

	if opts.BaseImage != "" {
		cfg.Image.BaseImage = opts.BaseImage
	}

	if err := image.WriteContext(opts.ProjectDir, &cfg.Image, opts.Force); err != nil {
		return err
	}
	if opts.RenderOnly {
		return nil
	}

	ctx := context.Background()

	if opts.PullBase {
		if err := image.Pull(ctx, cfg.Image.BaseImage); err != nil {
			return err
		}
	}

	return image.Build(ctx, opts.ProjectDir, &cfg.Image)
}
