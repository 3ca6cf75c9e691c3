package image

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/creack/pty"

	"github.com/embedops/loractl/internal/config"
	"github.com/embedops/loractl/internal/logger"
)

// Build builds the training image from a context directory.
//
// The build runs `docker build` under a PTY so Docker's native layer
// progress and formatting reach the terminal unchanged. A failed
// dependency install aborts the entire build; the error is fatal and
// the CLI output is surfaced verbatim.
//
// Parameters:
//   - ctx: Context for cancellation
//   - contextDir: Build context directory containing the Dockerfile
//   - cfg: Image configuration providing the target name:tag
//
// Returns:
//   - nil on success
//   - Error if the build fails or is cancelled
func Build(ctx context.Context, contextDir string, cfg *config.ImageConfig) error {
	ref := cfg.Ref()
	logger.Info("Building image %s from %s", ref, contextDir)

	if err := runDocker(ctx, "build", "-t", ref, contextDir); err != nil {
		return fmt.Errorf("failed to build image %s: %w", ref, err)
	}

	logger.Info("Successfully built image: %s", ref)
	return nil
}

// Exists checks if an image is present in the local Docker image cache.
//
// Parameters:
//   - ctx: Context for cancellation
//   - ref: Full image reference (e.g., "peft-lora-e5:latest")
//
// Returns:
//   - true if the image exists locally
//   - Error if the Docker query fails
func Exists(ctx context.Context, ref string) (bool, error) {
	if ref == "" {
		return false, fmt.Errorf("image reference cannot be empty")
	}

	logger.Debug("Checking if image exists locally: %s", ref)

	cmd := exec.CommandContext(ctx, "docker", "images", "-q", ref)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("operation cancelled")
		}
		return false, fmt.Errorf("failed to check image: %w", err)
	}

	return len(strings.TrimSpace(string(output))) > 0, nil
}

// Pull pulls an image from its registry with native progress output.
//
// Parameters:
//   - ctx: Context for cancellation
//   - ref: Full image reference to pull
//
// Returns:
//   - nil on success
//   - Error if the pull fails or is cancelled
func Pull(ctx context.Context, ref string) error {
	if ref == "" {
		return fmt.Errorf("image reference cannot be empty")
	}

	logger.Info("Pulling image: %s", ref)

	if err := runDocker(ctx, "pull", ref); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}

	logger.Info("Successfully pulled image: %s", ref)
	return nil
}

// runDocker runs a docker CLI command under a PTY, streaming its output
// to stdout.
//
// The PTY preserves Docker's progress bars and carriage-return updates.
// The copy loop ends with an EIO when the child closes the PTY, which is
// the normal termination path and is ignored; the command's own exit
// status decides success.
func runDocker(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "docker", args...)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("failed to start docker %s with pty: %w", args[0], err)
	}
	defer ptmx.Close()

	_, _ = io.Copy(os.Stdout, ptmx)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation cancelled")
		}
		return err
	}

	return nil
}
