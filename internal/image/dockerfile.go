// Package image handles the training image: Dockerfile and dependency
// manifest rendering, image build, and base image pulls.
//
// Builds run through the docker CLI so its native progress output
// reaches the user unchanged. Build failures are fatal and surfaced
// verbatim; there are no retries and no partial-failure semantics.
package image

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/embedops/loractl/internal/config"
	"github.com/embedops/loractl/internal/logger"
)

const (
	// DockerfileName is the rendered Dockerfile filename.
	DockerfileName = "Dockerfile"

	// RequirementsName is the rendered dependency manifest filename.
	RequirementsName = "requirements.txt"
)

// RenderDockerfile produces the Dockerfile for the training image.
//
// The image layers are: the GPU-enabled base, the pinned Python
// dependency manifest, the project tree, and a working directory set to
// the location of the launch script. Dependencies install before the
// project copy so code changes don't invalidate the dependency layer.
func RenderDockerfile(cfg *config.ImageConfig) string {
	var b strings.Builder

	fmt.Fprintf(&b, "FROM %s\n\n", cfg.BaseImage)
	fmt.Fprintf(&b, "COPY %s /tmp/%s\n", RequirementsName, RequirementsName)
	fmt.Fprintf(&b, "RUN pip install --no-cache-dir -r /tmp/%s\n\n", RequirementsName)
	b.WriteString("COPY . /workspace\n")
	fmt.Fprintf(&b, "WORKDIR %s\n", cfg.WorkDir)

	return b.String()
}

// RenderRequirements produces the pip requirements manifest from the
// configured name/version entries, one pinned entry per line.
func RenderRequirements(cfg *config.ImageConfig) string {
	var b strings.Builder
	for _, req := range cfg.Requirements {
		b.WriteString(req.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteContext renders the Dockerfile and requirements manifest into the
// build context directory.
//
// Existing files are preserved unless force is set, so a hand-edited
// Dockerfile in the project survives repeated builds.
//
// Parameters:
//   - dir: Build context directory
//   - cfg: Image configuration to render
//   - force: Overwrite existing files
//
// Returns:
//   - Error if a file cannot be written
func WriteContext(dir string, cfg *config.ImageConfig, force bool) error {
	files := map[string]string{
		DockerfileName:   RenderDockerfile(cfg),
		RequirementsName: RenderRequirements(cfg),
	}

	for name, content := range files {
		path := filepath.Join(dir, name)
		if !force {
			if _, err := os.Stat(path); err == nil {
				logger.Debug("Keeping existing %s", path)
				continue
			}
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		logger.Info("Wrote %s", path)
	}

	return nil
}
