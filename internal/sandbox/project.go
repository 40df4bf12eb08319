// SPDX-License-Identifier: MPL-2.0

package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"drun-cli/internal/container"
	"drun-cli/internal/provision"
)

// ProjectDir returns the per-sandbox project directory holding the
// user-editable Dockerfile.
func (m *Manager) ProjectDir(name container.ContainerName) string {
	return filepath.Join(m.projectsDir, string(name))
}

// ensureProject scaffolds the project directory with a generated Dockerfile
// when missing. An existing Dockerfile is never overwritten; users own the
// file after the first scaffold and their edits survive create and reset.
func (m *Manager) ensureProject(name container.ContainerName) (string, error) {
	dir := m.ProjectDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating project directory %s: %w", dir, err)
	}

	dockerfilePath := filepath.Join(dir, provision.DockerfileName)
	switch _, err := os.Stat(dockerfilePath); {
	case err == nil:
		return dir, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("checking project Dockerfile %s: %w", dockerfilePath, err)
	}

	content := provision.GenerateDockerfile(m.config)
	if err := os.WriteFile(dockerfilePath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing project Dockerfile %s: %w", dockerfilePath, err)
	}
	m.logger.Debug("scaffolded sandbox project", "sandbox", name, "dir", dir)
	return dir, nil
}

// removeProject deletes the project directory, including user edits.
func (m *Manager) removeProject(name container.ContainerName) error {
	dir := m.ProjectDir(name)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing project directory %s: %w", dir, err)
	}
	return nil
}
