// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// SELinuxCheckFunc reports whether SELinux is enforcing. Injectable for tests.
type SELinuxCheckFunc func() bool

// PodmanEngine implements the Engine interface using the Podman CLI.
// It differs from Docker in two rootless-compatibility details: bind mounts
// get a :z SELinux label on enforcing hosts, and run commands carry
// --userns=keep-id so mounted files keep the invoking user's ownership.
type PodmanEngine struct {
	*BaseCLIEngine
}

// NewPodmanEngine creates a new Podman engine.
func NewPodmanEngine(opts ...BaseCLIEngineOption) *PodmanEngine {
	return newPodmanEngine(selinuxEnforcing, opts...)
}

func newPodmanEngine(selinuxCheck SELinuxCheckFunc, opts ...BaseCLIEngineOption) *PodmanEngine {
	path, _ := exec.LookPath("podman")
	allOpts := append([]BaseCLIEngineOption{
		WithName(string(EngineTypePodman)),
		WithVolumeFormatter(podmanVolumeFormatter(selinuxCheck)),
		WithRunArgsTransformer(podmanRunArgsTransformer),
	}, opts...)
	return &PodmanEngine{
		BaseCLIEngine: NewBaseCLIEngine(path, allOpts...),
	}
}

// Available checks if Podman is usable.
func (e *PodmanEngine) Available() bool {
	if e.BinaryPath() == "" {
		return false
	}
	cmd := e.CreateCommand(context.Background(), "version", "--format", "{{.Version}}")
	return cmd.Run() == nil
}

// Version returns the Podman version.
func (e *PodmanEngine) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", "{{.Version}}")
	if err != nil {
		return "", fmt.Errorf("failed to get podman version: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ImageExists checks if an image exists locally. Podman has a dedicated
// subcommand for this.
func (e *PodmanEngine) ImageExists(ctx context.Context, image ImageTag) (bool, error) {
	err := e.RunCommandStatus(ctx, "image", "exists", string(image))
	return err == nil, nil
}

// podmanVolumeFormatter labels bind mounts with :z on SELinux-enforcing
// hosts, unless the mount already carries an explicit label.
func podmanVolumeFormatter(selinuxCheck SELinuxCheckFunc) VolumeFormatFunc {
	return func(v VolumeMount) string {
		if v.SELinux == SELinuxLabelNone && selinuxCheck() {
			v.SELinux = SELinuxLabelShared
		}
		return v.String()
	}
}

// podmanRunArgsTransformer injects --userns=keep-id right after "run".
func podmanRunArgsTransformer(args []string) []string {
	if len(args) == 0 || args[0] != "run" {
		return args
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args[0], "--userns=keep-id")
	out = append(out, args[1:]...)
	return out
}

// selinuxEnforcing reads the kernel's enforce flag directly. The file is
// absent on hosts without SELinux.
func selinuxEnforcing() bool {
	data, err := os.ReadFile("/sys/fs/selinux/enforce")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "1"
}
