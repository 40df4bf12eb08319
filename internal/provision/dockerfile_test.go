// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"strings"
	"testing"
)

func TestGenerateDockerfile_Defaults(t *testing.T) {
	t.Parallel()

	content := GenerateDockerfile(DefaultConfig())

	for _, want := range []string{
		"FROM ubuntu:24.04\n",
		"ARG USERNAME=developer\n",
		"ARG USER_UID=1000\n",
		"ARG USER_GID=$USER_UID\n",
		"ARG USER_PASSWORD=password\n",
		"ARG WORKSPACE_DIR=/home/$USERNAME/workspace\n",
		"apt-get install -y --no-install-recommends sudo python3 python3-pip",
		"rm -rf /var/lib/apt/lists/*",
		"groupadd --gid $USER_GID $USERNAME",
		"useradd --uid $USER_UID --gid $USER_GID --create-home --shell /bin/bash $USERNAME",
		"echo \"$USERNAME:$USER_PASSWORD\" | chpasswd",
		"echo \"$USERNAME ALL=(ALL) NOPASSWD:ALL\" > /etc/sudoers.d/$USERNAME",
		"chmod 0440 /etc/sudoers.d/$USERNAME",
		"mkdir -p $WORKSPACE_DIR",
		"chown -R $USER_UID:$USER_GID $WORKSPACE_DIR",
		"USER $USERNAME\n",
		"WORKDIR $WORKSPACE_DIR\n",
		"CMD [\"sleep\", \"infinity\"]\n",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("generated Dockerfile missing %q:\n%s", want, content)
		}
	}
}

func TestGenerateDockerfile_StepOrdering(t *testing.T) {
	t.Parallel()

	content := GenerateDockerfile(DefaultConfig())

	// Packages install before the user exists, the user exists before the
	// sudo grant, and the workspace is prepared before switching accounts.
	ordered := []string{
		"apt-get install",
		"groupadd",
		"useradd",
		"chpasswd",
		"/etc/sudoers.d/",
		"mkdir -p $WORKSPACE_DIR",
		"USER $USERNAME",
		"CMD",
	}
	last := -1
	for _, marker := range ordered {
		idx := strings.Index(content, marker)
		if idx < 0 {
			t.Fatalf("marker %q not found", marker)
		}
		if idx < last {
			t.Errorf("marker %q appears out of order", marker)
		}
		last = idx
	}
}

func TestGenerateDockerfile_SudoGrantGated(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.GrantPasswordlessSudo = false
	content := GenerateDockerfile(cfg)

	if strings.Contains(content, "sudoers.d") {
		t.Errorf("sudoers rule emitted despite disabled grant:\n%s", content)
	}
	if strings.Contains(content, "NOPASSWD") {
		t.Errorf("NOPASSWD emitted despite disabled grant:\n%s", content)
	}
}

func TestGenerateDockerfile_ExplicitGIDAndWorkspace(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.UserGID = 2000
	cfg.WorkspaceDir = "/srv/work"
	content := GenerateDockerfile(cfg)

	if !strings.Contains(content, "ARG USER_GID=2000\n") {
		t.Errorf("explicit gid not emitted:\n%s", content)
	}
	if !strings.Contains(content, "ARG WORKSPACE_DIR=/srv/work\n") {
		t.Errorf("explicit workspace not emitted:\n%s", content)
	}
}

func TestGenerateDockerfile_NoPackages(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Packages = nil
	content := GenerateDockerfile(cfg)

	if strings.Contains(content, "apt-get") {
		t.Errorf("package step emitted with empty package list:\n%s", content)
	}
	if !strings.Contains(content, "useradd") {
		t.Errorf("user step missing:\n%s", content)
	}
}

func TestGenerateDockerfile_PasswordWithSpacesQuoted(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.UserPassword = "correct horse"
	content := GenerateDockerfile(cfg)

	if !strings.Contains(content, "ARG USER_PASSWORD=\"correct horse\"\n") {
		t.Errorf("password with spaces not quoted:\n%s", content)
	}
}
