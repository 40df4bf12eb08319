// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"fmt"
	"strconv"
	"strings"
)

// DockerfileName is the file written into a sandbox project directory.
const DockerfileName = "Dockerfile"

// GenerateDockerfile renders the sandbox Dockerfile for the given config.
// Every provisioning parameter is declared as an ARG with the config value
// as its default, so a user can edit the generated file or override single
// values with --build-arg without touching the rest.
func GenerateDockerfile(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("# Sandbox image generated by drun. Edit freely; build args\n")
	sb.WriteString("# override the defaults below on rebuild.\n")
	fmt.Fprintf(&sb, "FROM %s\n\n", cfg.BaseImage)

	fmt.Fprintf(&sb, "ARG USERNAME=%s\n", cfg.Username)
	fmt.Fprintf(&sb, "ARG USER_UID=%d\n", cfg.UserUID)
	if cfg.UserGID == 0 {
		sb.WriteString("ARG USER_GID=$USER_UID\n")
	} else {
		fmt.Fprintf(&sb, "ARG USER_GID=%d\n", cfg.UserGID)
	}
	fmt.Fprintf(&sb, "ARG USER_PASSWORD=%s\n", quoteIfNeeded(cfg.UserPassword))
	if cfg.WorkspaceDir == "" {
		sb.WriteString("ARG WORKSPACE_DIR=/home/$USERNAME/workspace\n")
	} else {
		fmt.Fprintf(&sb, "ARG WORKSPACE_DIR=%s\n", cfg.WorkspaceDir)
	}
	sb.WriteString("\n")

	if len(cfg.Packages) > 0 {
		sb.WriteString("RUN apt-get update && \\\n")
		fmt.Fprintf(&sb, "    apt-get install -y --no-install-recommends %s && \\\n",
			strings.Join(cfg.Packages, " "))
		sb.WriteString("    rm -rf /var/lib/apt/lists/*\n\n")
	}

	// Group before user: useradd --gid requires the group to exist.
	sb.WriteString("RUN groupadd --gid $USER_GID $USERNAME && \\\n")
	sb.WriteString("    useradd --uid $USER_UID --gid $USER_GID --create-home --shell /bin/bash $USERNAME && \\\n")
	sb.WriteString("    echo \"$USERNAME:$USER_PASSWORD\" | chpasswd\n\n")

	if cfg.GrantPasswordlessSudo {
		sb.WriteString("RUN echo \"$USERNAME ALL=(ALL) NOPASSWD:ALL\" > /etc/sudoers.d/$USERNAME && \\\n")
		sb.WriteString("    chmod 0440 /etc/sudoers.d/$USERNAME\n\n")
	}

	sb.WriteString("RUN mkdir -p $WORKSPACE_DIR && \\\n")
	sb.WriteString("    chown -R $USER_UID:$USER_GID $WORKSPACE_DIR\n\n")

	sb.WriteString("USER $USERNAME\n")
	sb.WriteString("WORKDIR $WORKSPACE_DIR\n\n")

	// Keeps the sandbox alive for exec sessions without consuming CPU.
	sb.WriteString("CMD [\"sleep\", \"infinity\"]\n")

	return sb.String()
}

// quoteIfNeeded quotes an ARG default containing whitespace so it survives
// the Dockerfile parser.
func quoteIfNeeded(v string) string {
	if strings.ContainsAny(v, " \t") {
		return strconv.Quote(v)
	}
	return v
}
