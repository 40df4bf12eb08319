// SPDX-License-Identifier: MPL-2.0

// Package container provides an abstraction layer over the Docker and
// Podman CLIs: image builds, container lifecycle (run/start/stop/restart),
// in-container command execution, and state queries.
package container
