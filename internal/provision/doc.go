// SPDX-License-Identifier: MPL-2.0

// Package provision builds sandbox container images. It generates a
// Dockerfile implementing the sandbox provisioning sequence (packages,
// group, user, sudo grant, workspace, keep-alive command) and builds it
// through a container engine, caching images by content hash.
package provision
