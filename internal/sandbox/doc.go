// SPDX-License-Identifier: MPL-2.0

// Package sandbox manages the lifecycle of development sandbox containers:
// creating them from provisioned images, starting and stopping them, and
// tearing them down together with their images and project directories.
package sandbox
