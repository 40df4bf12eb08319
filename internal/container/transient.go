// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// IsTransientError reports whether err looks like a transient container
// engine failure: network trouble during image pulls or in-build package
// installation, storage driver glitches, or a generic engine error (exit
// code 125). Sandbox provisioning never retries — each step either succeeds
// or fails the whole sequence — so this classification only drives the
// suggestions attached to the user-facing error.
//
// Context cancellation and deadline errors are explicitly non-transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Exit code 125 is a generic engine-internal failure.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 125 {
		return true
	}

	errStr := err.Error()

	// Network errors during image pull or apt-get inside builds.
	if strings.Contains(errStr, "Temporary failure resolving") ||
		strings.Contains(errStr, "Could not resolve host") ||
		strings.Contains(errStr, "connection timed out") ||
		strings.Contains(errStr, "connection refused") {
		return true
	}

	// OCI runtime and storage driver errors (overlay mount races on
	// rootless Podman).
	if strings.Contains(errStr, "OCI runtime error") ||
		strings.Contains(errStr, "error creating overlay mount") ||
		strings.Contains(errStr, "error mounting layer") {
		return true
	}

	return false
}
