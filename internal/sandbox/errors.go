// SPDX-License-Identifier: MPL-2.0

package sandbox

import (
	"errors"
	"fmt"

	"drun-cli/internal/container"
)

var (
	// ErrSandboxExists is the sentinel for creating over an existing sandbox.
	ErrSandboxExists = errors.New("sandbox already exists")

	// ErrSandboxNotFound is the sentinel for operating on a missing sandbox.
	ErrSandboxNotFound = errors.New("sandbox does not exist")

	// ErrSandboxNotRunning is the sentinel for operations needing a running
	// sandbox.
	ErrSandboxNotRunning = errors.New("sandbox is not running")

	// ErrSandboxRunning is the sentinel for starting an already running
	// sandbox.
	ErrSandboxRunning = errors.New("sandbox is already running")
)

type (
	// AlreadyExistsError reports a create against an existing sandbox name.
	AlreadyExistsError struct {
		Name container.ContainerName
	}

	// NotFoundError reports an operation against a missing sandbox.
	NotFoundError struct {
		Name container.ContainerName
		Op   string
	}

	// NotRunningError reports an operation that needs the sandbox running.
	NotRunningError struct {
		Name container.ContainerName
		Op   string
	}

	// AlreadyRunningError reports a start against a running sandbox.
	AlreadyRunningError struct {
		Name container.ContainerName
	}
)

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("sandbox %q already exists; use 'reset' to recreate it", e.Name)
}

// Unwrap returns the sentinel error for errors.Is matching.
func (e *AlreadyExistsError) Unwrap() error { return ErrSandboxExists }

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cannot %s sandbox %q: it does not exist", e.Op, e.Name)
}

// Unwrap returns the sentinel error for errors.Is matching.
func (e *NotFoundError) Unwrap() error { return ErrSandboxNotFound }

// Error implements the error interface.
func (e *NotRunningError) Error() string {
	return fmt.Sprintf("cannot %s sandbox %q: it is not running", e.Op, e.Name)
}

// Unwrap returns the sentinel error for errors.Is matching.
func (e *NotRunningError) Unwrap() error { return ErrSandboxNotRunning }

// Error implements the error interface.
func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("sandbox %q is already running", e.Name)
}

// Unwrap returns the sentinel error for errors.Is matching.
func (e *AlreadyRunningError) Unwrap() error { return ErrSandboxRunning }
