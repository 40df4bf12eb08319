// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
)

// Engine is the interface for container operations.
type Engine interface {
	// Name returns the engine name (docker or podman).
	Name() string
	// Available checks if the engine is usable on this system.
	Available() bool
	// Version returns the engine version.
	Version(ctx context.Context) (string, error)

	// Build builds an image from a Dockerfile.
	Build(ctx context.Context, opts BuildOptions) error
	// Run runs a container.
	Run(ctx context.Context, opts RunOptions) (*RunResult, error)
	// Exec runs a command in a running container.
	Exec(ctx context.Context, containerID ContainerID, command []string, opts ExecOptions) (*RunResult, error)

	// Start starts an existing stopped container.
	Start(ctx context.Context, name ContainerName) error
	// Stop stops a running container.
	Stop(ctx context.Context, name ContainerName) error
	// Restart restarts a container.
	Restart(ctx context.Context, name ContainerName) error
	// Remove removes a container.
	Remove(ctx context.Context, containerID ContainerID, force bool) error

	// ContainerExists reports whether a container with the name exists,
	// running or stopped.
	ContainerExists(ctx context.Context, name ContainerName) (bool, error)
	// ContainerRunning reports whether a container with the name is running.
	ContainerRunning(ctx context.Context, name ContainerName) (bool, error)

	// ImageExists checks if an image exists locally.
	ImageExists(ctx context.Context, image ImageTag) (bool, error)
	// RemoveImage removes an image.
	RemoveImage(ctx context.Context, image ImageTag, force bool) error
}

// EngineType identifies a container engine implementation.
type EngineType string

const (
	EngineTypeDocker EngineType = "docker"
	EngineTypePodman EngineType = "podman"
)

// ErrEngineNotAvailable is returned when no usable container engine is found.
type ErrEngineNotAvailable struct {
	Engine string
	Reason string
}

func (e *ErrEngineNotAvailable) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// NewEngine creates a container engine of the preferred type, falling back
// to the other engine if the preferred one is not available.
func NewEngine(preferredType EngineType) (Engine, error) {
	switch preferredType {
	case EngineTypeDocker:
		engine := NewDockerEngine()
		if engine.Available() {
			return engine, nil
		}
		podman := NewPodmanEngine()
		if podman.Available() {
			return podman, nil
		}
		return nil, &ErrEngineNotAvailable{
			Engine: "docker",
			Reason: "docker is not installed or not accessible, and podman fallback is also not available",
		}

	case EngineTypePodman:
		engine := NewPodmanEngine()
		if engine.Available() {
			return engine, nil
		}
		docker := NewDockerEngine()
		if docker.Available() {
			return docker, nil
		}
		return nil, &ErrEngineNotAvailable{
			Engine: "podman",
			Reason: "podman is not installed or not accessible, and docker fallback is also not available",
		}

	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferredType)
	}
}

// AutoDetectEngine finds an available container engine, trying Docker first.
func AutoDetectEngine() (Engine, error) {
	docker := NewDockerEngine()
	if docker.Available() {
		return docker, nil
	}

	podman := NewPodmanEngine()
	if podman.Available() {
		return podman, nil
	}

	return nil, &ErrEngineNotAvailable{
		Engine: "any",
		Reason: "no container engine (docker or podman) is available on this system",
	}
}
