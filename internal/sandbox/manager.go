// SPDX-License-Identifier: MPL-2.0

package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"drun-cli/internal/container"
	"drun-cli/internal/issue"
	"drun-cli/internal/provision"
)

type (
	// Manager drives sandbox lifecycle operations through a container
	// engine and an image provisioner.
	Manager struct {
		engine      container.Engine
		provisioner provision.Provisioner
		config      *provision.Config
		logger      *log.Logger
		projectsDir string
	}

	// ManagerOption configures a Manager.
	ManagerOption func(*Manager)

	// CreateOptions are the per-sandbox settings of a create operation, on
	// top of the provisioning config the Manager was built with.
	CreateOptions struct {
		// HostWorkspace is a host directory bind-mounted onto the sandbox
		// workspace. Empty means no mount; the sandbox keeps its own
		// image-internal workspace.
		HostWorkspace string

		// Ports are host:container port mappings.
		Ports []container.PortMapping

		// Root runs the sandbox as root instead of the provisioned account.
		Root bool

		// StartupScript is a script run inside the workspace right after
		// the sandbox starts. Relative paths resolve against HostWorkspace
		// for the host-side syntax check; inside the container the script
		// is executed from the workspace directory.
		StartupScript string
	}
)

// WithLogger sets the manager's logger.
func WithLogger(logger *log.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithProvisioner sets a custom provisioner, used by tests.
func WithProvisioner(p provision.Provisioner) ManagerOption {
	return func(m *Manager) {
		m.provisioner = p
	}
}

// NewManager creates a Manager for the given engine and provisioning
// config. projectsDir is the root under which per-sandbox project
// directories live.
func NewManager(engine container.Engine, cfg *provision.Config, projectsDir string, opts ...ManagerOption) *Manager {
	m := &Manager{
		engine:      engine,
		provisioner: provision.NewImageProvisionerWithConfig(engine, cfg),
		config:      cfg,
		logger:      log.New(os.Stderr),
		projectsDir: projectsDir,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create provisions the sandbox image and starts a new detached container
// from it. Creating over an existing name fails; create is deliberately not
// idempotent so that stale state is surfaced instead of silently reused.
func (m *Manager) Create(ctx context.Context, name container.ContainerName, opts CreateOptions) error {
	if err := name.Validate(); err != nil {
		return err
	}

	exists, err := m.engine.ContainerExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking sandbox %s: %w", name, err)
	}
	if exists {
		return &AlreadyExistsError{Name: name}
	}

	// Fail before any container state exists.
	if opts.StartupScript != "" {
		if err := ValidateStartupScript(m.hostScriptPath(opts)); err != nil {
			return err
		}
	}

	projectDir, err := m.ensureProject(name)
	if err != nil {
		return err
	}

	if opts.HostWorkspace != "" {
		if err := os.MkdirAll(opts.HostWorkspace, 0o755); err != nil {
			return fmt.Errorf("creating host workspace %s: %w", opts.HostWorkspace, err)
		}
	}

	m.logger.Info("provisioning sandbox image", "sandbox", name)
	result, err := m.provisioner.Provision(ctx, name, projectDir)
	if err != nil {
		return err
	}
	if result.Cached {
		m.logger.Debug("reusing existing image", "tag", result.ImageTag)
	}

	runOpts := container.RunOptions{
		Image:  result.ImageTag,
		Name:   name,
		Detach: true,
		Ports:  opts.Ports,
	}
	// The image's USER is the provisioned account; root mode overrides it.
	if opts.Root {
		runOpts.User = "root"
	} else {
		runOpts.User = m.config.Username
	}
	if opts.HostWorkspace != "" {
		hostPath, err := filepath.Abs(opts.HostWorkspace)
		if err != nil {
			return fmt.Errorf("resolving host workspace %s: %w", opts.HostWorkspace, err)
		}
		runOpts.Volumes = []container.VolumeMount{{
			HostPath:      hostPath,
			ContainerPath: m.config.ResolvedWorkspaceDir(),
		}}
	}

	runResult, err := m.engine.Run(ctx, runOpts)
	if err != nil {
		return err
	}
	if runResult.Error != nil {
		return fmt.Errorf("starting sandbox %s: %w", name, runResult.Error)
	}
	if runResult.ExitCode != 0 {
		return issue.NewContext().
			WithOperation("start sandbox container").
			WithResource(string(name)).
			WithSuggestion(fmt.Sprintf("inspect the container logs: %s logs %s", m.engine.Name(), name)).
			Wrap(fmt.Errorf("%s run exited with code %d", m.engine.Name(), runResult.ExitCode)).
			BuildError()
	}
	m.logger.Info("sandbox created", "sandbox", name, "image", result.ImageTag)

	if opts.StartupScript != "" {
		return m.runStartupScript(ctx, name, opts.StartupScript)
	}
	return nil
}

// Start starts an existing stopped sandbox.
func (m *Manager) Start(ctx context.Context, name container.ContainerName) error {
	if err := m.requireExists(ctx, name, "start"); err != nil {
		return err
	}
	running, err := m.engine.ContainerRunning(ctx, name)
	if err != nil {
		return fmt.Errorf("checking sandbox %s: %w", name, err)
	}
	if running {
		return &AlreadyRunningError{Name: name}
	}
	if err := m.engine.Start(ctx, name); err != nil {
		return err
	}
	m.logger.Info("sandbox started", "sandbox", name)
	return nil
}

// Stop stops a running sandbox.
func (m *Manager) Stop(ctx context.Context, name container.ContainerName) error {
	if err := m.requireRunning(ctx, name, "stop"); err != nil {
		return err
	}
	if err := m.engine.Stop(ctx, name); err != nil {
		return err
	}
	m.logger.Info("sandbox stopped", "sandbox", name)
	return nil
}

// Restart restarts an existing sandbox, running or stopped.
func (m *Manager) Restart(ctx context.Context, name container.ContainerName) error {
	if err := m.requireExists(ctx, name, "restart"); err != nil {
		return err
	}
	if err := m.engine.Restart(ctx, name); err != nil {
		return err
	}
	m.logger.Info("sandbox restarted", "sandbox", name)
	return nil
}

// Clean flushes filesystem buffers and drops the kernel page cache inside a
// running sandbox, then restarts it.
func (m *Manager) Clean(ctx context.Context, name container.ContainerName) error {
	if err := m.requireRunning(ctx, name, "clean"); err != nil {
		return err
	}

	result, err := m.engine.Exec(ctx, container.ContainerID(name),
		[]string{"sh", "-c", "sync && echo 3 > /proc/sys/vm/drop_caches"},
		container.ExecOptions{User: "root"})
	if err != nil {
		return err
	}
	if result.Error != nil {
		return fmt.Errorf("cleaning sandbox %s: %w", name, result.Error)
	}
	if result.ExitCode != 0 {
		// Unprivileged containers cannot write /proc/sys; the sync part
		// still ran, so the restart proceeds.
		m.logger.Warn("page cache drop failed inside sandbox", "sandbox", name, "exit_code", result.ExitCode)
	}

	if err := m.engine.Restart(ctx, name); err != nil {
		return err
	}
	m.logger.Info("sandbox cleaned", "sandbox", name)
	return nil
}

// Reset removes the sandbox container if present and creates it again from
// the current project Dockerfile. The image cache and user Dockerfile edits
// survive a reset.
func (m *Manager) Reset(ctx context.Context, name container.ContainerName, opts CreateOptions) error {
	if err := name.Validate(); err != nil {
		return err
	}
	if err := m.removeContainerIfPresent(ctx, name); err != nil {
		return err
	}
	return m.Create(ctx, name, opts)
}

// Nuke tears the sandbox down completely: container, provisioned image and
// project directory, then recreates it from a fresh scaffold without the
// image layer cache. User Dockerfile edits do NOT survive a nuke.
func (m *Manager) Nuke(ctx context.Context, name container.ContainerName, opts CreateOptions) error {
	if err := name.Validate(); err != nil {
		return err
	}
	if err := m.removeContainerIfPresent(ctx, name); err != nil {
		return err
	}

	if tag, err := m.provisioner.Tag(name, m.ProjectDir(name)); err == nil {
		exists, err := m.engine.ImageExists(ctx, tag)
		if err != nil {
			return fmt.Errorf("checking image %s: %w", tag, err)
		}
		if exists {
			if err := m.engine.RemoveImage(ctx, tag, true); err != nil {
				return err
			}
			m.logger.Info("sandbox image removed", "sandbox", name, "image", tag)
		}
	}

	if err := m.removeProject(name); err != nil {
		return err
	}

	previous := m.config.ForceRebuild
	m.config.ForceRebuild = true
	defer func() { m.config.ForceRebuild = previous }()

	return m.Create(ctx, name, opts)
}

// hostScriptPath resolves the startup script's host location for the
// pre-create syntax check.
func (m *Manager) hostScriptPath(opts CreateOptions) string {
	if filepath.IsAbs(opts.StartupScript) || opts.HostWorkspace == "" {
		return opts.StartupScript
	}
	return filepath.Join(opts.HostWorkspace, opts.StartupScript)
}

// runStartupScript executes the startup script from the workspace
// directory inside the running sandbox, streaming its output.
func (m *Manager) runStartupScript(ctx context.Context, name container.ContainerName, script string) error {
	workspace := m.config.ResolvedWorkspaceDir()
	command := []string{
		"bash", "-c",
		fmt.Sprintf("cd %s && ./%s", workspace, filepath.Base(script)),
	}

	m.logger.Info("running startup script", "sandbox", name, "script", filepath.Base(script))
	result, err := m.engine.Exec(ctx, container.ContainerID(name), command, container.ExecOptions{
		Stdout: os.Stderr,
		Stderr: os.Stderr,
	})
	if err != nil {
		return err
	}
	if result.Error != nil {
		return fmt.Errorf("running startup script in sandbox %s: %w", name, result.Error)
	}
	if result.ExitCode != 0 {
		return issue.NewContext().
			WithOperation("run startup script").
			WithResource(string(name)).
			WithSuggestion("the sandbox is up; fix the script and run it manually or reset the sandbox").
			Wrap(fmt.Errorf("script exited with code %d", result.ExitCode)).
			BuildError()
	}
	return nil
}

func (m *Manager) requireExists(ctx context.Context, name container.ContainerName, op string) error {
	if err := name.Validate(); err != nil {
		return err
	}
	exists, err := m.engine.ContainerExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking sandbox %s: %w", name, err)
	}
	if !exists {
		return &NotFoundError{Name: name, Op: op}
	}
	return nil
}

func (m *Manager) requireRunning(ctx context.Context, name container.ContainerName, op string) error {
	if err := m.requireExists(ctx, name, op); err != nil {
		return err
	}
	running, err := m.engine.ContainerRunning(ctx, name)
	if err != nil {
		return fmt.Errorf("checking sandbox %s: %w", name, err)
	}
	if !running {
		return &NotRunningError{Name: name, Op: op}
	}
	return nil
}

// removeContainerIfPresent stops and removes the sandbox container when it
// exists. A missing container is not an error.
func (m *Manager) removeContainerIfPresent(ctx context.Context, name container.ContainerName) error {
	exists, err := m.engine.ContainerExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking sandbox %s: %w", name, err)
	}
	if !exists {
		return nil
	}

	running, err := m.engine.ContainerRunning(ctx, name)
	if err != nil {
		return fmt.Errorf("checking sandbox %s: %w", name, err)
	}
	if running {
		if err := m.engine.Stop(ctx, name); err != nil {
			m.logger.Warn("stopping sandbox failed, removing anyway", "sandbox", name, "err", err)
		}
	}

	if err := m.engine.Remove(ctx, container.ContainerID(name), true); err != nil {
		return err
	}
	m.logger.Info("sandbox container removed", "sandbox", name)
	return nil
}
