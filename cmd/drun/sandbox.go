// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"drun-cli/internal/config"
	"drun-cli/internal/container"
	"drun-cli/internal/provision"
	"drun-cli/internal/sandbox"
)

// sandboxFlags are the per-invocation overrides for sandbox operations.
// A flag only overrides the config value when it was actually set.
type sandboxFlags struct {
	username      string
	password      string
	uid           int
	gid           int
	workspace     string
	ports         []string
	root          bool
	startupScript string
	baseImage     string
	engine        string
	grantSudo     bool
	rebuild       bool
}

// addEngineFlag is shared by every sandbox command.
func addEngineFlag(cmd *cobra.Command, f *sandboxFlags) {
	cmd.Flags().StringVar(&f.engine, "engine", "", "container engine (auto, docker, podman)")
}

// addProvisionFlags adds the create-time flags shared by create, reset and nuke.
func addProvisionFlags(cmd *cobra.Command, f *sandboxFlags) {
	addEngineFlag(cmd, f)
	cmd.Flags().StringVar(&f.username, "username", "", "sandbox account name")
	cmd.Flags().StringVar(&f.password, "password", "", "sandbox account password")
	cmd.Flags().IntVar(&f.uid, "uid", 0, "sandbox account uid")
	cmd.Flags().IntVar(&f.gid, "gid", 0, "sandbox account gid (default: same as uid)")
	cmd.Flags().StringVar(&f.workspace, "workspace", "", "host directory mounted as the sandbox workspace")
	cmd.Flags().StringSliceVar(&f.ports, "ports", nil, "port mappings host:container[/udp]")
	cmd.Flags().BoolVar(&f.root, "root", false, "run the sandbox as root")
	cmd.Flags().StringVar(&f.startupScript, "startup-script", "", "script in the workspace run after create")
	cmd.Flags().StringVar(&f.baseImage, "base-image", "", "base image for the sandbox")
	cmd.Flags().BoolVar(&f.grantSudo, "grant-sudo", true, "grant the account passwordless sudo")
	cmd.Flags().BoolVar(&f.rebuild, "rebuild", false, "rebuild the image ignoring caches")
}

func newCreateCommand() *cobra.Command {
	f := &sandboxFlags{}
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Provision and start a new sandbox",
		Long: `Provision a sandbox image and start a container from it.

The first create scaffolds a Dockerfile under your data directory; later
creates and resets reuse it, including any edits you make. Creating over
an existing sandbox name fails; use 'reset' to recreate one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLifecycleOp(cmd, f, args[0], "created",
				func(ctx context.Context, m *sandbox.Manager, name container.ContainerName, opts sandbox.CreateOptions) error {
					return m.Create(ctx, name, opts)
				})
		},
	}
	addProvisionFlags(cmd, f)
	return cmd
}

func newStartCommand() *cobra.Command {
	f := &sandboxFlags{}
	cmd := &cobra.Command{
		Use:   "start <name>",
		Short: "Start a stopped sandbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLifecycleOp(cmd, f, args[0], "started",
				func(ctx context.Context, m *sandbox.Manager, name container.ContainerName, _ sandbox.CreateOptions) error {
					return m.Start(ctx, name)
				})
		},
	}
	addEngineFlag(cmd, f)
	return cmd
}

func newStopCommand() *cobra.Command {
	f := &sandboxFlags{}
	cmd := &cobra.Command{
		Use:   "stop <name>",
		Short: "Stop a running sandbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLifecycleOp(cmd, f, args[0], "stopped",
				func(ctx context.Context, m *sandbox.Manager, name container.ContainerName, _ sandbox.CreateOptions) error {
					return m.Stop(ctx, name)
				})
		},
	}
	addEngineFlag(cmd, f)
	return cmd
}

func newRestartCommand() *cobra.Command {
	f := &sandboxFlags{}
	cmd := &cobra.Command{
		Use:   "restart <name>",
		Short: "Restart a sandbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLifecycleOp(cmd, f, args[0], "restarted",
				func(ctx context.Context, m *sandbox.Manager, name container.ContainerName, _ sandbox.CreateOptions) error {
					return m.Restart(ctx, name)
				})
		},
	}
	addEngineFlag(cmd, f)
	return cmd
}

func newCleanCommand() *cobra.Command {
	f := &sandboxFlags{}
	cmd := &cobra.Command{
		Use:   "clean <name>",
		Short: "Flush caches inside a sandbox and restart it",
		Long: `Flush filesystem buffers and drop the kernel page cache inside a
running sandbox, then restart it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLifecycleOp(cmd, f, args[0], "cleaned",
				func(ctx context.Context, m *sandbox.Manager, name container.ContainerName, _ sandbox.CreateOptions) error {
					return m.Clean(ctx, name)
				})
		},
	}
	addEngineFlag(cmd, f)
	return cmd
}

func newResetCommand() *cobra.Command {
	f := &sandboxFlags{}
	cmd := &cobra.Command{
		Use:   "reset <name>",
		Short: "Recreate a sandbox from its current Dockerfile",
		Long: `Remove the sandbox container and create it again from the current
project Dockerfile. Image caches and your Dockerfile edits survive.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLifecycleOp(cmd, f, args[0], "reset",
				func(ctx context.Context, m *sandbox.Manager, name container.ContainerName, opts sandbox.CreateOptions) error {
					return m.Reset(ctx, name, opts)
				})
		},
	}
	addProvisionFlags(cmd, f)
	return cmd
}

func newNukeCommand() *cobra.Command {
	f := &sandboxFlags{}
	cmd := &cobra.Command{
		Use:   "nuke <name>",
		Short: "Destroy a sandbox completely and recreate it",
		Long: `Remove the sandbox container, its image and its project directory,
then recreate everything from a fresh scaffold without any caches.
Dockerfile edits do NOT survive a nuke.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLifecycleOp(cmd, f, args[0], "nuked and recreated",
				func(ctx context.Context, m *sandbox.Manager, name container.ContainerName, opts sandbox.CreateOptions) error {
					return m.Nuke(ctx, name, opts)
				})
		},
	}
	addProvisionFlags(cmd, f)
	return cmd
}

// runLifecycleOp wires config, engine and manager together and runs one
// sandbox operation with consistent error display.
func runLifecycleOp(cmd *cobra.Command, f *sandboxFlags, name, pastTense string,
	op func(context.Context, *sandbox.Manager, container.ContainerName, sandbox.CreateOptions) error,
) error {
	effective := *cfg
	applyFlagOverrides(&effective, cmd, f)

	manager, opts, err := buildManager(&effective, f.rebuild)
	if err == nil {
		err = op(cmd.Context(), manager, container.ContainerName(name), opts)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return &ExitError{Code: 1, Err: err}
	}

	fmt.Printf("%s Sandbox %s %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(name), pastTense)
	return nil
}

// applyFlagOverrides copies set flags over the loaded config. Unset flags
// leave the config (file, env, defaults) untouched.
func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command, f *sandboxFlags) {
	flags := cmd.Flags()
	if flags.Changed("engine") {
		cfg.ContainerEngine = f.engine
	}
	if flags.Changed("username") {
		cfg.Username = f.username
	}
	if flags.Changed("password") {
		cfg.Password = f.password
	}
	if flags.Changed("uid") {
		cfg.UserUID = f.uid
	}
	if flags.Changed("gid") {
		cfg.UserGID = f.gid
	}
	if flags.Changed("workspace") {
		cfg.Workspace = f.workspace
	}
	if flags.Changed("ports") {
		cfg.Ports = f.ports
	}
	if flags.Changed("root") {
		cfg.Root = f.root
	}
	if flags.Changed("startup-script") {
		cfg.StartupScript = f.startupScript
	}
	if flags.Changed("base-image") {
		cfg.BaseImage = f.baseImage
	}
	if flags.Changed("grant-sudo") {
		cfg.GrantPasswordlessSudo = f.grantSudo
	}
}

// buildManager turns the effective config into a sandbox manager and the
// create options for this invocation.
func buildManager(cfg *config.Config, rebuild bool) (*sandbox.Manager, sandbox.CreateOptions, error) {
	var opts sandbox.CreateOptions

	engine, err := resolveEngine(cfg.ContainerEngine)
	if err != nil {
		return nil, opts, err
	}
	logger.Debug("container engine selected", "engine", engine.Name())

	projectsDir, err := resolveProjectsDir(cfg)
	if err != nil {
		return nil, opts, err
	}

	opts, err = createOptionsFrom(cfg)
	if err != nil {
		return nil, opts, err
	}

	provCfg := provisionConfigFrom(cfg)
	provCfg.ForceRebuild = rebuild

	manager := sandbox.NewManager(engine, provCfg, projectsDir, sandbox.WithLogger(logger))
	return manager, opts, nil
}

// resolveEngine maps the config value to a container engine, with
// auto-detection as the default.
func resolveEngine(preference string) (container.Engine, error) {
	switch preference {
	case config.EngineDocker:
		return container.NewEngine(container.EngineTypeDocker)
	case config.EnginePodman:
		return container.NewEngine(container.EngineTypePodman)
	default:
		return container.AutoDetectEngine()
	}
}

// resolveProjectsDir returns the configured projects dir, defaulting to
// <data dir>/projects.
func resolveProjectsDir(cfg *config.Config) (string, error) {
	if cfg.ProjectsDir != "" {
		return cfg.ProjectsDir, nil
	}
	dataDir, err := config.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "projects"), nil
}

// provisionConfigFrom maps the drun config onto the provisioning config.
func provisionConfigFrom(cfg *config.Config) *provision.Config {
	pc := provision.DefaultConfig()
	pc.Apply(
		provision.WithUsername(cfg.Username),
		provision.WithUserUID(cfg.UserUID),
		provision.WithUserGID(cfg.UserGID),
		provision.WithUserPassword(cfg.Password),
		provision.WithBaseImage(cfg.BaseImage),
		provision.WithPackages(cfg.Packages),
		provision.WithPasswordlessSudo(cfg.GrantPasswordlessSudo),
	)
	return pc
}

// createOptionsFrom maps config to per-create sandbox options.
func createOptionsFrom(cfg *config.Config) (sandbox.CreateOptions, error) {
	ports := make([]container.PortMapping, 0, len(cfg.Ports))
	for _, spec := range cfg.Ports {
		pm, err := container.ParsePortMapping(spec)
		if err != nil {
			return sandbox.CreateOptions{}, err
		}
		ports = append(ports, pm)
	}

	return sandbox.CreateOptions{
		HostWorkspace: cfg.Workspace,
		Ports:         ports,
		Root:          cfg.Root,
		StartupScript: cfg.StartupScript,
	}, nil
}
