// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"drun-cli/internal/config"
)

func TestApplyFlagOverrides(t *testing.T) {
	t.Parallel()

	f := &sandboxFlags{}
	cmd := &cobra.Command{Use: "create"}
	addProvisionFlags(cmd, f)

	for flag, value := range map[string]string{
		"username":   "alice",
		"password":   "hunter2",
		"uid":        "1500",
		"gid":        "2000",
		"workspace":  "/tmp/ws",
		"ports":      "8080:80",
		"root":       "true",
		"base-image": "debian:13",
		"grant-sudo": "false",
		"engine":     "podman",
	} {
		if err := cmd.Flags().Set(flag, value); err != nil {
			t.Fatalf("setting --%s: %v", flag, err)
		}
	}

	cfg := config.DefaultConfig()
	applyFlagOverrides(cfg, cmd, f)

	if cfg.Username != "alice" || cfg.Password != "hunter2" {
		t.Errorf("identity overrides not applied: %+v", cfg)
	}
	if cfg.UserUID != 1500 || cfg.UserGID != 2000 {
		t.Errorf("uid/gid overrides not applied: %+v", cfg)
	}
	if cfg.Workspace != "/tmp/ws" || !cfg.Root {
		t.Errorf("workspace/root overrides not applied: %+v", cfg)
	}
	if len(cfg.Ports) != 1 || cfg.Ports[0] != "8080:80" {
		t.Errorf("ports override not applied: %v", cfg.Ports)
	}
	if cfg.BaseImage != "debian:13" {
		t.Errorf("base image override not applied: %q", cfg.BaseImage)
	}
	if cfg.GrantPasswordlessSudo {
		t.Error("grant-sudo=false override not applied")
	}
	if cfg.ContainerEngine != config.EnginePodman {
		t.Errorf("engine override not applied: %q", cfg.ContainerEngine)
	}
}

func TestApplyFlagOverrides_UnsetFlagsKeepConfig(t *testing.T) {
	t.Parallel()

	f := &sandboxFlags{}
	cmd := &cobra.Command{Use: "create"}
	addProvisionFlags(cmd, f)

	cfg := config.DefaultConfig()
	cfg.Username = "from-config"
	cfg.GrantPasswordlessSudo = false

	applyFlagOverrides(cfg, cmd, f)

	if cfg.Username != "from-config" {
		t.Errorf("unset flag clobbered config username: %q", cfg.Username)
	}
	if cfg.GrantPasswordlessSudo {
		t.Error("unset grant-sudo flag clobbered config value")
	}
}

func TestProvisionConfigFrom(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Username = "alice"
	cfg.UserUID = 1500
	cfg.Password = "hunter2"
	cfg.BaseImage = "debian:13"
	cfg.GrantPasswordlessSudo = false

	pc := provisionConfigFrom(cfg)

	if pc.Username != "alice" || pc.UserUID != 1500 || pc.UserPassword != "hunter2" {
		t.Errorf("identity not mapped: %+v", pc)
	}
	if pc.BaseImage != "debian:13" {
		t.Errorf("base image not mapped: %q", pc.BaseImage)
	}
	if pc.GrantPasswordlessSudo {
		t.Error("sudo grant not mapped")
	}
	// Unset gid keeps the follow-uid behavior.
	if pc.ResolvedGID() != 1500 {
		t.Errorf("gid must follow uid, got %d", pc.ResolvedGID())
	}
}

func TestCreateOptionsFrom(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Workspace = "/tmp/ws"
	cfg.Ports = []string{"8080:80", "5353:53/udp"}
	cfg.Root = true
	cfg.StartupScript = "setup.sh"

	opts, err := createOptionsFrom(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.HostWorkspace != "/tmp/ws" || !opts.Root || opts.StartupScript != "setup.sh" {
		t.Errorf("options not mapped: %+v", opts)
	}
	if len(opts.Ports) != 2 {
		t.Fatalf("expected 2 ports, got %v", opts.Ports)
	}
	if opts.Ports[1].Protocol != "udp" {
		t.Errorf("udp protocol not parsed: %+v", opts.Ports[1])
	}
}

func TestCreateOptionsFrom_InvalidPort(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Ports = []string{"not-a-port"}

	if _, err := createOptionsFrom(cfg); err == nil {
		t.Fatal("expected error for invalid port spec")
	}
}

func TestResolveProjectsDir(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.ProjectsDir = "/custom/projects"
	dir, err := resolveProjectsDir(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/custom/projects" {
		t.Errorf("explicit projects dir not honored: %q", dir)
	}

	cfg.ProjectsDir = ""
	dir, err = resolveProjectsDir(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dir) != "projects" {
		t.Errorf("default projects dir = %q, want a .../projects path", dir)
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	want := []string{"create", "start", "stop", "restart", "clean", "reset", "nuke", "config"}
	for _, name := range want {
		found := false
		for _, sub := range rootCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
