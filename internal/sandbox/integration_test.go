// SPDX-License-Identifier: MPL-2.0

// Integration tests that build and run real sandbox containers. They
// require Docker or Podman and are skipped in short mode.

package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/testcontainers/testcontainers-go"

	"drun-cli/internal/container"
	"drun-cli/internal/provision"
)

// checkTestcontainersAvailable safely checks if testcontainers can be used.
// Its provider detection can panic on hosts without a container socket.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

func setupIntegration(t *testing.T) (container.Engine, *Manager, *provision.Config, context.Context) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	engine, err := container.AutoDetectEngine()
	if err != nil {
		t.Skipf("skipping sandbox integration tests: no container engine available: %v", err)
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping sandbox integration tests: testcontainers provider not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	t.Cleanup(cancel)

	cfg := provision.DefaultConfig()
	cfg.TagSuffix = "it"
	manager := NewManager(engine, cfg, t.TempDir(), WithLogger(log.New(io.Discard)))
	return engine, manager, cfg, ctx
}

func cleanupSandbox(t *testing.T, engine container.Engine, manager *Manager, name container.ContainerName) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		_ = engine.Remove(ctx, container.ContainerID(name), true)
		if tag, err := manager.provisioner.Tag(name, manager.ProjectDir(name)); err == nil {
			_ = engine.RemoveImage(ctx, tag, true)
		}
	})
}

// TestSandbox_Integration_ImageProperties verifies the provisioned image's
// account, privileges and keep-alive against a really built container.
func TestSandbox_Integration_ImageProperties(t *testing.T) {
	engine, manager, cfg, ctx := setupIntegration(t)

	name := container.ContainerName(fmt.Sprintf("drun-it-img-%d", os.Getpid()))
	cleanupSandbox(t, engine, manager, name)

	// No workspace mount: the image-internal workspace keeps the ownership
	// set at build time.
	if err := manager.Create(ctx, name, CreateOptions{}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	execOut := func(cmd ...string) (string, int) {
		t.Helper()
		var out bytes.Buffer
		result, err := engine.Exec(ctx, container.ContainerID(name), cmd, container.ExecOptions{Stdout: &out})
		if err != nil {
			t.Fatalf("exec %v failed: %v", cmd, err)
		}
		return strings.TrimSpace(out.String()), result.ExitCode
	}

	t.Run("RunsAsProvisionedUser", func(t *testing.T) {
		if out, _ := execOut("id", "-un"); out != cfg.Username {
			t.Errorf("user = %q, want %q", out, cfg.Username)
		}
		if out, _ := execOut("id", "-u"); out != "1000" {
			t.Errorf("uid = %q, want 1000", out)
		}
		if out, _ := execOut("id", "-g"); out != "1000" {
			t.Errorf("gid = %q, want 1000 (follows uid)", out)
		}
	})

	t.Run("PasswordlessSudo", func(t *testing.T) {
		if _, code := execOut("sudo", "-n", "true"); code != 0 {
			t.Errorf("sudo -n true exited %d, want 0", code)
		}
	})

	t.Run("PythonInstalled", func(t *testing.T) {
		out, code := execOut("python3", "--version")
		if code != 0 || !strings.HasPrefix(out, "Python") {
			t.Errorf("python3 --version = %q (exit %d)", out, code)
		}
	})

	t.Run("WorkspaceOwnership", func(t *testing.T) {
		out, _ := execOut("stat", "-c", "%u:%g", cfg.ResolvedWorkspaceDir())
		if out != "1000:1000" {
			t.Errorf("workspace ownership = %q, want 1000:1000", out)
		}
	})

	t.Run("WorkingDirectory", func(t *testing.T) {
		if out, _ := execOut("pwd"); out != cfg.ResolvedWorkspaceDir() {
			t.Errorf("working directory = %q, want %q", out, cfg.ResolvedWorkspaceDir())
		}
	})

	t.Run("KeepAliveCommand", func(t *testing.T) {
		out, _ := execOut("cat", "/proc/1/cmdline")
		if !strings.Contains(out, "sleep") {
			t.Errorf("pid 1 cmdline = %q, want a sleep keep-alive", out)
		}
	})
}

// TestSandbox_Integration_WorkspaceAndLifecycle verifies the host workspace
// mount, the startup script and stop/start against a real container.
func TestSandbox_Integration_WorkspaceAndLifecycle(t *testing.T) {
	engine, manager, _, ctx := setupIntegration(t)

	name := container.ContainerName(fmt.Sprintf("drun-it-ws-%d", os.Getpid()))
	cleanupSandbox(t, engine, manager, name)

	hostWorkspace := filepath.Join(t.TempDir(), "ws")
	// World-writable so the sandbox account can write regardless of the
	// host uid owning the mount.
	if err := os.MkdirAll(hostWorkspace, 0o777); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(hostWorkspace, 0o777); err != nil {
		t.Fatal(err)
	}
	script := "startup-check.sh"
	if err := os.WriteFile(filepath.Join(hostWorkspace, script),
		[]byte("#!/bin/bash\ntouch started\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	err := manager.Create(ctx, name, CreateOptions{
		HostWorkspace: hostWorkspace,
		StartupScript: script,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	t.Run("StartupScriptRan", func(t *testing.T) {
		if _, err := os.Stat(filepath.Join(hostWorkspace, "started")); err != nil {
			t.Errorf("startup script marker missing in mounted workspace: %v", err)
		}
	})

	t.Run("StopAndStart", func(t *testing.T) {
		if err := manager.Stop(ctx, name); err != nil {
			t.Fatalf("stop failed: %v", err)
		}
		running, err := engine.ContainerRunning(ctx, name)
		if err != nil || running {
			t.Fatalf("sandbox still running after stop (err %v)", err)
		}
		if err := manager.Start(ctx, name); err != nil {
			t.Fatalf("start failed: %v", err)
		}
	})

	t.Run("CreateOverExistingFails", func(t *testing.T) {
		err := manager.Create(ctx, name, CreateOptions{})
		if err == nil {
			t.Fatal("expected create over an existing sandbox to fail")
		}
	})
}
