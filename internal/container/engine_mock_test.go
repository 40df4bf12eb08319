// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"testing"
)

type (
	// MockCommandRecorder captures arguments passed to the engine's exec
	// function for verification. It uses the TestHelperProcess pattern to
	// simulate command execution.
	MockCommandRecorder struct {
		// Invocations records each command creation.
		Invocations []MockInvocation
		// ExitCode is the exit code the simulated command returns.
		ExitCode int
		// Stdout is written to the simulated command's stdout.
		Stdout string
		// Stderr is written to the simulated command's stderr.
		Stderr string
	}

	// MockInvocation is a single simulated command invocation.
	MockInvocation struct {
		Name string
		Args []string
	}
)

// NewMockCommandRecorder creates a recorder that simulates success with no output.
func NewMockCommandRecorder() *MockCommandRecorder {
	return &MockCommandRecorder{}
}

// CommandFunc returns an ExecCommandFunc that records invocations and
// returns a command running TestHelperProcess with the configured output.
func (m *MockCommandRecorder) CommandFunc(t *testing.T) ExecCommandFunc {
	t.Helper()
	return func(_ context.Context, name string, args ...string) *exec.Cmd {
		m.Invocations = append(m.Invocations, MockInvocation{Name: name, Args: args})

		cs := []string{"-test.run=TestHelperProcess", "--", name}
		cs = append(cs, args...)
		cmd := exec.Command(os.Args[0], cs...)
		cmd.Env = []string{
			"GO_WANT_HELPER_PROCESS=1",
			fmt.Sprintf("GO_HELPER_EXIT_CODE=%d", m.ExitCode),
			"GO_HELPER_STDOUT=" + m.Stdout,
			"GO_HELPER_STDERR=" + m.Stderr,
		}
		return cmd
	}
}

// LastArgs returns the arguments of the most recent invocation.
func (m *MockCommandRecorder) LastArgs() []string {
	if len(m.Invocations) == 0 {
		return nil
	}
	return m.Invocations[len(m.Invocations)-1].Args
}

// HasArg reports whether the last invocation contains arg.
func (m *MockCommandRecorder) HasArg(arg string) bool {
	return slices.Contains(m.LastArgs(), arg)
}

// HasArgPair reports whether the last invocation contains a flag-value pair.
func (m *MockCommandRecorder) HasArgPair(flag, value string) bool {
	args := m.LastArgs()
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

// AssertFirstArg verifies the subcommand of the last invocation.
func (m *MockCommandRecorder) AssertFirstArg(t *testing.T, expected string) {
	t.Helper()
	args := m.LastArgs()
	if len(args) == 0 {
		t.Fatalf("expected first arg %q but no commands were invoked", expected)
	}
	if args[0] != expected {
		t.Errorf("expected first arg %q, got %q", expected, args[0])
	}
}

// AssertArgsContain verifies the last invocation args contain expected as a substring.
func (m *MockCommandRecorder) AssertArgsContain(t *testing.T, expected string) {
	t.Helper()
	argsStr := strings.Join(m.LastArgs(), " ")
	if !strings.Contains(argsStr, expected) {
		t.Errorf("expected args to contain %q, got: %v", expected, m.LastArgs())
	}
}

// AssertInvocationCount verifies the number of recorded invocations.
func (m *MockCommandRecorder) AssertInvocationCount(t *testing.T, expected int) {
	t.Helper()
	if len(m.Invocations) != expected {
		t.Errorf("expected %d invocations, got %d", expected, len(m.Invocations))
	}
}

// TestHelperProcess simulates command execution for the mock recorder.
// It is invoked by the mock, never directly.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	if stdout := os.Getenv("GO_HELPER_STDOUT"); stdout != "" {
		fmt.Fprint(os.Stdout, stdout)
	}
	if stderr := os.Getenv("GO_HELPER_STDERR"); stderr != "" {
		fmt.Fprint(os.Stderr, stderr)
	}

	exitCode := 0
	if code := os.Getenv("GO_HELPER_EXIT_CODE"); code != "" {
		fmt.Sscanf(code, "%d", &exitCode)
	}
	os.Exit(exitCode)
}

// newMockedDockerEngine returns a Docker engine whose commands are simulated.
func newMockedDockerEngine(t *testing.T, recorder *MockCommandRecorder) *DockerEngine {
	t.Helper()
	engine := NewDockerEngine(WithExecCommand(recorder.CommandFunc(t)))
	// LookPath may fail on hosts without docker; the mock never execs it.
	engine.BaseCLIEngine.binaryPath = "/usr/bin/docker"
	return engine
}
