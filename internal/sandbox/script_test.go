// SPDX-License-Identifier: MPL-2.0

package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"drun-cli/internal/issue"
)

func writeScript(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "setup.sh")
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateStartupScript_Valid(t *testing.T) {
	t.Parallel()

	path := writeScript(t, "#!/bin/bash\nset -euo pipefail\necho ready\n", 0o755)
	if err := ValidateStartupScript(path); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateStartupScript_Missing(t *testing.T) {
	t.Parallel()

	err := ValidateStartupScript(filepath.Join(t.TempDir(), "nope.sh"))
	if err == nil {
		t.Fatal("expected error for missing script")
	}
}

func TestValidateStartupScript_Directory(t *testing.T) {
	t.Parallel()

	if err := ValidateStartupScript(t.TempDir()); err == nil {
		t.Fatal("expected error for directory")
	}
}

func TestValidateStartupScript_NotExecutable(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("no executable bit on windows")
	}

	path := writeScript(t, "#!/bin/bash\necho hi\n", 0o644)
	err := ValidateStartupScript(path)
	if err == nil {
		t.Fatal("expected error for non-executable script")
	}

	var actionable *issue.ActionableError
	if !errors.As(err, &actionable) {
		t.Fatalf("expected ActionableError, got %T", err)
	}
	found := false
	for _, s := range actionable.Suggestions {
		if strings.Contains(s, "chmod") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a chmod suggestion, got %v", actionable.Suggestions)
	}
}

func TestValidateStartupScript_SyntaxError(t *testing.T) {
	t.Parallel()

	path := writeScript(t, "if true; then\necho unterminated\n", 0o755)
	if err := ValidateStartupScript(path); err == nil {
		t.Fatal("expected syntax error")
	}
}

func TestValidateStartupScript_BashConstructs(t *testing.T) {
	t.Parallel()

	// Bashisms must pass; scripts run under bash inside the sandbox.
	path := writeScript(t, "#!/bin/bash\narr=(a b c)\necho \"${arr[@]}\"\n[[ -n ${HOME} ]] && echo ok\n", 0o755)
	if err := ValidateStartupScript(path); err != nil {
		t.Errorf("unexpected error for bash constructs: %v", err)
	}
}
