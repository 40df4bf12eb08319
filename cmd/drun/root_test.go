// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"strings"
	"testing"

	"drun-cli/internal/issue"
)

func TestGetVersionString(t *testing.T) {
	if got := getVersionString(); !strings.Contains(got, "dev") {
		t.Errorf("dev build version = %q, want it to mention dev", got)
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain failure")
	if got := formatErrorForDisplay(plain, false); got != "plain failure" {
		t.Errorf("plain error formatting = %q", got)
	}

	actionable := issue.NewContext().
		WithOperation("create sandbox").
		WithSuggestion("try a different name").
		Wrap(errors.New("boom")).
		BuildError()

	got := formatErrorForDisplay(actionable, false)
	if !strings.Contains(got, "try a different name") {
		t.Errorf("suggestions missing from actionable formatting: %q", got)
	}

	gotVerbose := formatErrorForDisplay(actionable, true)
	if !strings.Contains(gotVerbose, "Error chain") {
		t.Errorf("verbose formatting missing error chain: %q", gotVerbose)
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	e := &ExitError{Code: 3}
	if e.Error() != "exit status 3" {
		t.Errorf("Error() = %q", e.Error())
	}

	wrapped := &ExitError{Code: 1, Err: errors.New("inner")}
	if wrapped.Error() != "inner" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
	if !errors.Is(wrapped, wrapped.Err) {
		t.Error("Unwrap must expose the inner error")
	}
}
