// SPDX-License-Identifier: MPL-2.0

package sandbox

import (
	"os"
	"path/filepath"
	"runtime"

	"mvdan.cc/sh/v3/syntax"

	"drun-cli/internal/issue"
)

// ValidateStartupScript checks a startup script host-side before any
// container work happens. Provisioning failures are fatal and never rolled
// back, so a script that cannot run is rejected up front: the file must
// exist, be executable, and parse as a bash script.
func ValidateStartupScript(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return issue.NewContext().
			WithOperation("validate startup script").
			WithResource(path).
			WithSuggestion("place the script inside the host workspace directory").
			Wrap(err).
			BuildError()
	}
	if info.IsDir() {
		return issue.NewContext().
			WithOperation("validate startup script").
			WithResource(path).
			WithSuggestion("pass a script file, not a directory").
			BuildError()
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return issue.NewContext().
			WithOperation("validate startup script").
			WithResource(path).
			WithSuggestion("make the script executable: chmod +x " + path).
			BuildError()
	}

	f, err := os.Open(path)
	if err != nil {
		return issue.NewContext().
			WithOperation("validate startup script").
			WithResource(path).
			Wrap(err).
			BuildError()
	}
	defer f.Close()

	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	if _, err := parser.Parse(f, filepath.Base(path)); err != nil {
		return issue.NewContext().
			WithOperation("validate startup script").
			WithResource(path).
			WithSuggestion("fix the shell syntax error before creating the sandbox").
			Wrap(err).
			BuildError()
	}
	return nil
}
