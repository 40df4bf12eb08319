// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

type (
	// Config holds the sandbox provisioning parameters. All parameters are
	// resolved once at image build time; the resulting filesystem state
	// (user account, home, workspace, sudoers rule) is never mutated
	// afterward by drun.
	Config struct {
		// Username is the account created inside the sandbox.
		Username string

		// UserUID is the account's numeric id.
		UserUID int

		// UserGID is the account's numeric group id. Zero means
		// "same as UserUID".
		UserGID int

		// UserPassword is the account's login password. It is written via a
		// direct chpasswd call at build time, in clear form; no hashing or
		// secrets layer exists here.
		UserPassword string

		// WorkspaceDir is the directory created for and owned by the
		// account. Empty means "/home/<Username>/workspace".
		WorkspaceDir string

		// BaseImage is the image the sandbox is built on.
		BaseImage string

		// Packages are installed in the first provisioning step.
		Packages []string

		// GrantPasswordlessSudo controls whether the account gets a
		// NOPASSWD:ALL sudoers rule. The grant is irreversible for the
		// image's lifetime and deliberately exposed as a named flag rather
		// than hardcoded.
		GrantPasswordlessSudo bool

		// ForceRebuild bypasses the image cache.
		ForceRebuild bool

		// TagSuffix is appended to provisioned image tags, used by tests to
		// keep parallel runs from competing for the same tags.
		TagSuffix string
	}

	// Option is a functional option for Config.
	Option func(*Config)
)

// DefaultConfig returns the built-in provisioning defaults.
func DefaultConfig() *Config {
	return &Config{
		Username:              "developer",
		UserUID:               1000,
		UserGID:               0,
		UserPassword:          "password",
		BaseImage:             "ubuntu:24.04",
		Packages:              []string{"sudo", "python3", "python3-pip"},
		GrantPasswordlessSudo: true,
	}
}

// WithUsername sets the sandbox account name.
func WithUsername(name string) Option {
	return func(c *Config) { c.Username = name }
}

// WithUserUID sets the account's numeric id.
func WithUserUID(uid int) Option {
	return func(c *Config) { c.UserUID = uid }
}

// WithUserGID sets the account's numeric group id.
func WithUserGID(gid int) Option {
	return func(c *Config) { c.UserGID = gid }
}

// WithUserPassword sets the account's login password.
func WithUserPassword(password string) Option {
	return func(c *Config) { c.UserPassword = password }
}

// WithWorkspaceDir sets the workspace directory inside the sandbox.
func WithWorkspaceDir(dir string) Option {
	return func(c *Config) { c.WorkspaceDir = dir }
}

// WithBaseImage sets the base image.
func WithBaseImage(image string) Option {
	return func(c *Config) { c.BaseImage = image }
}

// WithPackages sets the installed package list.
func WithPackages(packages []string) Option {
	return func(c *Config) { c.Packages = packages }
}

// WithPasswordlessSudo enables or disables the NOPASSWD:ALL grant.
func WithPasswordlessSudo(grant bool) Option {
	return func(c *Config) { c.GrantPasswordlessSudo = grant }
}

// WithForceRebuild bypasses the image cache.
func WithForceRebuild(force bool) Option {
	return func(c *Config) { c.ForceRebuild = force }
}

// WithTagSuffix appends a suffix to provisioned image tags.
func WithTagSuffix(suffix string) Option {
	return func(c *Config) { c.TagSuffix = suffix }
}

// Apply applies the given options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the provisioning parameters.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return fmt.Errorf("username must be non-empty")
	}
	if strings.ContainsAny(c.Username, " \t:/") {
		return fmt.Errorf("invalid username %q: must not contain whitespace, ':' or '/'", c.Username)
	}
	if c.UserUID <= 0 {
		return fmt.Errorf("invalid uid %d: must be greater than zero", c.UserUID)
	}
	if c.UserGID < 0 {
		return fmt.Errorf("invalid gid %d: must not be negative", c.UserGID)
	}
	if strings.TrimSpace(c.BaseImage) == "" {
		return fmt.Errorf("base image must be non-empty")
	}
	if c.WorkspaceDir != "" && !path.IsAbs(c.WorkspaceDir) {
		return fmt.Errorf("invalid workspace dir %q: must be an absolute path", c.WorkspaceDir)
	}
	return nil
}

// ResolvedGID returns UserGID, defaulting to UserUID when unset.
func (c *Config) ResolvedGID() int {
	if c.UserGID == 0 {
		return c.UserUID
	}
	return c.UserGID
}

// ResolvedWorkspaceDir returns WorkspaceDir, defaulting to the account's
// home workspace when unset.
func (c *Config) ResolvedWorkspaceDir() string {
	if c.WorkspaceDir == "" {
		return path.Join("/home", c.Username, "workspace")
	}
	return c.WorkspaceDir
}

// BuildArgs returns the --build-arg values matching the ARG declarations
// in the generated Dockerfile.
func (c *Config) BuildArgs() map[string]string {
	return map[string]string{
		"USERNAME":      c.Username,
		"USER_UID":      strconv.Itoa(c.UserUID),
		"USER_GID":      strconv.Itoa(c.ResolvedGID()),
		"USER_PASSWORD": c.UserPassword,
		"WORKSPACE_DIR": c.ResolvedWorkspaceDir(),
	}
}
