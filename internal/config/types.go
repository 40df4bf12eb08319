// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"
)

const (
	// EngineAuto lets drun pick whichever container engine is available.
	EngineAuto = "auto"
	// EngineDocker forces the Docker CLI.
	EngineDocker = "docker"
	// EnginePodman forces the Podman CLI.
	EnginePodman = "podman"
)

type (
	// Config holds all drun settings. Field defaults come from DefaultConfig;
	// every field can be overridden via the config file or a DRUN_* env var
	// (e.g. workspace -> DRUN_WORKSPACE, user_uid -> DRUN_USER_UID).
	Config struct {
		// ContainerEngine is auto, docker, or podman.
		ContainerEngine string `mapstructure:"container_engine" yaml:"container_engine"`

		// Username is the account created inside the sandbox.
		Username string `mapstructure:"username" yaml:"username"`

		// Password is the sandbox account's login password. It is written
		// in clear form at image build time; treat sandbox images as
		// development-only artifacts.
		Password string `mapstructure:"password" yaml:"password"`

		// UserUID is the numeric id of the sandbox account.
		UserUID int `mapstructure:"user_uid" yaml:"user_uid"`

		// UserGID is the numeric group id. Zero means "same as UserUID".
		UserGID int `mapstructure:"user_gid" yaml:"user_gid"`

		// Workspace is the host directory bind-mounted into the sandbox.
		Workspace string `mapstructure:"workspace" yaml:"workspace"`

		// BaseImage is the image the sandbox is provisioned on top of.
		BaseImage string `mapstructure:"base_image" yaml:"base_image"`

		// Packages are installed into the sandbox image.
		Packages []string `mapstructure:"packages" yaml:"packages"`

		// GrantPasswordlessSudo controls the NOPASSWD:ALL sudoers rule for
		// the sandbox account. This is an unrestricted administrative grant;
		// it is on by default for development convenience but deliberately
		// exposed as a named setting.
		GrantPasswordlessSudo bool `mapstructure:"grant_passwordless_sudo" yaml:"grant_passwordless_sudo"`

		// Root runs sandbox processes as root instead of the created user.
		Root bool `mapstructure:"root" yaml:"root"`

		// Ports are host:container port mappings applied at create time.
		Ports []string `mapstructure:"ports" yaml:"ports"`

		// StartupScript is a script in the workspace executed after create.
		StartupScript string `mapstructure:"startup_script" yaml:"startup_script"`

		// ProjectsDir overrides where per-sandbox Dockerfiles are kept.
		// Empty means "<data dir>/projects".
		ProjectsDir string `mapstructure:"projects_dir" yaml:"projects_dir"`

		// Verbose enables debug logging.
		Verbose bool `mapstructure:"verbose" yaml:"verbose"`
	}
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		ContainerEngine:       EngineAuto,
		Username:              "developer",
		Password:              "password",
		UserUID:               1000,
		UserGID:               0, // same as UserUID
		Workspace:             "./workspace",
		BaseImage:             "ubuntu:24.04",
		Packages:              []string{"sudo", "python3", "python3-pip"},
		GrantPasswordlessSudo: true,
	}
}

// Validate checks constraints that viper cannot express.
func (c *Config) Validate() error {
	switch c.ContainerEngine {
	case EngineAuto, EngineDocker, EnginePodman:
	default:
		return fmt.Errorf("invalid container_engine %q (valid: auto, docker, podman)", c.ContainerEngine)
	}

	if strings.TrimSpace(c.Username) == "" {
		return fmt.Errorf("username must not be empty")
	}
	if strings.ContainsAny(c.Username, " \t:") {
		return fmt.Errorf("invalid username %q: must not contain whitespace or ':'", c.Username)
	}

	if c.UserUID <= 0 {
		return fmt.Errorf("invalid user_uid %d: must be greater than zero", c.UserUID)
	}
	if c.UserGID < 0 {
		return fmt.Errorf("invalid user_gid %d: must not be negative", c.UserGID)
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
