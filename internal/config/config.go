// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application name, used for config/data directory names.
	AppName = "drun"
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "yaml"
	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "DRUN"
)

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// ConfigFilePath, when set, is used exclusively (the --config flag).
	ConfigFilePath string
	// ConfigDirPath overrides the platform config directory (tests).
	ConfigDirPath string
}

// ConfigDir returns the drun configuration directory using platform
// conventions: %APPDATA% on Windows, ~/Library/Application Support on
// macOS, $XDG_CONFIG_HOME (default ~/.config) elsewhere.
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// DataDir returns the drun data directory (per-sandbox project files).
// %LOCALAPPDATA% on Windows, ~/Library/Application Support on macOS,
// $XDG_DATA_HOME (default ~/.local/share) elsewhere.
func DataDir() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "windows":
		dataDir = os.Getenv("LOCALAPPDATA")
		if dataDir == "" {
			dataDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, "Library", "Application Support")
	default:
		dataDir = os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			dataDir = filepath.Join(home, ".local", "share")
		}
	}

	return filepath.Join(dataDir, AppName), nil
}

// Load reads configuration with default options.
func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadWithOptions reads configuration from defaults, the config file (if
// present), and DRUN_* environment variables, then validates the result.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("container_engine", defaults.ContainerEngine)
	v.SetDefault("username", defaults.Username)
	v.SetDefault("password", defaults.Password)
	v.SetDefault("user_uid", defaults.UserUID)
	v.SetDefault("user_gid", defaults.UserGID)
	v.SetDefault("workspace", defaults.Workspace)
	v.SetDefault("base_image", defaults.BaseImage)
	v.SetDefault("packages", defaults.Packages)
	v.SetDefault("grant_passwordless_sudo", defaults.GrantPasswordlessSudo)
	v.SetDefault("root", defaults.Root)
	v.SetDefault("ports", defaults.Ports)
	v.SetDefault("startup_script", defaults.StartupScript)
	v.SetDefault("projects_dir", defaults.ProjectsDir)
	v.SetDefault("verbose", defaults.Verbose)

	// Environment variables override file values: DRUN_USERNAME,
	// DRUN_USER_UID, DRUN_GRANT_PASSWORDLESS_SUDO, and so on.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" {
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFilePath, err)
		}
	} else {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, err
		}

		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(cfgDir)
		v.AddConfigPath(".")

		// A missing config file is fine; defaults and env vars apply.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// Save writes cfg to the config file in the platform config directory,
// creating the directory if needed.
func Save(cfg *Config) error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return SaveTo(cfg, cfgDir)
}

// SaveTo writes cfg as YAML into dir.
func SaveTo(cfg *Config, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	cfgPath := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Marshal renders cfg as a commented YAML document.
func Marshal(cfg *Config) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("# drun configuration file.\n")
	sb.WriteString("# Every key can also be set via a DRUN_* environment variable.\n")

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	sb.Write(data)

	return []byte(sb.String()), nil
}
