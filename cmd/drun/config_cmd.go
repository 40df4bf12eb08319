// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"drun-cli/internal/config"
)

// newConfigCommand creates the `drun config` command tree.
func newConfigCommand() *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage drun configuration",
		Long: `Manage drun configuration.

Configuration is stored in:
  - Linux: ~/.config/drun/config.yaml
  - macOS: ~/Library/Application Support/drun/config.yaml
  - Windows: %APPDATA%\drun\config.yaml

Every key can also be set via a DRUN_* environment variable
(e.g. DRUN_USERNAME, DRUN_USER_UID, DRUN_CONTAINER_ENGINE).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig()
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfigFile()
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration and data paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath()
		},
	})

	return cfgCmd
}

func showConfig() error {
	fmt.Println(TitleStyle.Render("Current Configuration"))
	fmt.Println()

	cfgDir, err := config.ConfigDir()
	if err == nil {
		cfgPath := filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)
		if fileExistsCheck(cfgPath) {
			fmt.Printf("%s: %s\n", CmdStyle.Render("Config file"), cfgPath)
		} else {
			fmt.Printf("%s: %s\n", CmdStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
		}
	}
	fmt.Println()

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func initConfigFile() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	cfgPath := filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)
	if fileExistsCheck(cfgPath) {
		return fmt.Errorf("config file already exists at %s", cfgPath)
	}

	if err := config.Save(config.DefaultConfig()); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Printf("%s Created default configuration at %s\n", SuccessStyle.Render("✓"), cfgPath)
	return nil
}

func showConfigPath() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Printf("Config directory: %s\n", cfgDir)
	fmt.Printf("Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))

	dataDir, err := config.DataDir()
	if err == nil {
		fmt.Printf("Projects directory: %s\n", filepath.Join(dataDir, "projects"))
	}

	return nil
}

// fileExistsCheck checks if a file exists and is not a directory.
func fileExistsCheck(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
