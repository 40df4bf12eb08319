// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for drun.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"drun-cli/internal/config"
	"drun-cli/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug logging and full error chains
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// cfg is the loaded configuration, populated by initRootConfig
	cfg *config.Config
	// logger is the shared leveled logger, configured by initRootConfig
	logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "drun",
		Short: "Disposable development sandbox containers",
		Long: TitleStyle.Render("drun") + SubtitleStyle.Render(" - disposable development sandbox containers") + `

drun provisions Docker or Podman containers as throwaway development
sandboxes: a dedicated user account with a known uid and password,
optional passwordless sudo, a prepared workspace directory, and a
keep-alive process so the sandbox stays up for exec sessions.

Each sandbox is built from a per-sandbox Dockerfile kept under your
data directory. Edit it freely; 'reset' rebuilds from your edits,
'nuke' starts over from a fresh scaffold.

` + SubtitleStyle.Render("Quick Start:") + `
  1. drun create devbox             Provision and start a sandbox
  2. docker exec -it devbox bash    Get a shell inside it
  3. drun nuke devbox               Tear everything down

` + SubtitleStyle.Render("Examples:") + `
  drun create devbox --workspace ./src --ports 8080:80
  drun create devbox --root --base-image debian:13
  drun stop devbox
  drun reset devbox
  drun config show`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/drun/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(newCreateCommand())
	rootCmd.AddCommand(newStartCommand())
	rootCmd.AddCommand(newStopCommand())
	rootCmd.AddCommand(newRestartCommand())
	rootCmd.AddCommand(newCleanCommand())
	rootCmd.AddCommand(newResetCommand())
	rootCmd.AddCommand(newNukeCommand())
	rootCmd.AddCommand(newConfigCommand())
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig reads in config file and ENV variables if set.
func initRootConfig() {
	loaded, err := config.LoadWithOptions(config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		// Surface config errors but keep going on defaults.
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		loaded = config.DefaultConfig()
	}
	cfg = loaded

	// Apply verbose from config if not set via flag
	if cfg.Verbose {
		verbose = true
	}
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}
