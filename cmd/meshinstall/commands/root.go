// Package commands provides the command tree for the meshinstall CLI.
//
// COMMAND STRUCTURE:
//   - install: run the full staged installation (prepare, build, validate)
//   - doctor:  run the preflight tool checks and report what is missing
//
// The install command also carries a hidden --stage flag used when the
// installer re-invokes itself through the conda re-activation trampoline;
// users never set it by hand.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/johnbanq/meshinstall/cmd/meshinstall/config"
)

// RootCmd is the meshinstall root command.
var RootCmd = &cobra.Command{
	Use:   "meshinstall",
	Short: "Installer for the psbody-mesh library inside a conda environment",
	Long: `meshinstall builds and installs the psbody-mesh geometry-processing
library from source into the currently active conda environment.

It installs the required C++ toolchain into the environment, builds the
library with its own setup.py, applies the Windows packaging fix, and runs
the library's test suite to confirm the install succeeded.`,
	SilenceUsage: true,
	Example: `  # Install into the active conda environment
  meshinstall install

  # Keep scratch files around for debugging a failed build
  meshinstall install --no-cleanup

  # Print debug log along the way
  meshinstall install --verbose

  # Download a source archive instead of cloning with git
  meshinstall install --source-archive

  # Check that the required tools are on PATH
  meshinstall doctor`,
}

// SetupCommands initializes all commands and their relationships.
func SetupCommands() {
	RootCmd.AddCommand(installCmd)
	RootCmd.AddCommand(doctorCmd)
}

// SetupGlobalFlags configures the persistent flags shared by all commands.
func SetupGlobalFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().BoolVar(&config.Global.NoCleanup, "no-cleanup", false,
		"do not cleanup the dependencies & files when exiting, helpful for debugging")
	rootCmd.PersistentFlags().BoolVarP(&config.Global.Verbose, "verbose", "v", false,
		"print debug log along the way")
	rootCmd.PersistentFlags().StringVar(&config.Global.LogLevel, "log-level", "INFO",
		"Log level: DEBUG, INFO, WARN, ERROR")
}
