// Package main provides the entry point for the meshinstall CLI.
//
// INITIALIZATION FLOW:
//  1. Command structure setup (install, doctor)
//  2. Global and command-specific flag configuration
//  3. Flag validation and logging setup as PersistentPreRunE
//  4. Command execution with proper exit codes
package main

import (
	"os"

	"github.com/johnbanq/meshinstall/cmd/meshinstall/commands"
	"github.com/johnbanq/meshinstall/cmd/meshinstall/config"
)

func init() {
	rootCmd := commands.RootCmd

	rootCmd.Version = config.Version
	rootCmd.PersistentPreRunE = config.ValidateGlobalFlags

	commands.SetupCommands()
	commands.SetupGlobalFlags(rootCmd)
	commands.SetupInstallFlags()
	commands.SetupDoctorFlags()
}

func main() {
	if err := commands.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
