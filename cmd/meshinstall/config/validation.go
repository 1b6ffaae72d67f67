// Package config handles flag validation for the meshinstall CLI.
//
// Validation runs before any command executes, so misconfigurations (bad log
// levels, nonsensical job counts, unknown internal stage names) are rejected
// with a clear message before any external tool is invoked.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/johnbanq/meshinstall/internal/logging"
)

var validate = validator.New()

// ValidateGlobalFlags validates the global configuration and configures
// logging. Wired as the root command's PersistentPreRunE.
func ValidateGlobalFlags(_ *cobra.Command, _ []string) error {
	if err := validate.Struct(&Global); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if err := logging.ValidateLogLevel(Global.LogLevel); err != nil {
		return err
	}

	setupLogging()
	return nil
}

// setupLogging applies the effective log level. --verbose and the DEBUG
// environment variable both force DEBUG.
func setupLogging() {
	level := Global.LogLevel
	if Global.Verbose || os.Getenv("DEBUG") == "true" {
		level = "DEBUG"
	}
	logging.SetLevel(level)
}
