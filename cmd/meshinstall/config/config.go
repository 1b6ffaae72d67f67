// Package config provides configuration management for the meshinstall CLI.
package config

// Version is the meshinstall CLI version.
const Version = "1.2.0"

// GlobalConfig holds the global CLI configuration bound to persistent flags.
type GlobalConfig struct {
	// NoCleanup keeps the scratch checkout and trampoline scripts on exit.
	NoCleanup bool

	// Verbose prints debug log along the way.
	Verbose bool

	// Jobs is the number of parallel jobs for the smoke test build.
	Jobs int `validate:"gte=0,lte=128"`

	// SourceArchive downloads a source archive instead of git cloning.
	SourceArchive bool

	// Env holds extra KEY=VALUE pairs applied to every tool invocation.
	Env []string

	// LogLevel is the minimum log level, validated by the logging package.
	LogLevel string

	// Stage is the internal stage marker set on re-activated invocations.
	Stage string `validate:"omitempty,oneof=prepare build validate"`
}

// Global is the active CLI configuration.
var Global = GlobalConfig{
	LogLevel: "INFO",
	Stage:    "prepare",
}
