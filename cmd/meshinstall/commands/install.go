package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/johnbanq/meshinstall/cmd/meshinstall/config"
	"github.com/johnbanq/meshinstall/internal/installer"
	"github.com/johnbanq/meshinstall/internal/logging"
	"github.com/johnbanq/meshinstall/internal/psbody"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Build and install psbody-mesh into the active conda environment",
	RunE:  runInstall,
}

// SetupInstallFlags configures install-specific flags, including the hidden
// internal stage marker set when the installer re-invokes itself.
func SetupInstallFlags() {
	installCmd.Flags().IntVar(&config.Global.Jobs, "jobs", 0,
		"parallel jobs for the smoke test build (0 = build tool default)")
	installCmd.Flags().BoolVar(&config.Global.SourceArchive, "source-archive", false,
		"download a source archive instead of cloning with git")
	installCmd.Flags().StringArrayVar(&config.Global.Env, "env", nil,
		"extra KEY=VALUE environment variable for the invoked build tools (repeatable)")

	installCmd.Flags().StringVar(&config.Global.Stage, "stage", psbody.StagePrepare,
		"INTERNAL FLAG: DO NOT TOUCH, used to indicate reactivated environment")
	installCmd.Flags().MarkHidden("stage") //nolint:errcheck // flag exists
}

// parseEnvFlags turns repeated KEY=VALUE flag values into the environment
// map applied to every tool invocation.
func parseEnvFlags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --env value %q, expected KEY=VALUE", pair)
		}
		env[key] = value
	}
	return env, nil
}

func runInstall(cmd *cobra.Command, _ []string) error {
	if err := installer.CheckRequiredTools(psbody.RequiredTools(config.Global.SourceArchive)); err != nil {
		logging.Error("preflight check failed: %v", err)
		return err
	}

	env, err := parseEnvFlags(config.Global.Env)
	if err != nil {
		return err
	}

	cfg := &installer.Config{
		KeepScratch: config.Global.NoCleanup,
		Verbose:     config.Global.Verbose,
		Jobs:        config.Global.Jobs,
		UseArchive:  config.Global.SourceArchive,
		LogLevel:    config.Global.LogLevel,
		Env:         env,
	}

	return psbody.Run(cmd.Context(), cfg, config.Global.Stage)
}
