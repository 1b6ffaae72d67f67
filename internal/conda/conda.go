// Package conda integrates with the conda environment manager: detecting the
// active environment, locating the activation script, installing packages,
// and re-activating the environment around build steps.
//
// conda updates environment variables (CONDA_PREFIX, PATH, compiler settings)
// only when an environment is activated. After installing compiler packages
// the installer must therefore re-enter the environment before building; see
// Trampoline for how that re-activation works.
package conda

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/johnbanq/meshinstall/internal/logging"
	"github.com/johnbanq/meshinstall/internal/runner"
)

// InfoValue runs `conda info` and returns the value of the given key from
// its "key : value" output.
func InfoValue(ctx context.Context, key string) (string, error) {
	output, err := runner.Output(ctx, runner.Options{}, "conda", "info")
	if err != nil {
		return "", fmt.Errorf("could not run conda info, do you have conda installed at all? %w", err)
	}

	return parseInfoValue(output, key)
}

// parseInfoValue extracts the value for key from `conda info` output.
// Exactly one matching line is expected.
func parseInfoValue(output, key string) (string, error) {
	pattern, err := regexp.Compile(key + ` +: +(.*)`)
	if err != nil {
		return "", err
	}

	var values []string
	for _, line := range strings.Split(output, "\n") {
		if match := pattern.FindStringSubmatch(strings.TrimSpace(line)); match != nil {
			values = append(values, strings.TrimSpace(match[1]))
		}
	}

	if len(values) != 1 {
		return "", fmt.Errorf("exactly 1 %q line expected in conda info output, but got %d", key, len(values))
	}

	return values[0], nil
}

// DetectEnvironment returns the name of the currently active conda
// environment. Running outside any environment is an error: the installer
// must install into a concrete environment.
func DetectEnvironment(ctx context.Context) (string, error) {
	logging.Info("detecting conda environment")

	name, err := InfoValue(ctx, "active environment")
	if err != nil {
		return "", err
	}
	logging.Debug("detected environment name: %s", name)

	if name == "None" {
		logging.Error("you are not in a conda environment! Try conda activate base to enter the base environment!")
		return "", fmt.Errorf("cannot run the installer outside a conda environment")
	}

	logging.Info("detected environment: %s", name)
	return name, nil
}

// ActivateScript returns the path of the conda activation script in the base
// environment. Used to build trampoline scripts that re-enter an environment.
func ActivateScript(ctx context.Context) (string, error) {
	logging.Debug("detecting conda activation script location")

	base, err := InfoValue(ctx, "base environment")
	if err != nil {
		return "", err
	}

	script := activateScriptPath(runtime.GOOS, base)
	logging.Debug("detected: %s", script)
	return script, nil
}

// activateScriptPath derives the activation script location from the base
// environment folder. conda may annotate the folder like
// "/opt/conda  (writable)"; the annotation is stripped.
func activateScriptPath(goos, baseFolder string) string {
	if strings.HasSuffix(baseFolder, ")") {
		if idx := strings.LastIndex(baseFolder, "("); idx >= 0 {
			baseFolder = baseFolder[:idx]
		}
	}
	baseFolder = strings.TrimSpace(baseFolder)

	if goos == "windows" {
		return filepath.Join(baseFolder, "Scripts", "activate.bat")
	}
	return filepath.Join(baseFolder, "bin", "activate")
}

// Install installs packages into the active environment with `conda install
// -y`, optionally from a specific channel.
func Install(ctx context.Context, channel string, packages ...string) error {
	args := []string{"install", "-y"}
	if channel != "" {
		args = append(args, "-c", channel)
	}
	args = append(args, packages...)

	_, err := runner.Run(ctx, runner.Options{}, "conda", args...)
	return err
}

// PipInstall runs `pip install` with the given arguments against the active
// environment and returns the captured output lines.
func PipInstall(ctx context.Context, args ...string) ([]string, error) {
	return runner.Run(ctx, runner.Options{}, "pip", append([]string{"install"}, args...)...)
}
