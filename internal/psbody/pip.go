package psbody

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"github.com/johnbanq/meshinstall/internal/conda"
	"github.com/johnbanq/meshinstall/internal/logging"
	"github.com/johnbanq/meshinstall/internal/runner"
)

var pipVersionPattern = regexp.MustCompile(`^pip +(\S+\.\S+)`)

// parsePipVersion extracts the installed pip version from `pip list` output.
// Exactly one pip entry is expected.
func parsePipVersion(output string) (string, error) {
	var versions []string
	for _, line := range strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n") {
		if match := pipVersionPattern.FindStringSubmatch(line); match != nil {
			versions = append(versions, match[1])
		}
	}

	if len(versions) != 1 {
		return "", fmt.Errorf("there must be exactly one pip in listed installed packages, found %d", len(versions))
	}

	return versions[0], nil
}

// pipVersion reports the currently installed pip version.
func pipVersion(ctx context.Context) (string, error) {
	output, err := runner.Output(ctx, runner.Options{}, "pip", "list")
	if err != nil {
		return "", err
	}
	return parsePipVersion(output)
}

// upgradePipArgs builds the `pip install` argument list for upgrading pip
// itself. On Windows the --user flag is inserted so anaconda handles the
// uninstall of the previous pip.
func upgradePipArgs(goos string) []string {
	if goos == "windows" {
		return []string{"--user", "--upgrade", "pip"}
	}
	return []string{"--upgrade", "pip"}
}

// withUpgradedPip runs fn with the latest pip installed, then restores the
// previously pinned pip version. The restore runs even when fn fails so the
// environment is left the way the build expects it.
func withUpgradedPip(ctx context.Context, fn func() error) error {
	version, err := pipVersion(ctx)
	if err != nil {
		return err
	}

	logging.Debug("current pip version is %s, upgrading", version)
	if _, err := conda.PipInstall(ctx, upgradePipArgs(runtime.GOOS)...); err != nil {
		return err
	}

	defer func() {
		logging.Debug("restoring pip version to %s", version)
		if _, err := conda.PipInstall(ctx, "pip=="+version); err != nil {
			logging.Warn("failed to restore pip %s: %v", version, err)
		}
	}()

	return fn()
}
