package conda

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"

	"github.com/johnbanq/meshinstall/internal/logging"
	"github.com/johnbanq/meshinstall/internal/runner"
)

// Trampoline re-runs a command inside a freshly activated conda environment.
//
// conda only refreshes environment variables on activation, so a process that
// has just installed compiler packages cannot see them. The trampoline writes
// a short wrapper script that sources the activation script for the target
// environment and then executes the command, giving it a fully refreshed
// environment. The wrapper is removed afterwards unless KeepScript is set.
type Trampoline struct {
	// Environment is the conda environment name to activate.
	Environment string

	// ActivateScript is the path of conda's activation script, typically
	// from ActivateScript().
	ActivateScript string

	// KeepScript leaves the wrapper script on disk for debugging.
	KeepScript bool
}

const trampolineScriptUnix = `#!/usr/bin/env bash
source {{.ActivateScript}} {{.Environment}}
{{.Command}}
`

const trampolineScriptWindows = `call {{.ActivateScript}} {{.Environment}}
if errorlevel 1 exit 1

{{.Command}}
if errorlevel 1 exit 1
`

// scriptName returns the platform-appropriate wrapper script filename,
// written into the current working directory.
func scriptName(goos string) string {
	if goos == "windows" {
		return ".meshinstall.trampoline.bat"
	}
	return ".meshinstall.trampoline.sh"
}

// scriptCommand returns how to invoke the wrapper script. exec only resolves
// bare names through PATH, and on Windows a cwd-relative lookup is rejected
// with exec.ErrDot, so the script must be addressed explicitly: "./" prefix
// on Unix, absolute path on Windows.
func scriptCommand(goos, name string) (string, error) {
	if goos == "windows" {
		return filepath.Abs(name)
	}
	return "./" + name, nil
}

// renderScript produces the wrapper script body for the given platform.
func renderScript(goos, activateScript, environment string, command []string) (string, error) {
	text := trampolineScriptUnix
	if goos == "windows" {
		text = trampolineScriptWindows
	}

	tmpl, err := template.New("trampoline").Parse(text)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	err = tmpl.Execute(&buf, struct {
		ActivateScript string
		Environment    string
		Command        string
	}{
		ActivateScript: activateScript,
		Environment:    environment,
		Command:        strings.Join(command, " "),
	})
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}

// Run executes the command through the trampoline on the current platform.
func (t *Trampoline) Run(ctx context.Context, command []string) error {
	return t.run(ctx, runtime.GOOS, command)
}

func (t *Trampoline) run(ctx context.Context, goos string, command []string) error {
	name := scriptName(goos)

	script, err := renderScript(goos, t.ActivateScript, t.Environment, command)
	if err != nil {
		return err
	}

	logging.Debug("writing trampoline script: %s", name)
	if err := os.WriteFile(name, []byte(script), 0o755); err != nil {
		return fmt.Errorf("failed to write trampoline script: %w", err)
	}

	defer func() {
		if t.KeepScript {
			return
		}
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			logging.Warn("failed to remove trampoline script %s: %v", name, err)
		}
	}()

	invocation, err := scriptCommand(goos, name)
	if err != nil {
		return err
	}

	logging.Debug("jumping into the trampoline, wee!")
	if goos == "windows" {
		return runner.RunAttached(ctx, runner.Options{}, invocation)
	}

	if _, err := runner.Run(ctx, runner.Options{}, "chmod", "+x", name); err != nil {
		return err
	}
	return runner.RunAttached(ctx, runner.Options{}, invocation)
}
