// Package runner executes external toolchain programs (conda, pip, git, make)
// with consistent output capture and error reporting.
//
// The installer stays quiet while a tool is running: output is buffered and
// only surfaced when the tool fails, or streamed line-by-line at DEBUG level
// when verbose logging is enabled. Failed invocations produce a CommandError
// that carries the full transcript, so the user sees exactly what the tool
// printed without re-running anything.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/johnbanq/meshinstall/internal/logging"
)

// Options controls how a command is executed.
type Options struct {
	// Dir is the working directory for the command. Empty means inherit.
	Dir string

	// Env holds extra environment variables set for the command.
	// The parent environment is always inherited.
	Env map[string]string
}

// CommandError describes a failed toolchain invocation. It wraps the
// underlying exec error and keeps the captured output so error messages can
// show the tool's own diagnostics.
type CommandError struct {
	// Command is the full command line that failed.
	Command string

	// Output holds the captured combined stdout/stderr lines.
	Output []string

	// Err is the underlying execution error.
	Err error
}

// Error formats the failure with the captured output appended, mirroring the
// information a user would have seen running the tool by hand.
func (e *CommandError) Error() string {
	prefix := fmt.Sprintf("%s failed", e.Command)
	if e.Err != nil {
		prefix = fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	}

	transcript := strings.TrimSpace(strings.Join(e.Output, "\n"))
	if transcript != "" {
		return fmt.Sprintf("%s\n\nCommand output:\n%s", prefix, transcript)
	}

	return prefix
}

// Unwrap returns the underlying execution error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// Run executes a command and returns its combined output as lines.
//
// On success the command runs silently (the transcript is still returned for
// callers that record it). On failure the returned error is a *CommandError
// containing the full transcript. When DEBUG logging is enabled, output is
// additionally streamed live through a LevelWriter.
func Run(ctx context.Context, opts Options, name string, args ...string) ([]string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir

	cmd.Env = os.Environ()
	for key, value := range opts.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	logging.Debug("running: %s", commandLine(name, args))
	if opts.Dir != "" {
		logging.Debug("working directory: %s", opts.Dir)
	}

	var buf bytes.Buffer
	var sink io.Writer = &buf
	if logging.DebugEnabled() {
		sink = io.MultiWriter(&buf, logging.NewLevelWriter("DEBUG", filepath.Base(name)))
	}
	cmd.Stdout = sink
	cmd.Stderr = sink

	err := cmd.Run()
	lines := splitLines(buf.Bytes())

	if err != nil {
		return lines, &CommandError{
			Command: commandLine(name, args),
			Output:  lines,
			Err:     err,
		}
	}

	return lines, nil
}

// RunAttached executes a command with stdout and stderr attached to the
// installer's own streams. Used for re-invoking the installer itself through
// the trampoline: the child process does its own log formatting, so its
// output should pass through untouched.
func RunAttached(ctx context.Context, opts Options, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir

	cmd.Env = os.Environ()
	for key, value := range opts.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	logging.Debug("running: %s", commandLine(name, args))
	if err := cmd.Run(); err != nil {
		return &CommandError{Command: commandLine(name, args), Err: err}
	}
	return nil
}

// Output executes a command and returns its stdout for parsing. Stderr is
// captured separately and included in the error on failure.
//
// Used for tools whose output the installer needs to interpret, such as
// `conda info` and `pip list`.
func Output(ctx context.Context, opts Options, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir

	cmd.Env = os.Environ()
	for key, value := range opts.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	var errBuf strings.Builder
	cmd.Stderr = &errBuf

	logging.Debug("running: %s", commandLine(name, args))

	stdout, err := cmd.Output()
	if err != nil {
		return "", &CommandError{
			Command: commandLine(name, args),
			Output:  splitLines([]byte(errBuf.String())),
			Err:     err,
		}
	}

	return string(stdout), nil
}

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

func splitLines(output []byte) []string {
	text := strings.ReplaceAll(string(output), "\r\n", "\n")
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
