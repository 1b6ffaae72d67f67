package conda

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

const sampleCondaInfo = `
     active environment : meshdev
    active env location : /opt/conda/envs/meshdev
            shell level : 2
       user config file : /home/user/.condarc
 populated config files : /home/user/.condarc
          conda version : 24.1.2
    conda-build version : not installed
         python version : 3.11.8.final.0
       base environment : /opt/conda  (writable)
`

func TestParseInfoValue(t *testing.T) {
	testCases := []struct {
		key      string
		expected string
	}{
		{"active environment", "meshdev"},
		{"base environment", "/opt/conda  (writable)"},
		{"conda version", "24.1.2"},
	}

	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			value, err := parseInfoValue(sampleCondaInfo, tc.key)
			if err != nil {
				t.Fatalf("parseInfoValue returned error: %v", err)
			}
			if value != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, value)
			}
		})
	}
}

func TestParseInfoValueMissingKey(t *testing.T) {
	_, err := parseInfoValue(sampleCondaInfo, "no such key")
	if err == nil {
		t.Error("Expected error for missing key")
	}
}

func TestParseInfoValueDuplicateKey(t *testing.T) {
	output := "foo : a\nfoo : b\n"
	_, err := parseInfoValue(output, "foo")
	if err == nil {
		t.Error("Expected error for duplicated key")
	}
	if err != nil && !strings.Contains(err.Error(), "got 2") {
		t.Errorf("Expected count in error, got: %v", err)
	}
}

func TestActivateScriptPath(t *testing.T) {
	testCases := []struct {
		name     string
		goos     string
		base     string
		expected string
	}{
		{
			name:     "unix",
			goos:     "linux",
			base:     "/opt/conda",
			expected: filepath.Join("/opt/conda", "bin", "activate"),
		},
		{
			name:     "unix with writable annotation",
			goos:     "linux",
			base:     "/opt/conda  (writable)",
			expected: filepath.Join("/opt/conda", "bin", "activate"),
		},
		{
			name:     "windows",
			goos:     "windows",
			base:     `C:\conda`,
			expected: filepath.Join(`C:\conda`, "Scripts", "activate.bat"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := activateScriptPath(tc.goos, tc.base); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestScriptName(t *testing.T) {
	if got := scriptName("linux"); got != ".meshinstall.trampoline.sh" {
		t.Errorf("Unexpected unix script name: %s", got)
	}
	if got := scriptName("windows"); got != ".meshinstall.trampoline.bat" {
		t.Errorf("Unexpected windows script name: %s", got)
	}
}

func TestPipInstall(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses an sh-based fake pip")
	}

	dir := t.TempDir()
	fake := filepath.Join(dir, "pip")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\necho \"$@\"\n"), 0o755); err != nil {
		t.Fatalf("Failed to write fake pip: %v", err)
	}
	t.Setenv("PATH", dir)

	lines, err := PipInstall(context.Background(), "--upgrade", "pip")
	if err != nil {
		t.Fatalf("PipInstall returned error: %v", err)
	}
	if len(lines) != 1 || lines[0] != "install --upgrade pip" {
		t.Errorf("Unexpected pip invocation: %v", lines)
	}
}

func TestScriptCommand(t *testing.T) {
	name := scriptName("linux")
	unix, err := scriptCommand("linux", name)
	if err != nil {
		t.Fatalf("scriptCommand returned error: %v", err)
	}
	if unix != "./"+name {
		t.Errorf("Expected cwd-relative invocation on unix, got %q", unix)
	}

	name = scriptName("windows")
	windows, err := scriptCommand("windows", name)
	if err != nil {
		t.Fatalf("scriptCommand returned error: %v", err)
	}
	// A bare script name would go through PATH lookup and fail with
	// exec.ErrDot instead of running the wrapper in the working directory.
	if windows == name {
		t.Errorf("Expected explicit path on windows, got bare name %q", windows)
	}
	if !filepath.IsAbs(windows) {
		t.Errorf("Expected absolute path on windows, got %q", windows)
	}
	if filepath.Base(windows) != name {
		t.Errorf("Expected invocation of %q, got %q", name, windows)
	}
}

func TestRenderScriptUnix(t *testing.T) {
	script, err := renderScript("linux", "/opt/conda/bin/activate", "meshdev",
		[]string{"meshinstall", "install", "--stage", "build"})
	if err != nil {
		t.Fatalf("renderScript returned error: %v", err)
	}

	for _, want := range []string{
		"#!/usr/bin/env bash",
		"source /opt/conda/bin/activate meshdev",
		"meshinstall install --stage build",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("Expected %q in script:\n%s", want, script)
		}
	}
}

func TestRenderScriptWindows(t *testing.T) {
	script, err := renderScript("windows", `C:\conda\Scripts\activate.bat`, "base",
		[]string{"meshinstall.exe", "install", "--stage", "validate"})
	if err != nil {
		t.Fatalf("renderScript returned error: %v", err)
	}

	if !strings.Contains(script, `call C:\conda\Scripts\activate.bat base`) {
		t.Errorf("Expected activation call in script:\n%s", script)
	}
	if strings.Count(script, "if errorlevel 1 exit 1") != 2 {
		t.Errorf("Expected errorlevel checks after both steps:\n%s", script)
	}
}
