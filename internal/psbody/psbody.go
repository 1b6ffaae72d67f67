// Package psbody implements the staged installation of the psbody-mesh
// geometry-processing library into the active conda environment.
//
// The installation runs in three stages. The prepare stage drives the whole
// flow from the initial process: it checks out the library source, installs
// the compiler toolchain into the environment, and then re-executes the
// installer through a conda re-activation trampoline for the build and
// validate stages, so each of them sees the refreshed environment variables
// the newly installed toolchain requires.
package psbody

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"

	"github.com/johnbanq/meshinstall/internal/conda"
	"github.com/johnbanq/meshinstall/internal/fetch"
	"github.com/johnbanq/meshinstall/internal/gitutil"
	"github.com/johnbanq/meshinstall/internal/installer"
	"github.com/johnbanq/meshinstall/internal/logging"
	"github.com/johnbanq/meshinstall/internal/runner"
)

// Source location of the psbody-mesh fork this installer builds.
const (
	RepoURL      = "https://github.com/johnbanq/mesh.git"
	RepoRevision = "0d876727d5184161ed085bd3ef74967441b0a0e8"

	// ScratchDirName is the working checkout, created next to the binary's
	// working directory and removed after the build unless --no-cleanup.
	ScratchDirName = ".meshinstall.mpi-is.mesh"
)

// Stage names accepted by the hidden --stage flag.
const (
	StagePrepare  = "prepare"
	StageBuild    = "build"
	StageValidate = "validate"
)

// RequiredTools lists the external tools the installation depends on.
// The C++ compiler itself is not listed: it is installed into the conda
// environment by the prepare stage. Source acquisition needs git in clone
// mode and tar in archive mode; the other one stays optional so blocked-git
// hosts pass preflight with --source-archive.
func RequiredTools(useArchive bool) []installer.ToolRequirement {
	return []installer.ToolRequirement{
		{Name: "conda", Purpose: "environment and package manager"},
		{
			Name:     "git",
			Optional: useArchive,
			Purpose:  "source checkout at the pinned revision",
		},
		{Name: "python", Alternatives: []string{"python3"}, Purpose: "runs the library's own build"},
		{Name: "pip", Purpose: "installs build requirements"},
		{
			Name:         "make",
			Alternatives: []string{"gmake", "nmake"},
			Optional:     true,
			Purpose:      "runs the library test suite on Unix",
		},
		{
			Name:     "tar",
			Optional: !useArchive,
			Purpose:  "unpacks source archives in --source-archive mode",
		},
	}
}

// NewPipeline returns the psbody installation pipeline with all three
// stages registered in execution order.
func NewPipeline() *installer.Pipeline {
	p := installer.NewPipeline()
	p.Register(&PrepareStage{})
	p.Register(&BuildStage{})
	p.Register(&ValidateStage{})
	return p
}

// Run executes the named stage of the installation. The initial invocation
// runs the prepare stage, which re-invokes this binary for the later stages
// through the conda trampoline.
func Run(ctx context.Context, cfg *installer.Config, stage string) error {
	pipeline := NewPipeline()
	_, err := pipeline.Run(ctx, cfg, stage)
	return err
}

// PrepareStage drives the full installation from the initial process.
type PrepareStage struct{}

// Name returns the stage name.
func (s *PrepareStage) Name() string { return StagePrepare }

// Run sets up the environment and chains into the build and validate stages
// through the re-activation trampoline.
func (s *PrepareStage) Run(ctx context.Context, cfg *installer.Config) (*installer.Result, error) {
	result := newResult(StagePrepare)

	envName, err := conda.DetectEnvironment(ctx)
	if err != nil {
		return result.fail(err)
	}

	activateScript, err := conda.ActivateScript(ctx)
	if err != nil {
		return result.fail(err)
	}

	trampoline := &conda.Trampoline{
		Environment:    envName,
		ActivateScript: activateScript,
		KeepScript:     cfg.KeepScratch,
	}

	if err := acquireSource(ctx, cfg); err != nil {
		return result.fail(err)
	}

	scratchRemoved := false
	removeScratch := func() {
		if cfg.KeepScratch || scratchRemoved {
			return
		}
		scratchRemoved = true
		if err := gitutil.Remove(scratchDir(cfg)); err != nil {
			logging.Warn("failed to clean up source checkout: %v", err)
		}
	}
	defer removeScratch()

	if err := installCompilingDependencies(ctx); err != nil {
		return result.fail(err)
	}

	buildCmd, err := childCommand(cfg, StageBuild)
	if err != nil {
		return result.fail(err)
	}
	if err := trampoline.Run(ctx, buildCmd); err != nil {
		return result.fail(err)
	}

	// The build is done with the checkout; validate uses a fresh one
	removeScratch()

	validateCmd, err := childCommand(cfg, StageValidate)
	if err != nil {
		return result.fail(err)
	}
	if err := trampoline.Run(ctx, validateCmd); err != nil {
		return result.fail(err)
	}

	return result.ok()
}

// BuildStage compiles and installs the library inside the re-activated
// environment.
type BuildStage struct{}

// Name returns the stage name.
func (s *BuildStage) Name() string { return StageBuild }

// Run installs the python build requirements and invokes the library's own
// setup.py build through pip.
func (s *BuildStage) Run(ctx context.Context, cfg *installer.Config) (*installer.Result, error) {
	result := newResult(StageBuild)
	dir := scratchDir(cfg)

	// The latest pip is needed to resolve the requirements, but the old pip
	// is needed to run the setup.py install, hence the pin-and-restore dance.
	logging.Info("installing python dependencies")
	err := withUpgradedPip(ctx, func() error {
		lines, err := runner.Run(ctx, runner.Options{Dir: dir, Env: cfg.Env},
			"pip", "install", "--upgrade", "-r", "requirements.txt")
		result.append(lines)
		return err
	})
	if err != nil {
		return result.fail(err)
	}

	logging.Info("running setup.py")
	boostDir := boostIncludeDir(runtime.GOOS, os.Getenv("CONDA_PREFIX"))
	lines, err := runner.Run(ctx, runner.Options{Dir: dir, Env: cfg.Env},
		"pip", "install",
		"--no-deps",
		fmt.Sprintf("--install-option=--boost-location=%s", boostDir),
		"--verbose",
		"--no-cache-dir",
		".")
	result.append(lines)
	if err != nil {
		return result.fail(err)
	}

	return result.ok()
}

// ValidateStage runs the library's own test suite against the installed
// package as a smoke test.
type ValidateStage struct{}

// Name returns the stage name.
func (s *ValidateStage) Name() string { return StageValidate }

// Run checks out a fresh source tree and runs its tests.
func (s *ValidateStage) Run(ctx context.Context, cfg *installer.Config) (*installer.Result, error) {
	result := newResult(StageValidate)

	err := inValidationSource(ctx, cfg, func(dir string) error {
		logging.Info("running tests")
		lines, err := runSmokeTest(ctx, runtime.GOOS, dir, cfg)
		result.append(lines)
		return err
	})
	if err != nil {
		return result.fail(err)
	}

	logging.Success("all tests passed, installation successful!")
	return result.ok()
}

// inValidationSource materializes a pristine source tree for the smoke test
// and removes it afterwards unless the scratch is kept. The git path applies
// the data re-checkout on Windows; the archive path never needs it, as tar
// writes the blobs verbatim and the data corruption is a CRLF-translation
// artifact of git working trees.
func inValidationSource(ctx context.Context, cfg *installer.Config, fn func(dir string) error) error {
	if !cfg.UseArchive {
		spec := gitutil.RepoSpec{
			URL:      RepoURL,
			Revision: RepoRevision,
			Dir:      scratchDir(cfg),
		}
		return gitutil.InRepository(ctx, spec, cfg.KeepScratch, func(dir string) error {
			if runtime.GOOS == "windows" {
				if err := fixWindowsDataCheckout(ctx, dir); err != nil {
					return err
				}
			}
			return fn(dir)
		})
	}

	if err := acquireSource(ctx, cfg); err != nil {
		return err
	}
	defer func() {
		if cfg.KeepScratch {
			return
		}
		if err := gitutil.Remove(scratchDir(cfg)); err != nil {
			logging.Warn("failed to clean up source tree: %v", err)
		}
	}()

	return fn(scratchDir(cfg))
}

// runSmokeTest invokes the library test suite with the platform-appropriate
// entry point.
func runSmokeTest(ctx context.Context, goos, dir string, cfg *installer.Config) ([]string, error) {
	opts := runner.Options{Dir: dir, Env: cfg.Env}

	if goos == "windows" {
		return runner.Run(ctx, opts, "python", "-m", "unittest", "-v")
	}

	args := []string{"tests"}
	if cfg.Jobs > 0 {
		args = append([]string{"-j" + strconv.Itoa(cfg.Jobs)}, args...)
	}
	return runner.Run(ctx, opts, makeProgram(), args...)
}

// fixWindowsDataCheckout re-checks out the data directory. The repository's
// test fixtures are binary files that git's CRLF translation corrupts on
// Windows; removing them and restoring from the index yields clean copies.
func fixWindowsDataCheckout(ctx context.Context, dir string) error {
	if err := os.RemoveAll(filepath.Join(dir, "data")); err != nil {
		return err
	}
	return gitutil.CheckoutPath(ctx, dir, "data")
}

// installCompilingDependencies installs the C++ toolchain and build helpers
// into the active environment. There is no teardown: python itself depends on
// setuptools, and removing cxx-compiler causes regressions in the
// environment.
func installCompilingDependencies(ctx context.Context) error {
	dependencies := []string{"cxx-compiler", "setuptools"}

	logging.Info("installing compiling dependencies: %v", dependencies)
	if err := conda.Install(ctx, "conda-forge", dependencies...); err != nil {
		return err
	}

	logging.Info("installing boost")
	if err := conda.Install(ctx, "", "boost"); err != nil {
		return err
	}

	logging.Info("installing pyopengl")
	_, err := conda.PipInstall(ctx, "pyopengl")
	return err
}

// acquireSource materializes the library source in the scratch directory,
// either by git clone at the pinned revision or by archive download.
func acquireSource(ctx context.Context, cfg *installer.Config) error {
	dir := scratchDir(cfg)

	if cfg.UseArchive {
		if err := gitutil.Remove(dir); err != nil {
			return err
		}
		return fetch.FetchSource(ctx, fetch.NewClient(), RepoURL, RepoRevision, dir)
	}

	return gitutil.Clone(ctx, gitutil.RepoSpec{
		URL:      RepoURL,
		Revision: RepoRevision,
		Dir:      dir,
	})
}

// childCommand builds the command line that re-invokes this binary for a
// later stage, propagating the user-facing flags.
func childCommand(cfg *installer.Config, stage string) ([]string, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("cannot locate installer binary: %w", err)
	}

	command := []string{exe, "install", "--stage", stage}
	if cfg.KeepScratch {
		command = append(command, "--no-cleanup")
	}
	if cfg.Verbose {
		command = append(command, "--verbose")
	}
	if cfg.Jobs > 0 {
		command = append(command, "--jobs", strconv.Itoa(cfg.Jobs))
	}
	if cfg.UseArchive {
		command = append(command, "--source-archive")
	}
	if cfg.LogLevel != "" {
		command = append(command, "--log-level", cfg.LogLevel)
	}

	keys := make([]string, 0, len(cfg.Env))
	for key := range cfg.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		command = append(command, "--env", key+"="+cfg.Env[key])
	}

	return command, nil
}

// boostIncludeDir returns the boost header location inside the conda prefix.
// conda lays out native packages under Library on Windows.
func boostIncludeDir(goos, condaPrefix string) string {
	if goos == "windows" {
		return filepath.Join(condaPrefix, "Library", "include")
	}
	return filepath.Join(condaPrefix, "include")
}

// makeProgram returns the make program to use, honoring the MAKE override.
func makeProgram() string {
	if program := os.Getenv("MAKE"); program != "" {
		return program
	}
	return "make"
}

func scratchDir(cfg *installer.Config) string {
	if cfg.ScratchDir != "" {
		return cfg.ScratchDir
	}
	return ScratchDirName
}
