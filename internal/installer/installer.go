// Package installer defines the staged installation pipeline and the
// preflight tool checks shared by every package-specific install recipe.
//
// An installation is a fixed, ordered sequence of stages (prepare the
// environment, execute the build, validate the result). Each stage shells
// out to pre-existing tools; this package only sequences them and collects
// their results.
package installer

import (
	"context"
	"fmt"
)

// Result contains the output and status of a single stage run.
//
// After a stage completes, this structure provides:
//   - Stage name for reporting
//   - Success status indicating if the stage completed without errors
//   - Output lines captured from the tools the stage invoked
//   - Error information if the stage failed
type Result struct {
	Stage   string   // Name of the stage that produced this result
	Success bool     // True if the stage completed successfully
	Output  []string // Lines of output from invoked tools
	Error   error    // Error if the stage failed, nil otherwise
}

// Config contains configuration for an installation run.
//
// Scratch handling:
//   - ScratchDir: directory where the library source is checked out
//   - KeepScratch: keep scratch files and trampoline scripts on exit,
//     helpful for debugging a failed build
//
// Build behavior:
//   - Jobs: parallel jobs passed to the build backend (0 = its default)
//   - UseArchive: download a source archive instead of cloning with git
//   - Verbose: stream subprocess output at DEBUG level
//   - LogLevel: minimum log level, carried so re-invocations log the same way
//
// Env holds extra environment variables applied to every tool invocation.
type Config struct {
	ScratchDir  string
	KeepScratch bool

	Jobs       int
	UseArchive bool
	Verbose    bool
	LogLevel   string

	Env map[string]string
}

// Stage is a single step of an installation.
//
// Implementations should be stateless: all run-specific state lives in the
// Config and the returned Result. A stage that fails must return a Result
// with Success=false alongside the error so the pipeline can report partial
// progress.
type Stage interface {
	// Name returns the stable identifier of this stage (e.g. "prepare",
	// "build", "validate"). Names are used for selection and in logs.
	Name() string

	// Run executes the stage. The returned Result is never nil on a normal
	// return; the error mirrors Result.Error for convenience.
	Run(ctx context.Context, cfg *Config) (*Result, error)
}

// Pipeline manages the registration and ordered execution of stages.
//
// Stages are run in registration order. Pipeline is not thread-safe for
// registration; register all stages before use.
type Pipeline struct {
	stages []Stage
}

// NewPipeline creates an empty pipeline. Recipes register their stages in
// execution order.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Register adds a stage to the pipeline. Stages run in the order they are
// registered.
func (p *Pipeline) Register(stage Stage) {
	p.stages = append(p.stages, stage)
}

// StageNamed returns the registered stage with the given name, or an error
// if no such stage exists.
func (p *Pipeline) StageNamed(name string) (Stage, error) {
	for _, stage := range p.stages {
		if stage.Name() == name {
			return stage, nil
		}
	}
	return nil, fmt.Errorf("no stage named: %s", name)
}

// Stages returns a copy of the registered stages.
func (p *Pipeline) Stages() []Stage {
	return append([]Stage{}, p.stages...)
}

// Run executes the named stages in registration order, or every registered
// stage when names is empty.
//
// Processing stops at the first failed stage; the returned results cover all
// stages run up to and including the failure. If the context is canceled
// between stages, a Result carrying the context error is appended and the
// context error is returned.
func (p *Pipeline) Run(ctx context.Context, cfg *Config, names ...string) ([]*Result, error) {
	selected, err := p.selectStages(names)
	if err != nil {
		return nil, err
	}

	var results []*Result
	var firstError error

	for _, stage := range selected {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if firstError == nil {
				firstError = ctxErr
			}
			results = append(results, &Result{
				Stage:   stage.Name(),
				Success: false,
				Error:   ctxErr,
			})
			break
		}

		result, err := stage.Run(ctx, cfg)
		if err != nil {
			if firstError == nil {
				firstError = err
			}
			// Ensure we have a result even if the stage didn't return one
			if result == nil {
				result = &Result{
					Stage:   stage.Name(),
					Success: false,
					Error:   err,
				}
			}
		}

		results = append(results, result)

		if !result.Success {
			break
		}
	}

	return results, firstError
}

func (p *Pipeline) selectStages(names []string) ([]Stage, error) {
	if len(names) == 0 {
		return p.stages, nil
	}

	var selected []Stage
	for _, name := range names {
		stage, err := p.StageNamed(name)
		if err != nil {
			return nil, err
		}
		selected = append(selected, stage)
	}
	return selected, nil
}
