package psbody

import "github.com/johnbanq/meshinstall/internal/installer"

// stageResult wraps installer.Result with the small amount of bookkeeping
// every stage repeats: collecting output lines and closing out the result as
// success or failure.
type stageResult struct {
	*installer.Result
}

func newResult(stage string) *stageResult {
	return &stageResult{&installer.Result{Stage: stage}}
}

func (r *stageResult) append(lines []string) {
	r.Output = append(r.Output, lines...)
}

func (r *stageResult) fail(err error) (*installer.Result, error) {
	r.Error = err
	return r.Result, err
}

func (r *stageResult) ok() (*installer.Result, error) {
	r.Success = true
	return r.Result, nil
}
