// Package gitutil manages scratch git checkouts of the library source tree:
// cloning at a pinned revision, scoped use-and-cleanup, and removal that
// copes with the read-only object files git writes on Windows.
package gitutil

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/johnbanq/meshinstall/internal/logging"
	"github.com/johnbanq/meshinstall/internal/runner"
)

// RepoSpec identifies a repository checkout at a pinned revision.
type RepoSpec struct {
	URL      string // Clone URL
	Revision string // Commit hash or ref to check out; empty means default branch
	Dir      string // Target directory for the clone
}

// Clone clones the repository into spec.Dir and checks out the pinned
// revision. A pre-existing target directory is removed first so the checkout
// is always pristine.
func Clone(ctx context.Context, spec RepoSpec) error {
	if _, err := os.Stat(spec.Dir); err == nil {
		logging.Debug("path exists, removing it")
		if err := Remove(spec.Dir); err != nil {
			return err
		}
	}

	if _, err := runner.Run(ctx, runner.Options{}, "git", "clone", spec.URL, spec.Dir); err != nil {
		return err
	}

	if spec.Revision != "" {
		if _, err := runner.Run(ctx, runner.Options{Dir: spec.Dir}, "git", "checkout", spec.Revision); err != nil {
			return err
		}
	}

	return nil
}

// InRepository clones the repository, runs fn with the checkout directory,
// and removes the checkout afterwards unless keep is set. The checkout is
// removed even when fn fails.
func InRepository(ctx context.Context, spec RepoSpec, keep bool, fn func(dir string) error) error {
	if err := Clone(ctx, spec); err != nil {
		return err
	}

	defer func() {
		if keep {
			return
		}
		if err := Remove(spec.Dir); err != nil {
			logging.Warn("failed to remove repository %s: %v", spec.Dir, err)
		}
	}()

	return fn(spec.Dir)
}

// CheckoutPath restores a path inside an existing checkout from the index,
// discarding whatever is on disk for it.
func CheckoutPath(ctx context.Context, dir, path string) error {
	_, err := runner.Run(ctx, runner.Options{Dir: dir}, "git", "checkout", "--", path)
	return err
}

// Remove deletes a checkout directory.
//
// On Windows the files under .git are read-only and os.RemoveAll fails on
// them, so on error every entry is made writable and the removal retried.
func Remove(dir string) error {
	err := os.RemoveAll(dir)
	if err == nil {
		return nil
	}

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Entry may already be gone
		}
		mode := fs.FileMode(0o666)
		if d.IsDir() {
			mode = 0o777
		}
		if chmodErr := os.Chmod(path, mode); chmodErr != nil {
			logging.Debug("chmod %s: %v", path, chmodErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("failed to reset permissions under %s: %w", dir, walkErr)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	return nil
}
