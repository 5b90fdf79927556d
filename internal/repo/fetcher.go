// Package repo materializes remote source repositories into transient local
// workspaces and walks them file by file.
package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// Workspace is a checked-out tree owned by the caller until Release.
type Workspace struct {
	URL    string
	Branch string
	Dir    string
}

// Fetcher clones repositories. Every successful Fetch must be paired with
// Release, which removes the workspace.
type Fetcher interface {
	Fetch(ctx context.Context, url, branch string) (*Workspace, error)
	Release(ws *Workspace) error
}

// GitFetcher clones with go-git into fresh directories under Root.
type GitFetcher struct {
	// Root is the parent directory of all workspaces.
	Root string
	// Depth limits history; 0 clones everything.
	Depth int
	// DefaultBranch is used when Fetch gets no branch; empty means the remote HEAD.
	DefaultBranch string
	// Progress receives the remote's sideband output; nil discards it.
	Progress io.Writer
	Logger   *zap.Logger
}

// NewGitFetcher returns a shallow-cloning fetcher rooted at root.
func NewGitFetcher(root string, depth int, defaultBranch string, logger *zap.Logger) *GitFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitFetcher{Root: root, Depth: depth, DefaultBranch: defaultBranch, Logger: logger}
}

// Fetch clones url at branch into a new workspace. On failure nothing is left
// on disk and the error wraps models.ErrSourceUnavailable.
func (f *GitFetcher) Fetch(ctx context.Context, url, branch string) (*Workspace, error) {
	if branch == "" {
		branch = f.DefaultBranch
	}
	if err := os.MkdirAll(f.Root, 0755); err != nil {
		return nil, fmt.Errorf("%w: create workspace root: %v", models.ErrSourceUnavailable, err)
	}
	dir, err := os.MkdirTemp(f.Root, "repo-")
	if err != nil {
		return nil, fmt.Errorf("%w: create workspace: %v", models.ErrSourceUnavailable, err)
	}

	opts := &git.CloneOptions{
		URL:          url,
		Depth:        f.Depth,
		SingleBranch: true,
		Tags:         git.NoTags,
		Progress:     f.Progress,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	f.Logger.Info("cloning repository", zap.String("url", url), zap.String("branch", branch), zap.String("dir", dir))
	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			f.Logger.Warn("failed to remove workspace", zap.String("dir", dir), zap.Error(rmErr))
		}
		if errors.Is(err, transport.ErrEmptyRemoteRepository) {
			return nil, fmt.Errorf("%w: %s is empty", models.ErrSourceUnavailable, url)
		}
		return nil, fmt.Errorf("%w: clone %s: %v", models.ErrSourceUnavailable, url, err)
	}
	return &Workspace{URL: url, Branch: branch, Dir: dir}, nil
}

// Release removes the workspace directory. Releasing nil is a no-op.
func (f *GitFetcher) Release(ws *Workspace) error {
	if ws == nil || ws.Dir == "" {
		return nil
	}
	if !within(f.Root, ws.Dir) {
		return fmt.Errorf("workspace %s is outside %s", ws.Dir, f.Root)
	}
	if err := os.RemoveAll(ws.Dir); err != nil {
		return fmt.Errorf("remove workspace %s: %w", ws.Dir, err)
	}
	return nil
}

// within reports whether dir is strictly inside root.
func within(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
