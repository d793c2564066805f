// Package git reports the source-control revision a build was produced from.
package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNotRepository is returned when no repository encloses the path.
var ErrNotRepository = errors.New("not a git repository")

// Revision identifies the checked-out commit.
type Revision struct {
	Commit string
	Branch string // empty on a detached HEAD
}

// Short returns the abbreviated commit hash.
func (r Revision) Short() string {
	if len(r.Commit) > 12 {
		return r.Commit[:12]
	}
	return r.Commit
}

// ReadRevision resolves HEAD of the repository containing path, searching
// parent directories for .git.
func ReadRevision(path string) (Revision, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return Revision{}, ErrNotRepository
		}
		return Revision{}, fmt.Errorf("open repository: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return Revision{}, fmt.Errorf("repository has no commits: %w", err)
		}
		return Revision{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	rev := Revision{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}
	return rev, nil
}
