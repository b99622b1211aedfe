// Package gitinfo reads facts about the local checkout: its root, the HEAD
// commit and the origin remote.
package gitinfo

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
)

// ErrNotRepository means the directory is not inside a git checkout.
var ErrNotRepository = errors.New("not in a git repository")

// Repo is an opened local checkout.
type Repo struct {
	repo *git.Repository
	root string
}

// Open opens the checkout containing dir, walking up to find .git.
func Open(dir string) (*Repo, error) {
	r, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, ErrNotRepository
	}
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", dir, err)
	}

	wt, err := r.Worktree()
	if err != nil {
		return nil, fmt.Errorf("reading worktree: %w", err)
	}
	return &Repo{repo: r, root: wt.Filesystem.Root()}, nil
}

// Root is the top-level directory of the worktree.
func (r *Repo) Root() string {
	return r.root
}

// HeadSHA returns the commit HEAD points at.
func (r *Repo) HeadSHA() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// OriginURL returns the first URL of the origin remote.
func (r *Repo) OriginURL() (string, error) {
	remote, err := r.repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("reading origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("origin remote has no URL")
	}
	return urls[0], nil
}

// RepoRoot returns the checkout root containing dir, or "" outside a checkout.
func RepoRoot(dir string) string {
	r, err := Open(dir)
	if err != nil {
		return ""
	}
	return r.Root()
}
