// Package provider defines the hosting-API backends used to resolve versions.
package provider

//go:generate mockgen -source=provider.go -destination=mock_provider.go -package=provider

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrNotFound is returned when a lookup matches nothing upstream.
var ErrNotFound = errors.New("not found")

// Backend is the read-only view of a source-control hosting API needed to
// compute the next workload version. A Backend is bound to one repository.
type Backend interface {
	// Name returns the short identifier for this backend (e.g., "github", "gitea").
	Name() string

	// FindPRByMergeCommit returns the number of the closed pull request whose
	// merge commit is sha, or ErrNotFound.
	FindPRByMergeCommit(ctx context.Context, sha string) (int, error)

	// GetPR retrieves a pull request's labels and timestamps.
	GetPR(ctx context.Context, number int) (*PullRequest, error)

	// ListTags returns every tag in the repository, following pagination.
	ListTags(ctx context.Context) ([]Tag, error)

	// GetCommitDate returns the committer timestamp of a commit.
	GetCommitDate(ctx context.Context, sha string) (time.Time, error)
}

// PullRequest holds the pull request fields used for version resolution.
type PullRequest struct {
	Number         int
	Labels         []string
	ClosedAt       *time.Time
	CreatedAt      time.Time
	MergeCommitSHA string
}

// EventTime is the closing time when the PR is closed, otherwise its creation time.
func (p *PullRequest) EventTime() time.Time {
	if p.ClosedAt != nil && !p.ClosedAt.IsZero() {
		return *p.ClosedAt
	}
	return p.CreatedAt
}

// Tag is a repository tag. CommitDate is zero until filled from the commit.
type Tag struct {
	Name       string
	CommitSHA  string
	CommitDate time.Time
}

// Options configures a Backend.
type Options struct {
	// Owner and Repo identify the repository.
	Owner string
	Repo  string
	// BaseURL overrides the API endpoint (GitHub Enterprise, self-hosted forge).
	BaseURL string
	// Username is sent with the token in basic authentication, where used.
	Username string
	Token    string
	// PageSize is the number of items requested per list page.
	PageSize int
	// PageDelay throttles consecutive list page requests.
	PageDelay time.Duration
	// Retry is the transport-level retry policy applied to every request.
	Retry RetryPolicy
}

var repoPattern = regexp.MustCompile(`^([\w.-]+)/([\w.-]+)$`)

// ParseRepo splits an "owner/repo" identifier. Remote URLs such as
// https://github.com/owner/repo.git and git@github.com:owner/repo.git are
// accepted too.
func ParseRepo(s string) (owner, repo string, err error) {
	orig := s
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "/"); j >= 0 {
			s = s[j+1:]
		}
	} else if i := strings.Index(s, ":"); i >= 0 && strings.Contains(s[:i], "@") {
		s = s[i+1:]
	}

	m := repoPattern.FindStringSubmatch(s)
	if m == nil {
		return "", "", fmt.Errorf("cannot parse repository from %q: want owner/repo", orig)
	}
	return m[1], m[2], nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
