package gitea

import "time"

// Gitea REST API response types. Only the fields used for version
// resolution are decoded.

type giteaLabel struct {
	Name string `json:"name"`
}

type giteaPullRequest struct {
	Number         int          `json:"number"`
	Labels         []giteaLabel `json:"labels"`
	CreatedAt      time.Time    `json:"created_at"`
	ClosedAt       *time.Time   `json:"closed_at"`
	MergeCommitSHA string       `json:"merge_commit_sha"`
}

type giteaTag struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type giteaSignature struct {
	Date time.Time `json:"date"`
}

// giteaCommit covers both the Gitea shape (dates nested under "commit",
// plus "created") and the GitHub git-commit shape (dates at the top level).
type giteaCommit struct {
	SHA       string          `json:"sha"`
	Created   time.Time       `json:"created"`
	Author    *giteaSignature `json:"author"`
	Committer *giteaSignature `json:"committer"`
	Commit    *struct {
		Author    *giteaSignature `json:"author"`
		Committer *giteaSignature `json:"committer"`
	} `json:"commit"`
}

// date returns the first non-zero timestamp, preferring committer dates.
func (c *giteaCommit) date() time.Time {
	candidates := []*giteaSignature{c.Committer}
	if c.Commit != nil {
		candidates = []*giteaSignature{c.Commit.Committer, c.Committer}
	}
	for _, s := range candidates {
		if s != nil && !s.Date.IsZero() {
			return s.Date
		}
	}
	if !c.Created.IsZero() {
		return c.Created
	}
	if c.Commit != nil && c.Commit.Author != nil && !c.Commit.Author.Date.IsZero() {
		return c.Commit.Author.Date
	}
	if c.Author != nil {
		return c.Author.Date
	}
	return time.Time{}
}

type giteaError struct {
	Message string `json:"message"`
}
