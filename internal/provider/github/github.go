package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	github_ratelimit "github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/alanmeadows/tagbump/internal/provider"
)

// publicAPIURL is the REST endpoint of github.com; GITHUB_API_URL carries it
// on hosted runners.
const publicAPIURL = "https://api.github.com"

// Backend implements provider.Backend for GitHub and GitHub Enterprise.
type Backend struct {
	client     *gh.Client
	httpClient *http.Client
	gqlOnce    sync.Once
	gqlClient  *githubv4.Client
	owner      string
	repo       string
	token      string
	baseURL    string
	pageSize   int
	pageDelay  time.Duration
}

// New is the provider.Factory for GitHub.
func New(opts provider.Options) (provider.Backend, error) {
	return NewBackend(opts)
}

// NewBackend creates a GitHub backend for opts.Owner/opts.Repo.
// Requests pass through go-github-ratelimit and then the retry transport.
func NewBackend(opts provider.Options) (*Backend, error) {
	retrying := provider.NewRetryTransport(nil, opts.Retry)
	rateLimiter := github_ratelimit.NewClient(retrying)

	client := gh.NewClient(rateLimiter)
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}

	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == publicAPIURL {
		baseURL = ""
	}
	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL+"/", baseURL+"/")
		if err != nil {
			return nil, fmt.Errorf("configuring GitHub Enterprise URL %q: %w", baseURL, err)
		}
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return &Backend{
		client:     client,
		httpClient: &http.Client{Transport: retrying},
		owner:      opts.Owner,
		repo:       opts.Repo,
		token:      opts.Token,
		baseURL:    baseURL,
		pageSize:   pageSize,
		pageDelay:  opts.PageDelay,
	}, nil
}

// Name returns "github".
func (b *Backend) Name() string {
	return "github"
}

// FindPRByMergeCommit scans closed pull requests, most recently updated
// first, for one whose merge commit is sha. When the REST listing has no
// match the commit's associated pull requests are queried over GraphQL.
func (b *Backend) FindPRByMergeCommit(ctx context.Context, sha string) (int, error) {
	opts := &gh.PullRequestListOptions{
		State:       "closed",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: b.pageSize},
	}
	for {
		prs, resp, err := b.client.PullRequests.List(ctx, b.owner, b.repo, opts)
		if err != nil {
			return 0, fmt.Errorf("failed to list closed pull requests: %w", err)
		}
		for _, pr := range prs {
			if pr.GetMergeCommitSHA() == sha {
				return pr.GetNumber(), nil
			}
		}
		if len(prs) == 0 || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		if err := provider.Sleep(ctx, b.pageDelay); err != nil {
			return 0, err
		}
	}

	slog.Debug("no closed pull request lists the merge commit, asking GraphQL", "sha", sha)
	return b.findAssociatedPR(ctx, sha)
}

// GetPR retrieves a pull request's labels and timestamps.
func (b *Backend) GetPR(ctx context.Context, number int) (*provider.PullRequest, error) {
	pr, _, err := b.client.PullRequests.Get(ctx, b.owner, b.repo, number)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("pull request #%d: %w", number, provider.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get pull request #%d: %w", number, err)
	}
	return mapPR(pr), nil
}

// ListTags returns all repository tags, page by page.
func (b *Backend) ListTags(ctx context.Context) ([]provider.Tag, error) {
	var tags []provider.Tag
	opts := &gh.ListOptions{PerPage: b.pageSize}
	for {
		page, resp, err := b.client.Repositories.ListTags(ctx, b.owner, b.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list tags (page %d): %w", opts.Page, err)
		}
		for _, t := range page {
			tags = append(tags, provider.Tag{
				Name:      t.GetName(),
				CommitSHA: t.GetCommit().GetSHA(),
			})
		}
		if len(page) == 0 || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		if err := provider.Sleep(ctx, b.pageDelay); err != nil {
			return nil, err
		}
	}
	slog.Debug("listed tags", "count", len(tags), "repo", b.owner+"/"+b.repo)
	return tags, nil
}

// GetCommitDate returns the committer date of sha, or the author date when
// the committer carries none.
func (b *Backend) GetCommitDate(ctx context.Context, sha string) (time.Time, error) {
	commit, _, err := b.client.Git.GetCommit(ctx, b.owner, b.repo, sha)
	if err != nil {
		if isNotFound(err) {
			return time.Time{}, fmt.Errorf("commit %s: %w", sha, provider.ErrNotFound)
		}
		return time.Time{}, fmt.Errorf("failed to get commit %s: %w", sha, err)
	}
	if d := commit.GetCommitter().GetDate(); !d.IsZero() {
		return d.Time, nil
	}
	return commit.GetAuthor().GetDate().Time, nil
}

// --- Internal helpers ---

// findAssociatedPR asks GraphQL for the merged pull request whose merge
// commit is sha.
func (b *Backend) findAssociatedPR(ctx context.Context, sha string) (int, error) {
	if b.token == "" {
		return 0, fmt.Errorf("no closed pull request merged as %s: %w", sha, provider.ErrNotFound)
	}

	var q associatedPRQuery
	vars := map[string]any{
		"owner": githubv4.String(b.owner),
		"name":  githubv4.String(b.repo),
		"oid":   githubv4.GitObjectID(sha),
	}
	if err := b.getGraphQLClient(ctx).Query(ctx, &q, vars); err != nil {
		return 0, fmt.Errorf("failed to query pull requests associated with %s: %w", sha, err)
	}

	for _, node := range q.Repository.Object.Commit.AssociatedPullRequests.Nodes {
		if node.MergeCommit != nil && string(node.MergeCommit.Oid) == sha {
			return node.Number, nil
		}
	}
	return 0, fmt.Errorf("no closed pull request merged as %s: %w", sha, provider.ErrNotFound)
}

// getGraphQLClient returns (and lazily creates) the GitHub GraphQL client.
// Thread-safe via sync.Once.
func (b *Backend) getGraphQLClient(ctx context.Context) *githubv4.Client {
	b.gqlOnce.Do(func() {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: b.token})
		// oauth2 layers its token transport over the retrying client.
		httpClient := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, b.httpClient), ts)
		if b.baseURL == "" {
			b.gqlClient = githubv4.NewClient(httpClient)
		} else {
			b.gqlClient = githubv4.NewEnterpriseClient(graphQLURL(b.baseURL), httpClient)
		}
	})
	return b.gqlClient
}

// graphQLURL derives the Enterprise GraphQL endpoint from the REST base URL.
func graphQLURL(restBase string) string {
	base := strings.TrimSuffix(restBase, "/")
	base = strings.TrimSuffix(base, "/api/v3")
	return base + "/api/graphql"
}

// mapPR converts a GitHub PullRequest to provider.PullRequest.
func mapPR(pr *gh.PullRequest) *provider.PullRequest {
	labels := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		labels = append(labels, l.GetName())
	}

	out := &provider.PullRequest{
		Number:         pr.GetNumber(),
		Labels:         labels,
		CreatedAt:      pr.GetCreatedAt().Time,
		MergeCommitSHA: pr.GetMergeCommitSHA(),
	}
	if pr.ClosedAt != nil {
		closed := pr.GetClosedAt().Time
		out.ClosedAt = &closed
	}
	return out
}

func isNotFound(err error) bool {
	var ghErr *gh.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

// Verify Backend implements provider.Backend at compile time.
var _ provider.Backend = (*Backend)(nil)
