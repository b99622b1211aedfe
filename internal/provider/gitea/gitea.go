// Package gitea implements provider.Backend against the Gitea/Forgejo REST
// API (/api/v1), which mirrors GitHub's repository endpoints.
package gitea

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanmeadows/tagbump/internal/provider"
)

// Backend implements provider.Backend for Gitea and Forgejo.
type Backend struct {
	httpClient *http.Client
	baseURL    string
	authHeader string
	owner      string
	repo       string
	pageSize   int
	pageDelay  time.Duration
}

// New is the provider.Factory for Gitea.
func New(opts provider.Options) (provider.Backend, error) {
	return NewBackend(opts)
}

// NewBackend creates a Gitea backend. BaseURL is the forge root, with or
// without the /api/v1 suffix.
func NewBackend(opts provider.Options) (*Backend, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("gitea backend requires base_url")
	}
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if !strings.HasSuffix(base, "/api/v1") {
		base += "/api/v1"
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return &Backend{
		httpClient: provider.NewHTTPClient(opts.Retry),
		baseURL:    base,
		authHeader: basicAuthHeader(opts.Username, opts.Token),
		owner:      opts.Owner,
		repo:       opts.Repo,
		pageSize:   pageSize,
		pageDelay:  opts.PageDelay,
	}, nil
}

// Name returns "gitea".
func (b *Backend) Name() string {
	return "gitea"
}

// FindPRByMergeCommit pages through closed pull requests until one merged as
// sha turns up or an empty page is returned.
func (b *Backend) FindPRByMergeCommit(ctx context.Context, sha string) (int, error) {
	for page := 1; ; page++ {
		var prs []giteaPullRequest
		q := b.pageQuery(page)
		q.Set("state", "closed")
		if err := b.get(ctx, b.repoPath("pulls"), q, &prs); err != nil {
			return 0, fmt.Errorf("failed to list closed pull requests: %w", err)
		}
		if len(prs) == 0 {
			break
		}
		for _, pr := range prs {
			if pr.MergeCommitSHA == sha {
				return pr.Number, nil
			}
		}
		if err := provider.Sleep(ctx, b.pageDelay); err != nil {
			return 0, err
		}
	}
	return 0, fmt.Errorf("no closed pull request merged as %s: %w", sha, provider.ErrNotFound)
}

// GetPR retrieves a pull request's labels and timestamps.
func (b *Backend) GetPR(ctx context.Context, number int) (*provider.PullRequest, error) {
	var pr giteaPullRequest
	if err := b.get(ctx, b.repoPath("pulls", strconv.Itoa(number)), nil, &pr); err != nil {
		return nil, fmt.Errorf("failed to get pull request #%d: %w", number, err)
	}

	labels := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		labels = append(labels, l.Name)
	}
	return &provider.PullRequest{
		Number:         pr.Number,
		Labels:         labels,
		ClosedAt:       pr.ClosedAt,
		CreatedAt:      pr.CreatedAt,
		MergeCommitSHA: pr.MergeCommitSHA,
	}, nil
}

// ListTags pages through repository tags until an empty page is returned,
// pausing pageDelay between pages.
func (b *Backend) ListTags(ctx context.Context) ([]provider.Tag, error) {
	var tags []provider.Tag
	for page := 1; ; page++ {
		var batch []giteaTag
		if err := b.get(ctx, b.repoPath("tags"), b.pageQuery(page), &batch); err != nil {
			return nil, fmt.Errorf("failed to list tags (page %d): %w", page, err)
		}
		if len(batch) == 0 {
			break
		}
		for _, t := range batch {
			tags = append(tags, provider.Tag{Name: t.Name, CommitSHA: t.Commit.SHA})
		}
		if err := provider.Sleep(ctx, b.pageDelay); err != nil {
			return nil, err
		}
	}
	slog.Debug("listed tags", "count", len(tags), "repo", b.owner+"/"+b.repo)
	return tags, nil
}

// GetCommitDate returns the committer date of sha.
func (b *Backend) GetCommitDate(ctx context.Context, sha string) (time.Time, error) {
	var c giteaCommit
	if err := b.get(ctx, b.repoPath("git", "commits", sha), nil, &c); err != nil {
		return time.Time{}, fmt.Errorf("failed to get commit %s: %w", sha, err)
	}
	d := c.date()
	if d.IsZero() {
		return time.Time{}, fmt.Errorf("commit %s carries no date", sha)
	}
	return d, nil
}

// --- Internal helpers ---

func (b *Backend) repoPath(parts ...string) string {
	escaped := make([]string, 0, len(parts)+3)
	escaped = append(escaped, "repos", url.PathEscape(b.owner), url.PathEscape(b.repo))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return "/" + strings.Join(escaped, "/")
}

func (b *Backend) pageQuery(page int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(b.pageSize))
	return q
}

// get performs an authenticated GET and decodes the JSON response into out.
// Transport retries happen below this call in provider.RetryTransport.
func (b *Backend) get(ctx context.Context, path string, query url.Values, out any) error {
	fullURL := b.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if b.authHeader != "" {
		req.Header.Set("Authorization", b.authHeader)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// parseError turns a non-200 response into an error, keeping the API message.
func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	msg := strings.TrimSpace(string(body))
	var apiErr giteaError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", msg, provider.ErrNotFound)
	}
	return fmt.Errorf("gitea API returned %d: %s", resp.StatusCode, msg)
}

// Verify Backend implements provider.Backend at compile time.
var _ provider.Backend = (*Backend)(nil)
