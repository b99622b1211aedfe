// Package resolver computes the next version tag of a workload from the bump
// label of a pull request and the workload's existing tags.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/alanmeadows/tagbump/internal/provider"
	"github.com/alanmeadows/tagbump/internal/version"
)

// DefaultRaceWindow is how close to the pull request event a tag's commit may
// be before the tag is treated as produced by this same change.
const DefaultRaceWindow = time.Minute

// ErrNoPullRequest means no pull request number could be determined.
var ErrNoPullRequest = errors.New("could not determine the pull request: pass --pr, or run on a pull request merge ref or a merge commit")

var mergeRefPattern = regexp.MustCompile(`(\d+)/merge`)

// Options is everything the resolver needs from the environment.
type Options struct {
	// Prefix selects the workload's tags. May be empty.
	Prefix string
	// PRNumber is an explicit pull request number; 0 means unset.
	PRNumber int
	// MergeRef is the CI ref, e.g. refs/pull/123/merge.
	MergeRef string
	// CommitSHA is the commit being built, used to find the merged pull request.
	CommitSHA string
	// RaceWindow overrides DefaultRaceWindow when positive.
	RaceWindow time.Duration
}

func (o Options) raceWindow() time.Duration {
	if o.RaceWindow > 0 {
		return o.RaceWindow
	}
	return DefaultRaceWindow
}

// Result is the outcome of a successful resolution.
type Result struct {
	PullRequest *provider.PullRequest
	ChangeType  version.ChangeType
	// Candidates are the workload tags that survived race filtering.
	Candidates []provider.Tag
	// Previous is the latest prior version; nil on a first release.
	Previous   *version.Version
	NewVersion version.Version
}

// Resolver runs one resolution against a backend.
type Resolver struct {
	backend provider.Backend
	opts    Options
}

// New creates a Resolver.
func New(backend provider.Backend, opts Options) *Resolver {
	return &Resolver{backend: backend, opts: opts}
}

// Resolve runs the full procedure: pull request, bump label, tags, race
// filter, version calculation. It stops at the first failure.
func (r *Resolver) Resolve(ctx context.Context) (*Result, error) {
	number, err := r.ResolvePRNumber(ctx)
	if err != nil {
		return nil, err
	}

	pr, err := r.backend.GetPR(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("fetching pull request #%d: %w", number, err)
	}

	ct, err := version.ChangeTypeFromLabels(pr.Labels)
	if err != nil {
		return nil, fmt.Errorf("pull request #%d: %w", number, err)
	}
	slog.Info("bump label validated", "pr", number, "change", ct.String())

	tags, err := CollectTags(ctx, r.backend, r.opts.Prefix)
	if err != nil {
		return nil, err
	}

	candidates := FilterRaced(tags, pr.EventTime(), r.opts.raceWindow())

	res := &Result{
		PullRequest: pr,
		ChangeType:  ct,
		Candidates:  candidates,
	}

	names := make([]string, 0, len(candidates))
	for _, t := range candidates {
		names = append(names, t.Name)
	}

	latest, ok := version.Latest(r.opts.Prefix, names)
	if !ok {
		res.NewVersion = version.First(r.opts.Prefix)
		slog.Info("no prior release for workload", "prefix", r.opts.Prefix, "version", res.NewVersion.String())
		return res, nil
	}

	next, err := latest.Bump(ct)
	if err != nil {
		return nil, err
	}
	res.Previous = &latest
	res.NewVersion = next
	slog.Info("computed next version", "previous", latest.String(), "change", ct.String(), "version", next.String())
	return res, nil
}

// ResolvePRNumber picks the pull request: explicit number, then the merge
// ref, then the closed pull request merged as the current commit.
func (r *Resolver) ResolvePRNumber(ctx context.Context) (int, error) {
	if r.opts.PRNumber > 0 {
		slog.Debug("using explicit pull request number", "pr", r.opts.PRNumber)
		return r.opts.PRNumber, nil
	}

	if n := prFromMergeRef(r.opts.MergeRef); n > 0 {
		slog.Debug("pull request number from merge ref", "pr", n, "ref", r.opts.MergeRef)
		return n, nil
	}

	if r.opts.CommitSHA == "" {
		return 0, ErrNoPullRequest
	}

	n, err := r.backend.FindPRByMergeCommit(ctx, r.opts.CommitSHA)
	if errors.Is(err, provider.ErrNotFound) {
		return 0, fmt.Errorf("%w (no pull request merged as %s)", ErrNoPullRequest, r.opts.CommitSHA)
	}
	if err != nil {
		return 0, fmt.Errorf("looking up pull request for %s: %w", r.opts.CommitSHA, err)
	}
	slog.Debug("pull request number from merge commit", "pr", n, "sha", r.opts.CommitSHA)
	return n, nil
}

func prFromMergeRef(ref string) int {
	m := mergeRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
