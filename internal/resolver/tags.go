package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/alanmeadows/tagbump/internal/provider"
)

// MatchPrefix keeps the tags whose name starts with prefix.
func MatchPrefix(tags []provider.Tag, prefix string) []provider.Tag {
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix))
	var out []provider.Tag
	for _, t := range tags {
		if re.MatchString(t.Name) {
			out = append(out, t)
		}
	}
	return out
}

// CollectTags lists the repository's tags, keeps the workload's, and fills
// each survivor's commit date.
func CollectTags(ctx context.Context, backend provider.Backend, prefix string) ([]provider.Tag, error) {
	all, err := backend.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	tags := MatchPrefix(all, prefix)
	slog.Info("collected workload tags", "prefix", prefix, "matched", len(tags), "total", len(all))

	for i := range tags {
		date, err := backend.GetCommitDate(ctx, tags[i].CommitSHA)
		if err != nil {
			return nil, fmt.Errorf("dating tag %s: %w", tags[i].Name, err)
		}
		tags[i].CommitDate = date
	}
	return tags, nil
}

// InRaceWindow reports whether t was committed within window of ref.
func InRaceWindow(t provider.Tag, ref time.Time, window time.Duration) bool {
	d := t.CommitDate.Sub(ref)
	if d < 0 {
		d = -d
	}
	return d <= window
}

// FilterRaced drops tags committed within window of ref. Such a tag was most
// likely produced for the pull request being processed, and counting it as
// the latest release would bump twice.
func FilterRaced(tags []provider.Tag, ref time.Time, window time.Duration) []provider.Tag {
	out := make([]provider.Tag, 0, len(tags))
	for _, t := range tags {
		if InRaceWindow(t, ref, window) {
			slog.Info("ignoring tag inside race window", "tag", t.Name, "committed", t.CommitDate, "reference", ref, "window", window)
			continue
		}
		out = append(out, t)
	}
	return out
}
