package resolver

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/alanmeadows/tagbump/internal/provider"
)

func TestMatchPrefix(t *testing.T) {
	tags := []provider.Tag{
		{Name: "svc-v1.0.0"},
		{Name: "other-svc-v1.0.0"},
		{Name: "svc-a-v2.0.0"},
		{Name: "svcv3.0.0"},
		{Name: "v0.1.0"},
	}

	got := MatchPrefix(tags, "svc-")
	want := []provider.Tag{{Name: "svc-v1.0.0"}, {Name: "svc-a-v2.0.0"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MatchPrefix mismatch (-want +got):\n%s", diff)
	}

	assert.Len(t, MatchPrefix(tags, ""), len(tags), "empty prefix matches everything")
	assert.Empty(t, MatchPrefix(tags, "svc.v"), "prefix is literal, not a pattern")
}

func TestFilterRaced(t *testing.T) {
	ref := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tags := []provider.Tag{
		{Name: "before-outside", CommitDate: ref.Add(-61 * time.Second)},
		{Name: "before-inside", CommitDate: ref.Add(-59 * time.Second)},
		{Name: "exact", CommitDate: ref},
		{Name: "edge", CommitDate: ref.Add(time.Minute)},
		{Name: "after-outside", CommitDate: ref.Add(2 * time.Minute)},
	}

	got := FilterRaced(tags, ref, DefaultRaceWindow)
	names := make([]string, 0, len(got))
	for _, tg := range got {
		names = append(names, tg.Name)
	}
	assert.Equal(t, []string{"before-outside", "after-outside"}, names)
}

func TestInRaceWindow(t *testing.T) {
	ref := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, InRaceWindow(provider.Tag{CommitDate: ref.Add(30 * time.Second)}, ref, time.Minute))
	assert.False(t, InRaceWindow(provider.Tag{CommitDate: ref.Add(-2 * time.Minute)}, ref, time.Minute))
	assert.False(t, InRaceWindow(provider.Tag{CommitDate: ref.Add(time.Second)}, ref, 0))
}
