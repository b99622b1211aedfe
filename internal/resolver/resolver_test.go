package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanmeadows/tagbump/internal/provider"
	"github.com/alanmeadows/tagbump/internal/version"
)

var (
	prCreated = time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	prClosed  = time.Date(2024, 4, 2, 16, 0, 0, 0, time.UTC)
)

func closedPR(number int, labels ...string) *provider.PullRequest {
	closed := prClosed
	return &provider.PullRequest{
		Number:    number,
		Labels:    labels,
		CreatedAt: prCreated,
		ClosedAt:  &closed,
	}
}

// expectTags wires ListTags and one GetCommitDate per tag whose date is set.
func expectTags(m *provider.MockBackend, tags ...provider.Tag) {
	listed := make([]provider.Tag, len(tags))
	for i, t := range tags {
		listed[i] = provider.Tag{Name: t.Name, CommitSHA: t.CommitSHA}
		if !t.CommitDate.IsZero() {
			m.EXPECT().GetCommitDate(gomock.Any(), t.CommitSHA).Return(t.CommitDate, nil)
		}
	}
	m.EXPECT().ListTags(gomock.Any()).Return(listed, nil)
}

func daysBefore(n int) time.Time { return prClosed.Add(-time.Duration(n) * 24 * time.Hour) }

func TestResolve_Increments(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"patch", "svc-v1.2.4"},
		{"minor", "svc-v1.3.0"},
		{"major", "svc-v2.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := provider.NewMockBackend(ctrl)

			m.EXPECT().GetPR(gomock.Any(), 17).Return(closedPR(17, "docs", tt.label), nil)
			expectTags(m,
				provider.Tag{Name: "svc-v1.2.3", CommitSHA: "c3", CommitDate: daysBefore(2)},
				provider.Tag{Name: "svc-v1.2.2", CommitSHA: "c2", CommitDate: daysBefore(9)},
				provider.Tag{Name: "web-v9.0.0", CommitSHA: "w9"},
			)

			res, err := New(m, Options{Prefix: "svc-", PRNumber: 17}).Resolve(t.Context())
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.NewVersion.String())
			require.NotNil(t, res.Previous)
			assert.Equal(t, "svc-v1.2.3", res.Previous.String())
			assert.Equal(t, tt.label, res.ChangeType.String())
		})
	}
}

func TestResolve_FirstRelease(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := provider.NewMockBackend(ctrl)

	m.EXPECT().GetPR(gomock.Any(), 3).Return(closedPR(3, "minor"), nil)
	expectTags(m,
		provider.Tag{Name: "other-svc-v1.0.0", CommitSHA: "o1"},
		provider.Tag{Name: "web-v2.0.0", CommitSHA: "w2"},
	)

	res, err := New(m, Options{Prefix: "svc-", PRNumber: 3}).Resolve(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "svc-v1.0.0", res.NewVersion.String())
	assert.Nil(t, res.Previous)
	assert.Empty(t, res.Candidates)
}

func TestResolve_NumericNotLexicographic(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := provider.NewMockBackend(ctrl)

	m.EXPECT().GetPR(gomock.Any(), 5).Return(closedPR(5, "patch"), nil)
	expectTags(m,
		provider.Tag{Name: "svc-v1.9.0", CommitSHA: "a", CommitDate: daysBefore(30)},
		provider.Tag{Name: "svc-v2.0.0", CommitSHA: "b", CommitDate: daysBefore(20)},
		provider.Tag{Name: "svc-v1.10.0", CommitSHA: "c", CommitDate: daysBefore(10)},
	)

	res, err := New(m, Options{Prefix: "svc-", PRNumber: 5}).Resolve(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "svc-v2.0.1", res.NewVersion.String())
}

func TestResolve_RaceWindowExcludesFreshTag(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := provider.NewMockBackend(ctrl)

	m.EXPECT().GetPR(gomock.Any(), 8).Return(closedPR(8, "minor"), nil)
	expectTags(m,
		provider.Tag{Name: "svc-v1.4.0", CommitSHA: "old", CommitDate: daysBefore(3)},
		// Produced by an earlier run for this same PR: would otherwise be the max.
		provider.Tag{Name: "svc-v1.5.0", CommitSHA: "new", CommitDate: prClosed.Add(20 * time.Second)},
	)

	res, err := New(m, Options{Prefix: "svc-", PRNumber: 8}).Resolve(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "svc-v1.5.0", res.NewVersion.String())
	assert.Equal(t, "svc-v1.4.0", res.Previous.String())

	want := []provider.Tag{{Name: "svc-v1.4.0", CommitSHA: "old", CommitDate: daysBefore(3)}}
	if diff := cmp.Diff(want, res.Candidates); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_OpenPRUsesCreatedAt(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := provider.NewMockBackend(ctrl)

	open := &provider.PullRequest{Number: 9, Labels: []string{"patch"}, CreatedAt: prCreated}
	m.EXPECT().GetPR(gomock.Any(), 9).Return(open, nil)
	expectTags(m,
		provider.Tag{Name: "v0.3.0", CommitSHA: "a", CommitDate: prCreated.Add(-30 * time.Second)},
		provider.Tag{Name: "v0.2.0", CommitSHA: "b", CommitDate: prCreated.Add(-time.Hour)},
	)

	res, err := New(m, Options{PRNumber: 9}).Resolve(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "v0.2.1", res.NewVersion.String())
}

func TestResolve_CustomRaceWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := provider.NewMockBackend(ctrl)

	m.EXPECT().GetPR(gomock.Any(), 4).Return(closedPR(4, "patch"), nil)
	expectTags(m, provider.Tag{Name: "v1.0.0", CommitSHA: "a", CommitDate: prClosed.Add(-5 * time.Minute)})

	res, err := New(m, Options{PRNumber: 4, RaceWindow: 10 * time.Minute}).Resolve(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "v1.0.0", res.NewVersion.String(), "tag inside a 10m window is ignored")
}

func TestResolve_LabelFailuresStopEarly(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   error
	}{
		{"no label", []string{"bug"}, version.ErrNoBumpLabel},
		{"patch and minor", []string{"patch", "minor"}, version.ErrMultipleBumpLabels},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := provider.NewMockBackend(ctrl)
			// No ListTags/GetCommitDate expectations: the run must stop here.
			m.EXPECT().GetPR(gomock.Any(), 11).Return(closedPR(11, tt.labels...), nil)

			res, err := New(m, Options{PRNumber: 11}).Resolve(t.Context())
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, version.ErrLabel)
		})
	}
}

func TestResolve_BackendErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("get pr", func(t *testing.T) {
		m := provider.NewMockBackend(gomock.NewController(t))
		m.EXPECT().GetPR(gomock.Any(), 1).Return(nil, boom)
		_, err := New(m, Options{PRNumber: 1}).Resolve(t.Context())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("list tags", func(t *testing.T) {
		m := provider.NewMockBackend(gomock.NewController(t))
		m.EXPECT().GetPR(gomock.Any(), 1).Return(closedPR(1, "patch"), nil)
		m.EXPECT().ListTags(gomock.Any()).Return(nil, boom)
		_, err := New(m, Options{PRNumber: 1}).Resolve(t.Context())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("commit date", func(t *testing.T) {
		m := provider.NewMockBackend(gomock.NewController(t))
		m.EXPECT().GetPR(gomock.Any(), 1).Return(closedPR(1, "patch"), nil)
		m.EXPECT().ListTags(gomock.Any()).Return([]provider.Tag{{Name: "v1.0.0", CommitSHA: "a"}}, nil)
		m.EXPECT().GetCommitDate(gomock.Any(), "a").Return(time.Time{}, boom)
		_, err := New(m, Options{PRNumber: 1}).Resolve(t.Context())
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "v1.0.0")
	})
}

func TestResolvePRNumber(t *testing.T) {
	t.Run("explicit wins", func(t *testing.T) {
		m := provider.NewMockBackend(gomock.NewController(t))
		n, err := New(m, Options{PRNumber: 42, MergeRef: "refs/pull/7/merge", CommitSHA: "abc"}).ResolvePRNumber(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 42, n)
	})

	t.Run("merge ref", func(t *testing.T) {
		m := provider.NewMockBackend(gomock.NewController(t))
		n, err := New(m, Options{MergeRef: "refs/pull/7/merge", CommitSHA: "abc"}).ResolvePRNumber(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})

	t.Run("merge commit", func(t *testing.T) {
		m := provider.NewMockBackend(gomock.NewController(t))
		m.EXPECT().FindPRByMergeCommit(gomock.Any(), "abc").Return(99, nil)
		n, err := New(m, Options{MergeRef: "refs/heads/main", CommitSHA: "abc"}).ResolvePRNumber(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 99, n)
	})

	t.Run("merge commit not found", func(t *testing.T) {
		m := provider.NewMockBackend(gomock.NewController(t))
		m.EXPECT().FindPRByMergeCommit(gomock.Any(), "abc").Return(0, provider.ErrNotFound)
		_, err := New(m, Options{CommitSHA: "abc"}).ResolvePRNumber(t.Context())
		assert.ErrorIs(t, err, ErrNoPullRequest)
	})

	t.Run("lookup transport failure", func(t *testing.T) {
		m := provider.NewMockBackend(gomock.NewController(t))
		m.EXPECT().FindPRByMergeCommit(gomock.Any(), "abc").Return(0, context.DeadlineExceeded)
		_, err := New(m, Options{CommitSHA: "abc"}).ResolvePRNumber(t.Context())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, ErrNoPullRequest)
	})

	t.Run("nothing to go on", func(t *testing.T) {
		m := provider.NewMockBackend(gomock.NewController(t))
		_, err := New(m, Options{}).ResolvePRNumber(t.Context())
		assert.ErrorIs(t, err, ErrNoPullRequest)
	})
}

func TestPRFromMergeRef(t *testing.T) {
	tests := []struct {
		ref  string
		want int
	}{
		{"refs/pull/123/merge", 123},
		{"123/merge", 123},
		{"refs/heads/main", 0},
		{"refs/pull/123/head", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, prFromMergeRef(tt.ref))
		})
	}
}
