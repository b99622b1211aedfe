package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/alanmeadows/tagbump/internal/provider"
	"github.com/alanmeadows/tagbump/internal/resolver"
	"github.com/alanmeadows/tagbump/internal/version"
)

var (
	tagsPrefix string
	tagsFlags  repoFlags
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List a workload's tags",
	Long: `Display the workload's tags with their parsed version and commit date.

The tag next would bump from is marked latest. With --pr, tags inside the
race window of that pull request are marked and excluded from latest.`,
	Example: `  tagbump tags --prefix svc-
  tagbump tags --prefix svc- --pr 42`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		tagsFlags.apply(cfg)

		backend, err := openBackend(cfg)
		if err != nil {
			return err
		}
		rows, err := listTagRows(cmd.Context(), backend, tagsPrefix, tagsFlags.pr, cfg.Tags.ParseRaceWindow())
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No tags with prefix %q. The first release will be %s.\n",
				tagsPrefix, version.First(tagsPrefix))
			return nil
		}
		renderTagTable(cmd.OutOrStdout(), rows)
		return nil
	},
}

func init() {
	tagsCmd.Flags().StringVar(&tagsPrefix, "prefix", "", "Tag prefix identifying the workload (required, may be empty)")
	tagsCmd.Flags().StringVar(&tagsFlags.repo, "repo", "", "Repository as owner/repo")
	tagsCmd.Flags().StringVar(&tagsFlags.token, "token", "", "API token")
	tagsCmd.Flags().IntVar(&tagsFlags.pr, "pr", 0, "Mark tags inside this pull request's race window")
	_ = tagsCmd.MarkFlagRequired("prefix")
}

// tagRow is one line of the tags table.
type tagRow struct {
	Tag      provider.Tag
	Version  *version.Version
	Latest   bool
	InWindow bool
	Unparsed bool
}

// listTagRows collects the workload's tags, newest version first.
// Unparseable tags sort last.
func listTagRows(ctx context.Context, backend provider.Backend, prefix string, pr int, window time.Duration) ([]tagRow, error) {
	tags, err := resolver.CollectTags(ctx, backend, prefix)
	if err != nil {
		return nil, err
	}

	var ref time.Time
	if pr > 0 {
		p, err := backend.GetPR(ctx, pr)
		if err != nil {
			return nil, fmt.Errorf("fetching pull request #%d: %w", pr, err)
		}
		ref = p.EventTime()
	}

	rows := make([]tagRow, 0, len(tags))
	var candidates []string
	for _, t := range tags {
		row := tagRow{Tag: t}
		if v, err := version.Parse(prefix, t.Name); err == nil {
			row.Version = &v
		} else {
			row.Unparsed = true
		}
		if !ref.IsZero() && resolver.InRaceWindow(t, ref, window) {
			row.InWindow = true
		} else if !row.Unparsed {
			candidates = append(candidates, t.Name)
		}
		rows = append(rows, row)
	}

	if latest, ok := version.Latest(prefix, candidates); ok {
		for i := range rows {
			if rows[i].Version != nil && !rows[i].InWindow && rows[i].Version.Compare(latest) == 0 {
				rows[i].Latest = true
				break
			}
		}
	}

	slices.SortStableFunc(rows, func(a, b tagRow) int {
		switch {
		case a.Version == nil && b.Version == nil:
			return 0
		case a.Version == nil:
			return 1
		case b.Version == nil:
			return -1
		}
		return b.Version.Compare(*a.Version)
	})
	return rows, nil
}

func (r tagRow) note() string {
	switch {
	case r.Latest:
		return "latest"
	case r.InWindow:
		return "race window"
	case r.Unparsed:
		return "not a version"
	}
	return ""
}

func renderTagTable(w io.Writer, rows []tagRow) {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		ver := "-"
		if r.Version != nil {
			ver = fmt.Sprintf("%d.%d.%d", r.Version.Major(), r.Version.Minor(), r.Version.Patch())
		}
		sha := r.Tag.CommitSHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		data = append(data, []string{
			r.Tag.Name,
			ver,
			sha,
			r.Tag.CommitDate.UTC().Format(time.RFC3339),
			r.note(),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TAG", "VERSION", "COMMIT", "COMMITTED", "NOTE").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	fmt.Fprintln(w, t)
}
