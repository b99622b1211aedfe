package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/tagbump/internal/config"
	"github.com/alanmeadows/tagbump/internal/output"
	"github.com/alanmeadows/tagbump/internal/provider"
	"github.com/alanmeadows/tagbump/internal/resolver"
)

var (
	nextPrefix string
	nextFlags  repoFlags
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Compute and emit the next version of a workload",
	Long: `Resolve the pull request, validate its bump label, find the workload's
latest tag and emit newVersion=<prefix>vX.Y.Z.

The line is appended to $GITHUB_OUTPUT when set, otherwise printed to
stdout. Tags committed within the race window of the pull request's
close time are ignored so a re-run does not bump twice.`,
	Example: `  tagbump next --prefix svc-
  tagbump next --prefix svc- --pr 42
  tagbump next --prefix "" --repo acme/platform --token $TOKEN`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		nextFlags.apply(cfg)

		backend, err := openBackend(cfg)
		if err != nil {
			return err
		}
		return runNext(cmd.Context(), cfg, backend, nextPrefix, nextFlags.pr, cmd.OutOrStdout())
	},
}

func init() {
	nextCmd.Flags().StringVar(&nextPrefix, "prefix", "", "Tag prefix identifying the workload (required, may be empty)")
	nextCmd.Flags().StringVar(&nextFlags.repo, "repo", "", "Repository as owner/repo (default from GITHUB_REPOSITORY or origin)")
	nextCmd.Flags().StringVar(&nextFlags.token, "token", "", "API token (default from TAGBUMP_TOKEN or GITHUB_TOKEN)")
	nextCmd.Flags().IntVar(&nextFlags.pr, "pr", 0, "Pull request number (default from the merge ref or merge commit)")
	_ = nextCmd.MarkFlagRequired("prefix")
}

// runNext resolves the next version and emits it. Nothing is written unless
// the whole resolution succeeds.
func runNext(ctx context.Context, cfg *config.Config, backend provider.Backend, prefix string, pr int, stdout io.Writer) error {
	res, err := resolver.New(backend, resolver.Options{
		Prefix:     prefix,
		PRNumber:   pr,
		MergeRef:   cfg.CI.MergeRef,
		CommitSHA:  cfg.CI.CommitSHA,
		RaceWindow: cfg.Tags.ParseRaceWindow(),
	}).Resolve(ctx)
	if err != nil {
		return err
	}

	em := &output.Emitter{Path: cfg.CI.OutputPath, Stdout: stdout}
	return em.Emit(output.Key, res.NewVersion.String())
}
