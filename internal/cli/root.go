package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/tagbump/internal/config"
	"github.com/alanmeadows/tagbump/internal/logging"
)

var (
	verbose   bool
	appConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:   "tagbump",
		Short: "Compute the next semantic version tag of a monorepo workload",
		Long: `tagbump reads the bump label (patch, minor or major) of a pull request,
finds the latest tag of one workload and prints the next version as
newVersion=<prefix>vX.Y.Z for later pipeline steps.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbose)

		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		cfg, err := config.Load(wd)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		appConfig = cfg
		return nil
	}

	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the root command; ctx is cancelled on interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
