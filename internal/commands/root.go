package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/subscan/internal/buildinfo"
	"github.com/cleared-dev/subscan/internal/logger"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "subscan",
		Short:   "Find recurring charges in bank exports",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New(a.debug)
			cmd.SetContext(logger.WithContext(cmd.Context(), log))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.repo, "repo", ".", "workspace directory")
	flags.StringVar(&a.user, "user", "", "user id (default: user.default from subscan.yaml)")
	flags.StringVar(&a.envFile, "env-file", "", "load environment overrides from this file instead of <repo>/.env")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newInitCommand(a),
		newImportCommand(a),
		newCandidatesCommand(a),
		newSubscriptionsCommand(a),
		newDashboardCommand(a),
		newSnapshotCommand(a),
		newLogCommand(a),
	)

	return rootCmd
}
