package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/workflow"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Emergency fix for a hanging browser",
	Long: `Force quits Orion, backs up bookmarks, website settings and the reading
list, then deletes the history database, icon caches, old version backups
and session state from the profile's Defaults directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, _ := newEnv(cmd)
		_, err := workflow.NewCleaner(env).Run(cmd.Context())
		return err
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview the cleanup plan without killing or deleting")
}
