package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/diagnose"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/prefs"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/workflow"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Diagnose and speed up the browser",
	Long: `Closes Orion, scores the profile's caches, history and host resources,
and with your consent cleans caches and applies performance settings.
Critical data is backed up first and verified afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, sys := newEnv(cmd)
		codec := prefs.New(cfg.Preferences.Converter)
		diag := diagnose.New(cfg, layout, codec, sys, logger)
		_, err := workflow.NewSpeedOptimizer(env, diag, codec).Run(cmd.Context())
		return err
	},
}

func init() {
	optimizeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview cleanup and settings changes without writing")
}
