package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/browser"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/config"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/ui"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/workflow"
)

var (
	// Global flags
	debug      bool
	dryRun     bool
	configPath string

	// Version info populated from main
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"

	// Loaded once per invocation by PersistentPreRunE.
	cfg    *config.Config
	layout config.Layout
	logger *slog.Logger
)

// SetVersionInfo sets build-time version information.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "oriondoctor",
	Short: "Diagnose and speed up the Orion browser",
	Long: `oriondoctor - Diagnose and speed up the Orion browser.

Finds oversized caches, history and backups in the Orion profile,
explains their impact, and cleans them after backing up bookmarks,
passwords and the reading list.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command. ctx is cancelled on interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Show detailed operation logs")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (.yaml or .toml); defaults to ~/.config/oriondoctor/config.yaml")

	// Register all subcommands
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup builds the logger and loads the configuration for every command.
func setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	resolved, err := loaded.Resolve()
	if err != nil {
		return err
	}
	cfg, layout = loaded, resolved
	logger.Debug("configuration loaded", "profile", layout.Profile, "backups", layout.BackupParent)

	if !core.IsSupportedOS() {
		logger.Warn("the browser tools target macOS; process control will not find the browser", "os", core.OSVersion())
	}
	return nil
}

// newEnv wires the shared workflow environment to the real system.
func newEnv(cmd *cobra.Command) (workflow.Env, *browser.System) {
	sys := browser.NewSystem(cfg.Browser)
	out := cmd.OutOrStdout()
	return workflow.Env{
		Config:    cfg,
		Layout:    layout,
		Lifecycle: browser.NewLifecycle(sys, cfg.Browser, logger),
		Prompt:    ui.NewPrompter(os.Stdin, out),
		Runner:    ui.NewRunner(out),
		Out:       out,
		DryRun:    dryRun,
		Log:       logger,
	}, sys
}

func printVersion(cmd *cobra.Command) {
	fmt.Fprintf(cmd.OutOrStdout(), "oriondoctor %s (%s) built %s\n", appVersion, appCommit, appDate)
}
