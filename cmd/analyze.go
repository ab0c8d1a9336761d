package cmd

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/analyze"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/impact"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/ui"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Explore profile disk usage",
	Long: `Read-only disk usage tree of the browser profile (or any path).
Known cache directories are annotated with their impact tier.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().Int("depth", 2, "Maximum directory depth to display (0 for unlimited)")
	analyzeCmd.Flags().String("min-size", "", "Minimum size to display (e.g., 100MB)")
	analyzeCmd.Flags().StringSlice("exclude", nil, "Directories to exclude from scan")
	analyzeCmd.Flags().Int("stale", 0, "Mark entries untouched for this many days (0 to disable)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	root := layout.Profile
	if len(args) == 1 {
		root = args[0]
	}

	depth, _ := cmd.Flags().GetInt("depth")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	opts := analyze.TreeOptions{MaxDepth: depth}
	if s, _ := cmd.Flags().GetString("min-size"); s != "" {
		n, err := humanize.ParseBytes(s)
		if err != nil {
			return fmt.Errorf("invalid --min-size %q: %w", s, err)
		}
		opts.MinSize = int64(n)
	}

	staleDays, _ := cmd.Flags().GetInt("stale")
	staleAge := time.Duration(staleDays) * 24 * time.Hour

	classifier := impact.NewClassifier(cfg.Impact)
	opts.Annotate = func(e *analyze.DirEntry) string {
		var notes []string
		if e.IsDir {
			if _, known := classifier.Thresholds(e.Name); known {
				c := classifier.Classify(e.Name, core.MB(e.Size))
				notes = append(notes, c.Tier.String()+": "+c.Impact)
			}
		}
		if staleDays > 0 && !e.ModTime.IsZero() && e.IsStale(staleAge) {
			notes = append(notes, fmt.Sprintf("untouched %dd+", staleDays))
		}
		return strings.Join(notes, "; ")
	}

	scanner := analyze.NewScanner(runtime.NumCPU()*2, exclude)
	tree, err := scanner.Scan(cmd.Context(), root)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", root, err)
	}

	out := cmd.OutOrStdout()
	analyze.PrintTree(out, tree, opts)
	if w := scanner.Warnings(); len(w) > 0 {
		p := ui.NewPrinter(out)
		p.Warn("%d entries could not be read", len(w))
		for _, msg := range w {
			logger.Debug("scan warning", "detail", msg)
		}
	}
	return nil
}
