package clean

import (
	"context"
	"log/slog"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/backup"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/config"
)

// Section is the outcome of one group of the profile cleaner.
type Section struct {
	Title  string
	Result *Result
	// Kept is the number of version backups retained; zero elsewhere.
	Kept int
}

// ProfileCleaner removes the bloat-prone files of the Defaults directory
// group by group: history, caches, icons, old version backups and session
// state.
type ProfileCleaner struct {
	root      string
	cfg       config.Cleaner
	protected []string
	dryRun    bool
	log       *slog.Logger
}

// NewProfileCleaner builds a ProfileCleaner for the Defaults directory root.
func NewProfileCleaner(root string, cfg config.Cleaner, protected []string, dryRun bool, log *slog.Logger) *ProfileCleaner {
	if log == nil {
		log = slog.Default()
	}
	return &ProfileCleaner{root: root, cfg: cfg, protected: protected, dryRun: dryRun, log: log}
}

// Run cleans every group in order. A failure inside a group is recorded in
// its Result; only a missing snapshot or cancellation stops the run.
func (c *ProfileCleaner) Run(ctx context.Context, snap *backup.Snapshot) ([]Section, error) {
	if snap == nil {
		return nil, ErrNoBackup
	}

	groups := []struct {
		title    string
		category string
		entries  []string
	}{
		{"History database", "history", c.cfg.HistoryFiles},
		{"Cache directories", "cache", c.cfg.CacheDirs},
		{"Website icons", "icons", c.cfg.IconFiles},
	}

	var sections []Section
	for _, g := range groups {
		res, err := NewExecutor(c.root, g.entries, c.protected, c.dryRun, c.log).
			WithCategory(g.category).
			Run(ctx, snap)
		sections = append(sections, Section{Title: g.title, Result: res})
		if err != nil {
			return sections, err
		}
	}

	res, kept, err := NewPruner(c.root, c.cfg.VersionBackups, c.cfg.KeepBackups, c.protected, c.dryRun, c.log).Run(ctx, snap)
	if err != nil && ctx.Err() != nil {
		return sections, err
	}
	if err != nil {
		c.log.Warn("failed to prune version backups", "error", err)
		res = &Result{DryRun: c.dryRun, Failures: []Failure{{Rel: c.cfg.VersionBackups, Err: err}}}
	}
	sections = append(sections, Section{Title: "Version backups", Result: res, Kept: kept})

	res, err = NewExecutor(c.root, c.cfg.SessionFiles, c.protected, c.dryRun, c.log).
		WithCategory("session").
		Run(ctx, snap)
	sections = append(sections, Section{Title: "Session state", Result: res})
	return sections, err
}

// Total merges the results of all sections.
func Total(sections []Section) *Result {
	total := &Result{}
	for _, s := range sections {
		if s.Result != nil {
			total.DryRun = s.Result.DryRun
		}
		total.Merge(s.Result)
	}
	return total
}
