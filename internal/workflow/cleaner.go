package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/backup"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/browser"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/clean"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/config"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/ui"
)

// ErrDefaultsMissing is returned when the Defaults directory the cleaner
// works on does not exist.
var ErrDefaultsMissing = errors.New("profile not found")

// CleanReport is what a profile cleaner run did.
type CleanReport struct {
	Killed   []browser.Process
	Snapshot *backup.Snapshot
	Sections []clean.Section
	Total    *clean.Result
	Startup  *browser.Startup
	Sync     clean.SyncReport
}

// Cleaner is the emergency fix for a browser that hangs on startup: it
// kills the browser without asking, saves the bookmark files and prunes
// the Defaults directory.
type Cleaner struct {
	env   Env
	guard *backup.Guard
	out   *ui.Printer
}

// NewCleaner wires a Cleaner. Its guard copies the cleaner's critical
// files and does not insist on finding any.
func NewCleaner(env Env) *Cleaner {
	env.Log = env.logger()
	c := env.Config.Cleaner
	guard := backup.NewGuard(env.Layout.Defaults, env.Layout.BackupParent, config.Backup{
		Prefix:   c.BackupPrefix,
		Stamp:    c.BackupStamp,
		Critical: c.Critical,
	}, env.Log)
	return &Cleaner{env: env, guard: guard, out: ui.NewPrinter(env.Out)}
}

// WithGuard replaces the backup guard and returns c.
func (c *Cleaner) WithGuard(g *backup.Guard) *Cleaner {
	c.guard = g
	return c
}

// Run kills, backs up, cleans, offers a relaunch and prints the sync
// analysis with mobile guidance.
func (c *Cleaner) Run(ctx context.Context) (*CleanReport, error) {
	app := c.env.appName()
	rep := &CleanReport{}

	c.out.Title(app + " Spinning Wheel Emergency Fix")
	c.out.Line("This will clean your %s profile while preserving bookmarks", app)
	if c.env.DryRun {
		c.out.Info("Dry run: nothing will be killed or deleted")
	}

	if err := c.kill(ctx, rep); err != nil {
		return rep, interrupted(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return rep, fmt.Errorf("%w: %w", core.ErrInterrupted, err)
	}

	if err := c.clean(ctx, rep); err != nil {
		return rep, interrupted(ctx, err)
	}

	if err := c.relaunch(ctx, rep); err != nil {
		return rep, interrupted(ctx, err)
	}

	rep.Sync = clean.AnalyzeSync(c.env.Layout.Defaults, c.env.Config.Cleaner.SyncFiles)
	PrintSync(c.out, app, rep.Sync)
	PrintMobileGuidance(c.out, app)

	c.out.Section("Summary")
	c.out.Success("Desktop %s: profile cleaned, %s freed", app, core.FormatMB(rep.Total.Freed))
	c.out.Success("Sync data: analyzed what affects mobile performance")
	c.out.Info("Mobile %s: instructions provided for cleanup", app)
	return rep, nil
}

func (c *Cleaner) kill(ctx context.Context, rep *CleanReport) error {
	app := c.env.appName()
	c.out.Section("Force killing " + app)
	if c.env.DryRun {
		c.out.Info("Dry run: skipping kill")
		return nil
	}

	killed, err := c.env.Lifecycle.ForceKill(ctx)
	rep.Killed = killed
	for _, p := range killed {
		c.out.Line("   Killed PID %d (%s)", p.PID, p.Name)
	}
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		c.env.Log.Warn("process scan failed", "error", err)
		c.out.Warn("Could not list %s processes: %v", app, err)
		return nil
	}
	if len(killed) == 0 {
		c.out.Info("No %s processes found", app)
		return nil
	}
	c.out.Success("Killed %d %s processes", len(killed), app)
	return nil
}

func (c *Cleaner) clean(ctx context.Context, rep *CleanReport) error {
	root := c.env.Layout.Defaults
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s %w: %s", c.env.appName(), ErrDefaultsMissing, root)
		}
		return fmt.Errorf("cannot access %s: %w", root, err)
	}

	c.out.Section("Cleaning " + c.env.appName() + " profile data")
	snap, err := c.guard.Snapshot(ctx)
	if err != nil {
		return err
	}
	rep.Snapshot = snap
	c.out.Info("Emergency backup at: %s", snap.Dir)
	for _, name := range snap.Copied {
		c.out.Success("Backed up: %s", name)
	}
	for _, f := range snap.Failed {
		c.out.Warn("Failed to back up %s: %v", f.Name, f.Err)
	}
	c.out.Line("Backup complete: %d files saved", len(snap.Copied))

	cfg := c.env.Config
	sections, err := clean.NewProfileCleaner(root, cfg.Cleaner, cfg.NeverDelete(c.env.Layout), c.env.DryRun, c.env.Log).
		Run(ctx, snap)
	rep.Sections = sections
	rep.Total = clean.Total(sections)
	for _, s := range sections {
		c.out.Section(s.Title)
		printResult(c.out, s.Result)
		if s.Kept > 0 && s.Result != nil && s.Result.Count() > 0 {
			c.out.Success("Kept %d most recent backups", s.Kept)
		}
	}
	if err != nil {
		return err
	}

	c.out.Blank()
	c.out.Success("Cleanup complete")
	c.out.Line("Total space freed: %s", core.FormatMB(rep.Total.Freed))
	c.out.Line("Your bookmarks are safely backed up at: %s", snap.Dir)
	return nil
}

func (c *Cleaner) relaunch(ctx context.Context, rep *CleanReport) error {
	app := c.env.appName()
	ok, err := c.env.Prompt.Confirm(fmt.Sprintf("Start %s now to test startup?", app), true)
	if err != nil || !ok {
		return err
	}

	c.out.Section("Testing " + app + " startup")
	var st browser.Startup
	err = c.env.Runner.Run(ctx, "Starting "+app, func(ctx context.Context) error {
		s, err := c.env.Lifecycle.Relaunch(ctx)
		st = s
		return err
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, core.ErrInterrupted) {
			return err
		}
		c.env.Log.Warn("startup test failed", "error", err)
		c.out.Error("Error testing startup: %v", err)
		return nil
	}

	rep.Startup = &st
	if st.Running {
		c.out.Success("%s started successfully in %.1f seconds", app, st.Elapsed.Seconds())
	} else {
		c.out.Warn("%s may still be starting... check manually", app)
	}
	return nil
}
