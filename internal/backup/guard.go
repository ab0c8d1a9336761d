// Package backup copies critical profile items aside before anything is
// deleted and puts them back if they go missing.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/config"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
)

// ErrEmptyBackup is returned when a snapshot that must hold at least one
// item copied nothing.
var ErrEmptyBackup = errors.New("backup copied nothing")

// Failure records one item that could not be copied.
type Failure struct {
	Name string
	Err  error
}

// Snapshot is a completed backup directory.
type Snapshot struct {
	Dir    string
	Copied []string
	// Missing lists critical items that did not exist in the profile.
	Missing []string
	Failed  []Failure
}

// Path returns where name is stored inside the snapshot.
func (s *Snapshot) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// Preserve copies an extra file into the snapshot under name.
func (s *Snapshot) Preserve(src, name string) (string, error) {
	dst := s.Path(name)
	if err := core.CopyFile(src, dst); err != nil {
		return "", fmt.Errorf("failed to preserve %s: %w", src, err)
	}
	return dst, nil
}

// Guard takes snapshots of a fixed list of items below root.
type Guard struct {
	root       string
	parent     string
	prefix     string
	stamp      string
	items      []string
	requireAny bool
	now        func() time.Time
	log        *slog.Logger
}

// NewGuard builds a Guard that copies cfg.Critical from root into
// timestamped directories under parent.
func NewGuard(root, parent string, cfg config.Backup, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{
		root:       root,
		parent:     parent,
		prefix:     cfg.Prefix,
		stamp:      cfg.Stamp,
		items:      append([]string(nil), cfg.Critical...),
		requireAny: cfg.RequireAny,
		now:        time.Now,
		log:        log,
	}
}

// WithClock replaces the clock used for directory names and returns g.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// Items returns the critical item names the guard protects.
func (g *Guard) Items() []string {
	return append([]string(nil), g.items...)
}

// dirName renders "<prefix>_<stamp>"; the stamp "unix" means epoch seconds,
// anything else is a time layout.
func (g *Guard) dirName() string {
	t := g.now()
	var stamp string
	if g.stamp == "unix" {
		stamp = strconv.FormatInt(t.Unix(), 10)
	} else {
		stamp = t.Format(g.stamp)
	}
	return g.prefix + "_" + stamp
}

// Snapshot creates the backup directory and copies every critical item
// into it. Missing items are skipped and copy failures recorded; neither
// aborts the backup. It fails only if the directory cannot be created or,
// when the guard requires it, nothing at all was copied.
func (g *Guard) Snapshot(ctx context.Context) (*Snapshot, error) {
	dir := filepath.Join(g.parent, g.dirName())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory %s: %w", dir, err)
	}
	g.log.Debug("backup directory ready", "dir", dir)

	snap := &Snapshot{Dir: dir}
	for _, name := range g.items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src := filepath.Join(g.root, name)
		if _, err := os.Lstat(src); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				snap.Missing = append(snap.Missing, name)
				continue
			}
			snap.Failed = append(snap.Failed, Failure{Name: name, Err: err})
			g.log.Warn("backup failed", "item", name, "error", err)
			continue
		}

		if err := core.CopyTree(src, snap.Path(name)); err != nil {
			snap.Failed = append(snap.Failed, Failure{Name: name, Err: err})
			g.log.Warn("backup failed", "item", name, "error", err)
			continue
		}
		snap.Copied = append(snap.Copied, name)
		g.log.Debug("backed up", "item", name)
	}

	if g.requireAny && len(snap.Copied) == 0 {
		return nil, fmt.Errorf("%w into %s", ErrEmptyBackup, dir)
	}
	return snap, nil
}

// ─── Verify ──────────────────────────────────────────────────────────────────

// Verification reports the state of the critical items after cleanup.
type Verification struct {
	Intact   []string
	Restored []string
	// Absent items are missing from both the profile and the snapshot.
	Absent []string
	Failed []Failure
}

// OK reports whether every item is either intact, restored or was never
// there to begin with.
func (v Verification) OK() bool {
	return len(v.Failed) == 0
}

// Verify checks names in the profile. A missing item present in the
// snapshot is copied back byte for byte; a failed copy is reported, not
// retried.
func (g *Guard) Verify(ctx context.Context, snap *Snapshot, names []string) (Verification, error) {
	var v Verification
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return v, err
		}

		live := filepath.Join(g.root, name)
		if _, err := os.Lstat(live); err == nil {
			v.Intact = append(v.Intact, name)
			continue
		}

		if snap == nil {
			v.Absent = append(v.Absent, name)
			continue
		}
		saved := snap.Path(name)
		if _, err := os.Lstat(saved); err != nil {
			v.Absent = append(v.Absent, name)
			continue
		}

		g.log.Warn("critical item missing, restoring from backup", "item", name)
		if err := core.CopyTree(saved, live); err != nil {
			v.Failed = append(v.Failed, Failure{Name: name, Err: err})
			g.log.Error("restore failed", "item", name, "error", err)
			continue
		}
		v.Restored = append(v.Restored, name)
	}
	return v, nil
}
