// Package clean deletes known-safe profile paths. Every delete is bound to
// an explicit allow-list relative to a root and requires a backup snapshot.
package clean

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/backup"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/config"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
)

// ErrNoBackup is returned when a delete is attempted without a snapshot.
var ErrNoBackup = errors.New("refusing to clean without a backup")

// ─── Result ──────────────────────────────────────────────────────────────────

// Item is one removed (or, in dry-run, removable) path.
type Item struct {
	Path     string
	Rel      string
	Size     int64
	Category string
}

// Failure is a path that could not be removed or was rejected.
type Failure struct {
	Rel string
	Err error
}

// Result accumulates what a cleanup freed.
type Result struct {
	Removed  []Item
	Failures []Failure
	Freed    int64
	DryRun   bool
}

// Count returns the number of removed items.
func (r *Result) Count() int { return len(r.Removed) }

// Merge folds other into r.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Removed = append(r.Removed, other.Removed...)
	r.Failures = append(r.Failures, other.Failures...)
	r.Freed += other.Freed
}

// ─── Executor ────────────────────────────────────────────────────────────────

// Executor removes the entries of an allow-list below a root.
type Executor struct {
	root      string
	allow     []string
	protected []string
	category  string
	dryRun    bool
	log       *slog.Logger
}

// NewExecutor builds an Executor. protected paths are never removed even
// if an allow-list entry resolves to one of them.
func NewExecutor(root string, allow, protected []string, dryRun bool, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		root:      filepath.Clean(root),
		allow:     append([]string(nil), allow...),
		protected: protected,
		category:  "cache",
		dryRun:    dryRun,
		log:       log,
	}
}

// WithCategory labels the removed items and returns e.
func (e *Executor) WithCategory(category string) *Executor {
	e.category = category
	return e
}

// resolve maps an allow-list entry to an absolute path inside the root.
func (e *Executor) resolve(rel string) (string, error) {
	if err := config.CheckRelative(rel); err != nil {
		return "", err
	}
	p := filepath.Join(e.root, rel)
	if p == e.root || !core.Within(e.root, p) {
		return "", fmt.Errorf("%q escapes its root", rel)
	}
	return p, nil
}

// Run deletes every allow-list entry that exists. Missing entries are
// skipped silently; entries that fail are logged and skipped. snap must be
// the result of a successful backup.
func (e *Executor) Run(ctx context.Context, snap *backup.Snapshot) (*Result, error) {
	if snap == nil {
		return nil, ErrNoBackup
	}

	res := &Result{DryRun: e.dryRun}
	for _, rel := range e.allow {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		p, err := e.resolve(rel)
		if err != nil {
			e.log.Warn("rejected cleanup entry", "entry", rel, "error", err)
			res.Failures = append(res.Failures, Failure{Rel: rel, Err: err})
			continue
		}
		e.remove(p, rel, res)
	}
	return res, nil
}

func (e *Executor) remove(p, rel string, res *Result) {
	if err := core.CheckParents(e.root, p); err != nil {
		e.log.Warn("rejected cleanup entry", "entry", rel, "error", err)
		res.Failures = append(res.Failures, Failure{Rel: rel, Err: err})
		return
	}
	freed, err := core.SafeDelete(p, e.protected, e.dryRun)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return
	case err != nil:
		e.log.Warn("failed to clean", "path", p, "error", err)
		res.Failures = append(res.Failures, Failure{Rel: rel, Err: err})
		return
	}

	e.log.Debug("cleaned", "path", p, "bytes", freed, "dry_run", e.dryRun)
	res.Removed = append(res.Removed, Item{Path: p, Rel: rel, Size: freed, Category: e.category})
	res.Freed += freed
}

// ─── Pruner ──────────────────────────────────────────────────────────────────

// Pruner keeps the newest entries matching a glob below a root and removes
// the rest.
type Pruner struct {
	exec    *Executor
	pattern string
	keep    int
}

// NewPruner builds a Pruner. pattern must match names directly below root.
func NewPruner(root, pattern string, keep int, protected []string, dryRun bool, log *slog.Logger) *Pruner {
	return &Pruner{
		exec:    NewExecutor(root, nil, protected, dryRun, log).WithCategory("backup"),
		pattern: pattern,
		keep:    keep,
	}
}

// Candidates returns the matching entries, newest first by modification
// time, and how many of them are kept.
func (p *Pruner) Candidates() ([]string, int, error) {
	if _, err := filepath.Match(p.pattern, ""); err != nil {
		return nil, 0, fmt.Errorf("invalid pattern %q: %w", p.pattern, err)
	}
	entries, err := os.ReadDir(p.exec.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, err
	}

	type aged struct {
		name string
		mod  int64
	}
	var matched []aged
	for _, e := range entries {
		if ok, _ := filepath.Match(p.pattern, e.Name()); !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		matched = append(matched, aged{name: e.Name(), mod: info.ModTime().UnixNano()})
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].mod != matched[j].mod {
			return matched[i].mod > matched[j].mod
		}
		return matched[i].name < matched[j].name
	})

	names := make([]string, len(matched))
	for i, m := range matched {
		names[i] = m.name
	}
	kept := min(p.keep, len(names))
	return names, kept, nil
}

// Run removes all but the newest keep entries.
func (p *Pruner) Run(ctx context.Context, snap *backup.Snapshot) (*Result, int, error) {
	if snap == nil {
		return nil, 0, ErrNoBackup
	}
	names, kept, err := p.Candidates()
	if err != nil {
		return nil, 0, err
	}

	res := &Result{DryRun: p.exec.dryRun}
	for _, name := range names[kept:] {
		if err := ctx.Err(); err != nil {
			return res, kept, err
		}
		p.exec.remove(filepath.Join(p.exec.root, name), name, res)
	}
	return res, kept, nil
}
