// Package optimize walks the settings catalog, offers each change that
// differs from the stored preference and writes the accepted ones back.
package optimize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/backup"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/config"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/prefs"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/ui"
)

// ErrUnreadable is returned when an existing preference file cannot be
// decoded. Nothing is offered or written in that case.
var ErrUnreadable = errors.New("preference file cannot be read")

// Outcome is what happened to one catalog entry.
type Outcome int

const (
	AlreadySet Outcome = iota
	Applied
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case AlreadySet:
		return "already set"
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Decision records the outcome for one setting.
type Decision struct {
	Setting config.Setting
	Current any
	Outcome Outcome
}

// Result summarises a pass over the catalog.
type Result struct {
	Decisions []Decision
	Changed   int
	// Backup is the copy of the preference file taken before the first
	// accepted change; empty when none was taken.
	Backup    string
	BackupErr error
	Written   bool
	WriteErr  error
	DryRun    bool
	// Values is the preference mapping with every accepted change applied.
	// It reflects the decisions even when writing failed.
	Values map[string]any
}

// AdditionalRecommendations are general tips shown after the catalog.
var AdditionalRecommendations = []string{
	"Restart your Mac occasionally to clear system caches",
	"Keep macOS updated for optimal browser performance",
	"Consider using fewer browser extensions",
	"Close unused tabs to free up memory",
}

// Optimizer applies the settings catalog to one preference file.
type Optimizer struct {
	catalog    []config.Setting
	path       string
	backupName string
	codec      prefs.Codec
	prompt     ui.Prompter
	out        *ui.Printer
	dryRun     bool
	log        *slog.Logger
}

// New returns an Optimizer for the preference file at path. The first
// accepted change copies that file into the snapshot as backupName.
func New(catalog []config.Setting, path, backupName string, codec prefs.Codec, prompt ui.Prompter, out io.Writer, dryRun bool, log *slog.Logger) *Optimizer {
	if log == nil {
		log = slog.Default()
	}
	return &Optimizer{
		catalog:    catalog,
		path:       path,
		backupName: backupName,
		codec:      codec,
		prompt:     prompt,
		out:        ui.NewPrinter(out),
		dryRun:     dryRun,
		log:        log,
	}
}

func safetyColor(level string) string {
	switch strings.ToLower(level) {
	case "high":
		return ui.Colored(ui.ColorSuccess, level)
	case "medium":
		return ui.Colored(ui.ColorWarning, level)
	default:
		return ui.Colored(ui.ColorCaution, level)
	}
}

// Run compares every catalog entry with the stored value and asks before
// changing it. Declining is the default. A write failure is reported in
// the result, not returned; only an interrupted prompt or an unreadable
// preference file is an error.
func (o *Optimizer) Run(ctx context.Context, snap *backup.Snapshot) (*Result, error) {
	res := &Result{DryRun: o.dryRun}

	current, exists, err := o.load(ctx)
	if err != nil {
		return res, err
	}
	if !exists {
		o.out.Info("No preferences file found, will create new one")
	}
	res.Values = current

	backedUp := false
	for _, s := range o.catalog {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		value, set := current[s.Key]
		o.out.Blank()
		o.out.Line("%s", ui.Bold(ui.ColorSecondary, s.Name))
		o.out.Line("Description: %s", s.Description)
		o.out.Line("Benefit: %s", s.Benefit)
		o.out.Line("Current value: %s", prefs.Format(value))
		o.out.Line("Recommended value: %s", prefs.Format(s.Value))
		o.out.Line("Safety level: %s", safetyColor(s.Safety))

		d := Decision{Setting: s, Current: value}
		if set && prefs.Equal(value, s.Value) {
			o.out.Success("Already optimally configured")
			res.Decisions = append(res.Decisions, d)
			continue
		}

		question := fmt.Sprintf("   Apply this %s-safety optimization?", strings.ToLower(s.Safety))
		ok, err := o.prompt.Confirm(question, false)
		if err != nil {
			return res, err
		}
		if !ok {
			d.Outcome = Skipped
			res.Decisions = append(res.Decisions, d)
			o.out.Info("Skipped: %s", s.Name)
			continue
		}

		if !backedUp {
			backedUp = true
			o.preserve(snap, exists, res)
		}
		current[s.Key] = s.Value
		d.Outcome = Applied
		res.Changed++
		res.Decisions = append(res.Decisions, d)
		o.out.Success("Applied: %s", s.Name)
	}

	o.out.Blank()
	switch {
	case res.Changed == 0:
		o.out.Info("No changes were made to settings")
	case o.dryRun:
		o.out.Info("Dry run: %d optimizations not written", res.Changed)
	default:
		if err := o.codec.Write(ctx, o.path, current); err != nil {
			res.WriteErr = err
			o.log.Error("failed to save preferences", "path", o.path, "error", err)
			o.out.Error("Failed to save preferences file: %v", err)
			break
		}
		res.Written = true
		o.out.Success("Successfully applied %d optimizations", res.Changed)
		o.out.Line("Settings will take effect when the browser is restarted")
	}

	o.out.Section("Additional recommendations")
	for _, tip := range AdditionalRecommendations {
		o.out.Info("%s", tip)
	}
	return res, nil
}

// load reads the preference file. A missing file is an empty mapping.
func (o *Optimizer) load(ctx context.Context) (map[string]any, bool, error) {
	values, err := o.codec.Read(ctx, o.path)
	if err == nil {
		if values == nil {
			values = map[string]any{}
		}
		return values, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, false, nil
	}
	o.log.Error("failed to read preferences", "path", o.path, "error", err)
	return nil, true, fmt.Errorf("%w: %w", ErrUnreadable, err)
}

// preserve copies the preference file into the snapshot. Failure is only a
// warning; the changes still go ahead.
func (o *Optimizer) preserve(snap *backup.Snapshot, exists bool, res *Result) {
	if !exists {
		return
	}
	if snap == nil {
		res.BackupErr = errors.New("no backup directory")
		o.out.Warn("Could not back up preferences: no backup directory")
		return
	}
	dst, err := snap.Preserve(o.path, o.backupName)
	if err != nil {
		res.BackupErr = err
		o.log.Warn("preferences backup failed", "error", err)
		o.out.Warn("Could not back up preferences: %v", err)
		return
	}
	res.Backup = dst
	o.out.Info("Preferences backed up to: %s", dst)
}
