package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/backup"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/clean"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/diagnose"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/optimize"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/prefs"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/ui"
)

// ─── States ──────────────────────────────────────────────────────────────────

// State is a step of the speed optimizer.
type State int

const (
	Idle State = iota
	CheckRunning
	ConfirmClose
	Closed
	Diagnose
	MaybeRestart
	ConfirmCleanup
	Backup
	Clean
	OptimizeSettings
	Verify
	Summarize
	Aborted
)

var stateNames = [...]string{
	Idle:             "Idle",
	CheckRunning:     "CheckRunning",
	ConfirmClose:     "ConfirmClose",
	Closed:           "Closed",
	Diagnose:         "Diagnose",
	MaybeRestart:     "MaybeRestart",
	ConfirmCleanup:   "ConfirmCleanup",
	Backup:           "Backup",
	Clean:            "Clean",
	OptimizeSettings: "OptimizeSettings",
	Verify:           "Verify",
	Summarize:        "Summarize",
	Aborted:          "Aborted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether the run ends after this state's step.
func (s State) Terminal() bool {
	return s == MaybeRestart || s == Summarize || s == Aborted
}

// ─── Outcome ─────────────────────────────────────────────────────────────────

// Outcome is everything a speed optimizer run produced.
type Outcome struct {
	// Path lists the states in the order they were entered.
	Path  []State
	Final State
	// Reason says why the run was aborted.
	Reason       string
	Report       *diagnose.Report
	Snapshot     *backup.Snapshot
	Cleaned      *clean.Result
	Settings     *optimize.Result
	Verification *backup.Verification
	Restarted    bool
}

// ─── Speed optimizer ─────────────────────────────────────────────────────────

type handler func(ctx context.Context) (State, error)

// SpeedOptimizer closes the browser, diagnoses the profile and, with the
// operator's consent, backs up, cleans, tunes settings and verifies.
type SpeedOptimizer struct {
	env      Env
	diag     *diagnose.Diagnoser
	guard    *backup.Guard
	codec    prefs.Codec
	out      *ui.Printer
	handlers map[State]handler

	pid     int32
	outcome *Outcome
}

// NewSpeedOptimizer wires the optimizer. The backup guard protects the
// configured critical items of the profile directory.
func NewSpeedOptimizer(env Env, diag *diagnose.Diagnoser, codec prefs.Codec) *SpeedOptimizer {
	env.Log = env.logger()
	o := &SpeedOptimizer{
		env:   env,
		diag:  diag,
		guard: backup.NewGuard(env.Layout.Profile, env.Layout.BackupParent, env.Config.Backup, env.Log),
		codec: codec,
		out:   ui.NewPrinter(env.Out),
	}
	o.handlers = map[State]handler{
		Idle:             o.idle,
		CheckRunning:     o.checkRunning,
		ConfirmClose:     o.confirmClose,
		Closed:           o.closed,
		Diagnose:         o.diagnose,
		MaybeRestart:     o.maybeRestart,
		ConfirmCleanup:   o.confirmCleanup,
		Backup:           o.backup,
		Clean:            o.clean,
		OptimizeSettings: o.optimizeSettings,
		Verify:           o.verify,
		Summarize:        o.summarize,
		Aborted:          o.aborted,
	}
	return o
}

// WithGuard replaces the backup guard and returns o.
func (o *SpeedOptimizer) WithGuard(g *backup.Guard) *SpeedOptimizer {
	o.guard = g
	return o
}

// Run drives the state machine from Idle to a terminal state. The context
// is checked before every step; cancellation returns core.ErrInterrupted
// together with the partial outcome.
func (o *SpeedOptimizer) Run(ctx context.Context) (*Outcome, error) {
	o.outcome = &Outcome{}
	state := Idle
	for {
		if err := ctx.Err(); err != nil {
			o.outcome.Final = state
			return o.outcome, fmt.Errorf("%w: %w", core.ErrInterrupted, err)
		}
		h, ok := o.handlers[state]
		if !ok {
			return o.outcome, fmt.Errorf("no handler for state %s", state)
		}

		o.outcome.Path = append(o.outcome.Path, state)
		o.env.Log.Debug("entering state", "state", state)
		next, err := h(ctx)
		if err != nil {
			o.outcome.Final = state
			return o.outcome, interrupted(ctx, err)
		}
		if state.Terminal() {
			o.outcome.Final = state
			return o.outcome, nil
		}
		state = next
	}
}

func (o *SpeedOptimizer) abort(reason string) (State, error) {
	o.outcome.Reason = reason
	return Aborted, nil
}

// ─── Handlers ────────────────────────────────────────────────────────────────

func (o *SpeedOptimizer) idle(context.Context) (State, error) {
	o.out.Title(o.env.appName() + " Browser Speed Optimizer")
	if o.env.DryRun {
		o.out.Info("Dry run: nothing will be deleted or written")
	}
	return CheckRunning, nil
}

func (o *SpeedOptimizer) checkRunning(ctx context.Context) (State, error) {
	proc, running, err := o.env.Lifecycle.Running(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Aborted, err
		}
		o.env.Log.Error("process check failed", "error", err)
		return o.abort(fmt.Sprintf("Cannot determine whether %s is running: %v", o.env.appName(), err))
	}
	if !running {
		return Diagnose, nil
	}
	o.pid = proc.PID
	return ConfirmClose, nil
}

func (o *SpeedOptimizer) confirmClose(ctx context.Context) (State, error) {
	app := o.env.appName()
	o.out.Warn("%s is currently running (PID: %d)", app, o.pid)
	ok, err := o.env.Prompt.Confirm(fmt.Sprintf("Close %s to continue?", app), false)
	if err != nil {
		return Aborted, err
	}
	if !ok {
		return o.abort(fmt.Sprintf("Cannot optimize while %s is running", app))
	}

	if err := o.env.Runner.Run(ctx, "Closing "+app, o.env.Lifecycle.Close); err != nil {
		if ctx.Err() != nil || errors.Is(err, core.ErrInterrupted) {
			return Aborted, err
		}
		o.env.Log.Error("close failed", "error", err)
		return o.abort(fmt.Sprintf("Failed to close %s (%v). Please close it manually and rerun", app, err))
	}
	return Closed, nil
}

func (o *SpeedOptimizer) closed(context.Context) (State, error) {
	o.out.Success("%s closed successfully", o.env.appName())
	return Diagnose, nil
}

func (o *SpeedOptimizer) diagnose(ctx context.Context) (State, error) {
	var report *diagnose.Report
	err := o.env.Runner.Run(ctx, "Diagnosing performance", func(ctx context.Context) error {
		r, err := o.diag.Run(ctx)
		report = r
		return err
	})
	if errors.Is(err, diagnose.ErrProfileMissing) {
		return o.abort(fmt.Sprintf("%s data directory not found: %s", o.env.appName(), o.env.Layout.Profile))
	}
	if err != nil {
		return Aborted, err
	}

	o.outcome.Report = report
	diagnose.Render(o.env.Out, report)
	if report.HasIssues() {
		return ConfirmCleanup, nil
	}
	return MaybeRestart, nil
}

func (o *SpeedOptimizer) maybeRestart(ctx context.Context) (State, error) {
	app := o.env.appName()
	o.out.Blank()
	o.out.Success("Your %s browser appears to be running optimally!", app)
	return MaybeRestart, o.offerRestart(ctx, fmt.Sprintf("Restart %s?", app))
}

func (o *SpeedOptimizer) confirmCleanup(context.Context) (State, error) {
	o.out.Section("Cleanup")
	o.out.Success("Your bookmarks and passwords will be preserved")
	o.out.Info("Cache, temporary files, and browsing data will be cleared")
	ok, err := o.env.Prompt.Confirm("Proceed with cleanup?", false)
	if err != nil {
		return Aborted, err
	}
	if !ok {
		return o.abort("Cleanup cancelled")
	}
	return Backup, nil
}

func (o *SpeedOptimizer) backup(ctx context.Context) (State, error) {
	var snap *backup.Snapshot
	err := o.env.Runner.Run(ctx, "Backing up critical data", func(ctx context.Context) error {
		s, err := o.guard.Snapshot(ctx)
		snap = s
		return err
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, core.ErrInterrupted) {
			return Aborted, err
		}
		o.env.Log.Error("backup failed", "error", err)
		return o.abort("Backup failed. Aborting cleanup for safety")
	}

	o.outcome.Snapshot = snap
	o.out.Info("Backup created at: %s", snap.Dir)
	for _, name := range snap.Copied {
		o.out.Success("Backed up: %s", name)
	}
	for _, f := range snap.Failed {
		o.out.Warn("Failed to back up %s: %v", f.Name, f.Err)
	}
	o.out.Line("Backup complete: %d items backed up", len(snap.Copied))
	return Clean, nil
}

func (o *SpeedOptimizer) clean(ctx context.Context) (State, error) {
	cfg := o.env.Config
	res, err := clean.NewExecutor(o.env.Layout.Profile, cfg.Cleanup.AllowList, cfg.NeverDelete(o.env.Layout), o.env.DryRun, o.env.Log).
		WithCategory("cache").
		Run(ctx, o.outcome.Snapshot)
	o.outcome.Cleaned = res
	if err != nil {
		return Aborted, err
	}

	o.out.Section("Cleaning caches and temporary data")
	printResult(o.out, res)
	o.out.Success("Cleanup complete: %d items, %s freed", res.Count(), core.FormatMB(res.Freed))
	return OptimizeSettings, nil
}

func (o *SpeedOptimizer) optimizeSettings(ctx context.Context) (State, error) {
	cfg := o.env.Config
	o.out.Section("Optimizing " + o.env.appName() + " settings")
	res, err := optimize.New(cfg.Settings, o.env.Layout.Preferences, cfg.Backup.PreferencesCopy,
		o.codec, o.env.Prompt, o.env.Out, o.env.DryRun, o.env.Log).
		Run(ctx, o.outcome.Snapshot)
	o.outcome.Settings = res
	if errors.Is(err, optimize.ErrUnreadable) {
		o.out.Warn("Preferences file cannot be read; settings left untouched")
		return Verify, nil
	}
	if err != nil {
		return Aborted, err
	}
	return Verify, nil
}

func (o *SpeedOptimizer) verify(ctx context.Context) (State, error) {
	o.out.Section("Verifying data integrity")
	v, err := o.guard.Verify(ctx, o.outcome.Snapshot, o.env.Config.Backup.Verify)
	if err != nil {
		return Aborted, err
	}
	o.outcome.Verification = &v

	for _, name := range v.Intact {
		o.out.Success("%s intact", name)
	}
	for _, name := range v.Restored {
		o.out.Success("%s restored from backup", name)
	}
	for _, f := range v.Failed {
		o.out.Error("Failed to restore %s: %v", f.Name, f.Err)
	}
	if v.OK() {
		o.out.Success("Data verification passed")
	} else {
		o.out.Warn("Some data may need manual restoration from backup")
	}
	return Summarize, nil
}

func (o *SpeedOptimizer) summarize(ctx context.Context) (State, error) {
	app := o.env.appName()
	o.out.Section("Optimization complete")
	var freed int64
	if o.outcome.Cleaned != nil {
		freed = o.outcome.Cleaned.Freed
	}
	o.out.Line("Space freed: %s", core.FormatMB(freed))
	if o.outcome.Snapshot != nil {
		o.out.Line("Backup location: %s", o.outcome.Snapshot.Dir)
	}
	o.out.Line("Bookmarks and passwords preserved")
	o.out.Blank()

	if err := o.offerRestart(ctx, fmt.Sprintf("Restart %s browser?", app)); err != nil {
		return Summarize, err
	}
	o.out.Blank()
	o.out.Success("%s should now run faster!", app)
	o.out.Info("Tip: run this monthly for best performance")
	return Summarize, nil
}

func (o *SpeedOptimizer) aborted(context.Context) (State, error) {
	o.out.Error("%s", o.outcome.Reason)
	return Aborted, nil
}

// offerRestart asks (default Yes) and launches the browser. A failed
// launch is reported, not returned.
func (o *SpeedOptimizer) offerRestart(ctx context.Context, question string) error {
	ok, err := o.env.Prompt.Confirm(question, true)
	if err != nil || !ok {
		return err
	}
	app := o.env.appName()
	o.out.Info("Starting %s...", app)
	if err := o.env.Lifecycle.Launch(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		o.env.Log.Warn("launch failed", "error", err)
		o.out.Warn("Could not start %s: %v", app, err)
		return nil
	}
	o.outcome.Restarted = true
	return nil
}
