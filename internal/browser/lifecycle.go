package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/config"
)

// ErrStillRunning is returned when the browser survives every shutdown step.
var ErrStillRunning = errors.New("browser is still running")

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Startup is the outcome of a relaunch probe.
type Startup struct {
	Running bool
	Elapsed time.Duration
}

// Lifecycle sequences shutdown and startup of the browser with the
// configured waits.
type Lifecycle struct {
	ctl             Controller
	gracePeriod     time.Duration
	killWait        time.Duration
	cleanerKillWait time.Duration
	startupWait     time.Duration
	log             *slog.Logger
	sleep           SleepFunc
	now             func() time.Time
}

// NewLifecycle wires a Controller to the configured timings.
func NewLifecycle(ctl Controller, cfg config.Browser, log *slog.Logger) *Lifecycle {
	if log == nil {
		log = slog.Default()
	}
	return &Lifecycle{
		ctl:             ctl,
		gracePeriod:     cfg.GracePeriod.Std(),
		killWait:        cfg.KillWait.Std(),
		cleanerKillWait: cfg.CleanerKillWait.Std(),
		startupWait:     cfg.StartupWait.Std(),
		log:             log,
		sleep:           Sleep,
		now:             time.Now,
	}
}

// WithSleep replaces the wait implementation and returns l.
func (l *Lifecycle) WithSleep(fn SleepFunc) *Lifecycle {
	l.sleep = fn
	return l
}

// Running returns the first matching process, if any.
func (l *Lifecycle) Running(ctx context.Context) (Process, bool, error) {
	procs, err := l.ctl.Find(ctx)
	if err != nil {
		return Process{}, false, err
	}
	if len(procs) == 0 {
		return Process{}, false, nil
	}
	return procs[0], true, nil
}

// Close asks the browser to quit, waits the grace period, kills whatever
// is left and waits again. It returns ErrStillRunning if processes remain.
func (l *Lifecycle) Close(ctx context.Context) error {
	if err := l.ctl.Quit(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Warn("graceful quit failed, escalating", "error", err)
	}
	if err := l.sleep(ctx, l.gracePeriod); err != nil {
		return err
	}

	procs, err := l.ctl.Find(ctx)
	if err != nil {
		return err
	}
	if len(procs) == 0 {
		return nil
	}

	for _, p := range procs {
		l.log.Info("force closing", "pid", p.PID, "name", p.Name)
		if err := l.ctl.Kill(ctx, p.PID); err != nil {
			l.log.Warn("kill failed", "pid", p.PID, "error", err)
		}
	}
	if err := l.sleep(ctx, l.killWait); err != nil {
		return err
	}

	procs, err = l.ctl.Find(ctx)
	if err != nil {
		return err
	}
	if len(procs) > 0 {
		return fmt.Errorf("%w: %d process(es), first PID %d", ErrStillRunning, len(procs), procs[0].PID)
	}
	return nil
}

// ForceKill kills every browser process without asking first and, if any
// were found, waits for them to die. It returns the processes it signalled.
func (l *Lifecycle) ForceKill(ctx context.Context) ([]Process, error) {
	procs, err := l.ctl.Find(ctx)
	if err != nil {
		return nil, err
	}

	var killed []Process
	for _, p := range procs {
		if err := l.ctl.Kill(ctx, p.PID); err != nil {
			l.log.Warn("kill failed", "pid", p.PID, "error", err)
			continue
		}
		killed = append(killed, p)
	}
	if len(killed) > 0 {
		if err := l.sleep(ctx, l.cleanerKillWait); err != nil {
			return killed, err
		}
	}
	return killed, nil
}

// Launch starts the browser without probing it.
func (l *Lifecycle) Launch(ctx context.Context) error {
	return l.ctl.Launch(ctx)
}

// Relaunch starts the browser, waits the startup window and reports
// whether it came up.
func (l *Lifecycle) Relaunch(ctx context.Context) (Startup, error) {
	start := l.now()
	if err := l.ctl.Launch(ctx); err != nil {
		return Startup{}, fmt.Errorf("failed to launch browser: %w", err)
	}
	if err := l.sleep(ctx, l.startupWait); err != nil {
		return Startup{}, err
	}
	_, running, err := l.Running(ctx)
	if err != nil {
		return Startup{}, err
	}
	return Startup{Running: running, Elapsed: l.now().Sub(start)}, nil
}
