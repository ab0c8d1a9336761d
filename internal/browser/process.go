// Package browser finds, stops, starts and inspects the browser's processes.
package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/config"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
)

// Process identifies one running browser process.
type Process struct {
	PID  int32
	Name string
}

// ProcessStat is a resource snapshot of one browser process.
type ProcessStat struct {
	PID    int32
	Name   string
	CPU    float64
	RSSMB  float64
	Uptime time.Duration
}

// Controller is the process-level control surface the workflows need.
type Controller interface {
	// Find lists running processes whose name matches the browser.
	Find(ctx context.Context) ([]Process, error)
	// Quit asks the application to exit on its own.
	Quit(ctx context.Context) error
	// Kill terminates one process immediately.
	Kill(ctx context.Context, pid int32) error
	// Launch starts the application without waiting for it.
	Launch(ctx context.Context) error
}

// Inspector samples resource usage of the browser's processes.
type Inspector interface {
	Stats(ctx context.Context) ([]ProcessStat, error)
}

// System implements Controller and Inspector with gopsutil and the macOS
// osascript/open commands.
type System struct {
	appName     string
	match       string
	quitTimeout time.Duration
	sample      time.Duration
	self        int32
	run         core.CommandFunc
}

// NewSystem builds a System from the browser configuration.
func NewSystem(cfg config.Browser) *System {
	return &System{
		appName:     cfg.AppName,
		match:       strings.ToLower(cfg.ProcessMatch),
		quitTimeout: cfg.QuitTimeout.Std(),
		sample:      cfg.CPUSample.Std(),
		self:        int32(os.Getpid()),
		run:         core.Command(cfg.QuitTimeout.Std()),
	}
}

// matches reports whether a process name belongs to the browser. This
// tool's own process is excluded since its name may contain the match.
func (s *System) matches(pid int32, name string) bool {
	if pid == s.self || s.match == "" {
		return false
	}
	return strings.Contains(strings.ToLower(name), s.match)
}

// Find implements Controller. Processes that vanish or deny access while
// being listed are skipped.
func (s *System) Find(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var found []Process
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if s.matches(p.Pid, name) {
			found = append(found, Process{PID: p.Pid, Name: name})
		}
	}
	return found, nil
}

// Quit implements Controller with an AppleScript quit event.
func (s *System) Quit(ctx context.Context) error {
	script := fmt.Sprintf("tell application %q to quit", s.appName)
	_, err := s.run(ctx, nil, "osascript", "-e", script)
	return err
}

// Kill implements Controller with SIGKILL.
func (s *System) Kill(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return fmt.Errorf("process %d: %w", pid, err)
	}
	if err := p.KillWithContext(ctx); err != nil {
		return fmt.Errorf("failed to kill process %d: %w", pid, err)
	}
	return nil
}

// Launch implements Controller through LaunchServices.
func (s *System) Launch(ctx context.Context) error {
	_, err := s.run(ctx, nil, "open", "-a", s.appName)
	return err
}

// Stats implements Inspector. CPU is measured over the configured sample
// window for each process in turn.
func (s *System) Stats(ctx context.Context) ([]ProcessStat, error) {
	found, err := s.Find(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var stats []ProcessStat
	for _, f := range found {
		p, err := process.NewProcessWithContext(ctx, f.PID)
		if err != nil {
			continue
		}
		cpu, err := p.PercentWithContext(ctx, s.sample)
		if err != nil {
			continue
		}
		mem, err := p.MemoryInfoWithContext(ctx)
		if err != nil {
			continue
		}
		created, err := p.CreateTimeWithContext(ctx)
		if err != nil {
			continue
		}
		stats = append(stats, ProcessStat{
			PID:    f.PID,
			Name:   f.Name,
			CPU:    cpu,
			RSSMB:  core.MB(int64(mem.RSS)),
			Uptime: now.Sub(time.UnixMilli(created)),
		})
	}
	return stats, nil
}
