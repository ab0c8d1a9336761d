// Package status is a live monitor of the browser's processes and the host
// resources the diagnostics care about.
package status

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/browser"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/diagnose"
)

// Snapshot is one sample of the browser and the host.
type Snapshot struct {
	Taken time.Time `json:"taken"`
	// Processes are sorted by CPU usage, busiest first.
	Processes     []browser.ProcessStat `json:"processes"`
	TotalCPU      float64               `json:"total_cpu"`
	TotalRSSMB    float64               `json:"total_rss_mb"`
	Longest       time.Duration         `json:"longest_uptime"`
	Memory        diagnose.MemoryStat   `json:"memory"`
	MemoryKnown   bool                  `json:"memory_known"`
	FreeDisk      uint64                `json:"free_disk"`
	FreeDiskKnown bool                  `json:"free_disk_known"`
	Issues        []string              `json:"issues"`
}

// Running reports whether any browser process was seen.
func (s *Snapshot) Running() bool {
	return len(s.Processes) > 0
}

// Source produces snapshots.
type Source interface {
	Sample(ctx context.Context) (*Snapshot, error)
}

// Sampler collects snapshots from the process inspector and host probe.
type Sampler struct {
	app       string
	profile   string
	inspector browser.Inspector
	probe     diagnose.SystemProbe
	now       func() time.Time
	log       *slog.Logger
}

// NewSampler builds a Sampler. Free disk space is measured on the volume
// holding profile.
func NewSampler(app, profile string, inspector browser.Inspector, probe diagnose.SystemProbe, log *slog.Logger) *Sampler {
	if log == nil {
		log = slog.Default()
	}
	return &Sampler{app: app, profile: profile, inspector: inspector, probe: probe, now: time.Now, log: log}
}

// Sample takes one snapshot. Only a failed process listing is an error;
// host statistics that cannot be read are left unknown.
func (s *Sampler) Sample(ctx context.Context) (*Snapshot, error) {
	stats, err := s.inspector.Stats(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Taken: s.now(), Processes: stats}
	sort.SliceStable(snap.Processes, func(i, j int) bool {
		return snap.Processes[i].CPU > snap.Processes[j].CPU
	})
	for _, p := range stats {
		snap.TotalCPU += p.CPU
		snap.TotalRSSMB += p.RSSMB
		snap.Longest = max(snap.Longest, p.Uptime)
	}
	snap.Issues = diagnose.ProcessIssues(s.app, stats)

	if mem, err := s.probe.Memory(ctx); err == nil {
		snap.Memory, snap.MemoryKnown = mem, true
	} else {
		s.log.Debug("memory sample failed", "error", err)
	}
	if free, err := s.probe.FreeDisk(ctx, s.profile); err == nil {
		snap.FreeDisk, snap.FreeDiskKnown = free, true
	} else {
		s.log.Debug("disk sample failed", "error", err)
	}
	return snap, nil
}
