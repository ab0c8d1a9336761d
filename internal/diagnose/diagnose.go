// Package diagnose measures a browser profile and the host it runs on and
// reports performance issues, recommendations and a score.
package diagnose

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/browser"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/config"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/impact"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/prefs"
)

// ErrProfileMissing is returned when the profile directory does not exist.
var ErrProfileMissing = errors.New("browser profile not found")

// ─── Report ──────────────────────────────────────────────────────────────────

// CacheDir is one measured cache directory.
type CacheDir struct {
	Name  string
	Path  string
	Size  int64
	Class impact.Classification
	// Err is set when the directory exists but could not be measured.
	Err error
}

// FileSize is one measured file.
type FileSize struct {
	Name string
	Size int64
}

// Failure records a check that could not complete.
type Failure struct {
	Check string
	Err   error
}

// Report is the outcome of a diagnostic run.
type Report struct {
	Profile string

	Caches      []CacheDir
	CacheTotal  int64
	CacheStatus impact.CacheStatus

	Extensions int

	History          []FileSize
	HistoryTotal     int64
	HistoryStatus    impact.HistoryStatus
	EstimatedEntries int

	FreeDisk      uint64
	FreeDiskKnown bool
	Memory        MemoryStat
	MemoryKnown   bool

	// Issues are the findings of the primary checks; the score is based on
	// them alone.
	Issues []string
	// Secondary holds findings of the escalated battery.
	Secondary       []string
	Recommendations []string
	Score           impact.Score

	Escalated     bool
	SecondaryTook time.Duration

	Failures []Failure
}

// AllIssues returns primary then secondary findings.
func (r *Report) AllIssues() []string {
	out := make([]string, 0, len(r.Issues)+len(r.Secondary))
	out = append(out, r.Issues...)
	return append(out, r.Secondary...)
}

// HasIssues reports whether any check found something.
func (r *Report) HasIssues() bool {
	return len(r.Issues)+len(r.Secondary) > 0
}

func (r *Report) recommend(s string) {
	r.Recommendations = append(r.Recommendations, s)
}

// ─── Diagnoser ───────────────────────────────────────────────────────────────

// Diagnoser runs the checks against one profile. Every check only reads.
type Diagnoser struct {
	appName    string
	cfg        config.Diagnostics
	layout     config.Layout
	preference string
	classifier *impact.Classifier
	rubric     *impact.Rubric
	codec      prefs.Codec
	inspector  browser.Inspector
	probe      SystemProbe
	db         IntegrityProber
	now        func() time.Time
	log        *slog.Logger
}

// New builds a Diagnoser using the host probe and the in-process SQLite
// integrity check.
func New(cfg *config.Config, layout config.Layout, codec prefs.Codec, inspector browser.Inspector, log *slog.Logger) *Diagnoser {
	if log == nil {
		log = slog.Default()
	}
	return &Diagnoser{
		appName:    cfg.Browser.AppName,
		cfg:        cfg.Diagnostics,
		layout:     layout,
		preference: layout.Preferences,
		classifier: impact.NewClassifier(cfg.Impact),
		rubric:     impact.NewRubric(cfg.Score),
		codec:      codec,
		inspector:  inspector,
		probe:      HostProbe{},
		db:         SQLiteProber{},
		now:        time.Now,
		log:        log,
	}
}

// WithProbe replaces the host probe and returns d.
func (d *Diagnoser) WithProbe(p SystemProbe) *Diagnoser {
	d.probe = p
	return d
}

// WithProber replaces the database integrity probe and returns d.
func (d *Diagnoser) WithProber(p IntegrityProber) *Diagnoser {
	d.db = p
	return d
}

// WithClock replaces the clock used for log ages and timings and returns d.
func (d *Diagnoser) WithClock(now func() time.Time) *Diagnoser {
	d.now = now
	return d
}

// Classifier returns the classifier the cache check uses.
func (d *Diagnoser) Classifier() *impact.Classifier { return d.classifier }

type check struct {
	name string
	run  func(ctx context.Context) ([]string, error)
}

// Run executes the primary checks, scores them and, when they found
// nothing, escalates to the secondary battery. A check that fails is
// logged and recorded in Report.Failures; the others still run.
func (d *Diagnoser) Run(ctx context.Context) (*Report, error) {
	info, err := os.Stat(d.layout.Profile)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrProfileMissing, d.layout.Profile)
	}

	s := &session{Diagnoser: d, report: &Report{Profile: d.layout.Profile}}
	r := s.report

	r.Issues = s.runChecks(ctx, s.primary())
	if err := ctx.Err(); err != nil {
		return r, fmt.Errorf("%w: %w", core.ErrInterrupted, err)
	}

	freeGB := math.Inf(1)
	if r.FreeDiskKnown {
		freeGB = core.GB(r.FreeDisk)
	}
	r.Score = d.rubric.Score(impact.ScoreInput{
		CacheMB:   core.MB(r.CacheTotal),
		HistoryMB: core.MB(r.HistoryTotal),
		Issues:    len(r.Issues),
		FreeGB:    freeGB,
	})

	if len(r.Issues) == 0 {
		r.Escalated = true
		start := d.now()
		r.Secondary = s.runChecks(ctx, s.secondary())
		r.SecondaryTook = d.now().Sub(start)
		if err := ctx.Err(); err != nil {
			return r, fmt.Errorf("%w: %w", core.ErrInterrupted, err)
		}
	}
	return r, nil
}

// session carries per-run state shared between checks.
type session struct {
	*Diagnoser
	report *Report

	prefsLoaded bool
	prefsFound  bool
	prefs       map[string]any
	prefsErr    error
}

func (s *session) runChecks(ctx context.Context, checks []check) []string {
	var issues []string
	for _, c := range checks {
		if ctx.Err() != nil {
			break
		}
		found, err := c.run(ctx)
		if err != nil {
			s.log.Warn("diagnostic check failed", "check", c.name, "error", err)
			s.report.Failures = append(s.report.Failures, Failure{Check: c.name, Err: err})
			continue
		}
		s.log.Debug("diagnostic check done", "check", c.name, "issues", len(found))
		issues = append(issues, found...)
	}
	return issues
}

func (s *session) primary() []check {
	return []check{
		{"cache directories", s.checkCaches},
		{"extension count", s.checkExtensionCount},
		{"history size", s.checkHistory},
		{"disk space", s.checkDisk},
		{"memory", s.checkMemory},
	}
}

func (s *session) secondary() []check {
	checks := []check{
		{"browser processes", s.checkProcesses},
		{"extensions", s.checkExtensions},
		{"preferences", s.checkPreferences},
		{"content blockers", s.checkContentBlockers},
		{"databases", s.checkDatabases},
		{"profile corruption", s.checkCorruption},
		{"sibling comparison", s.checkSibling},
	}
	if s.cfg.SystemChecks {
		checks = append(checks,
			check{"system load", s.checkSystem},
			check{"network", s.checkNetwork},
		)
	}
	return checks
}

// preferences reads the preference file once per run. found is false when
// the file does not exist.
func (s *session) preferences(ctx context.Context) (values map[string]any, found bool, err error) {
	if !s.prefsLoaded {
		s.prefsLoaded = true
		if _, statErr := os.Stat(s.preference); statErr == nil {
			s.prefsFound = true
			s.prefs, s.prefsErr = s.codec.Read(ctx, s.preference)
		} else if !errors.Is(statErr, fs.ErrNotExist) {
			s.prefsFound = true
			s.prefsErr = statErr
		}
	}
	return s.prefs, s.prefsFound, s.prefsErr
}
