package diagnose

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/browser"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/prefs"
)

const (
	processMemoryMB     = 2000.0
	processCPUPercent   = 50.0
	processUptime       = 24 * time.Hour
	tooManyExtensions   = 15
	extensionDataMB     = 50.0
	extensionTotalMB    = 200.0
	manyContentBlockers = 5
	largeDatabaseMB     = 500.0
	crashLogLimit       = 3
	hangLogLimit        = 1
	crashLogWindow      = 7 * 24 * time.Hour
	webKitNetworkingMB  = 500.0
	siblingExtraExts    = 5
	siblingHistoryRatio = 3.0
	systemLoadPerCPU    = 0.8
	swapLimitGB         = 1.0
	veryHighMemory      = 90.0
	slowDNS             = 500 * time.Millisecond
)

// ─── Browser processes ───────────────────────────────────────────────────────

func (s *session) checkProcesses(ctx context.Context) ([]string, error) {
	stats, err := s.inspector.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if len(stats) > 0 {
		s.log.Debug("browser processes", "count", len(stats))
	}
	return ProcessIssues(s.appName, stats), nil
}

// ProcessIssues reports excessive combined memory, a busy process and a
// long-running browser.
func ProcessIssues(app string, stats []browser.ProcessStat) []string {
	if len(stats) == 0 {
		return nil
	}

	var totalMB, maxCPU float64
	var longest time.Duration
	for _, st := range stats {
		totalMB += st.RSSMB
		maxCPU = max(maxCPU, st.CPU)
		longest = max(longest, st.Uptime)
	}

	var issues []string
	if totalMB > processMemoryMB {
		issues = append(issues, fmt.Sprintf("High memory usage by %s processes (%.1f MB)", app, totalMB))
	}
	if maxCPU > processCPUPercent {
		issues = append(issues, fmt.Sprintf("High CPU usage by %s (%.1f%%)", app, maxCPU))
	}
	if longest > processUptime {
		issues = append(issues, fmt.Sprintf("%s has been running for %.1f hours - restart recommended", app, longest.Hours()))
	}
	return issues
}

// ─── Extensions ──────────────────────────────────────────────────────────────

func (s *session) checkExtensions(ctx context.Context) ([]string, error) {
	dir := filepath.Join(s.layout.Profile, s.cfg.ExtensionsDir)
	entries, found, err := listVisible(dir)
	if err != nil || !found {
		return nil, err
	}

	var issues []string
	if len(entries) > tooManyExtensions {
		issues = append(issues, fmt.Sprintf("Too many extensions (%d) - each adds overhead", len(entries)))
	}

	for _, e := range entries {
		lower := strings.ToLower(e.Name())
		for _, known := range s.cfg.KnownExtensions {
			if known.Match != "" && strings.Contains(lower, strings.ToLower(known.Match)) {
				issues = append(issues, fmt.Sprintf("Extension '%s' - %s", e.Name(), known.Reason))
			}
		}
	}

	var totalMB float64
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		size, err := core.PathSize(filepath.Join(dir, e.Name()))
		if err != nil {
			s.log.Debug("unable to measure extension", "name", e.Name(), "error", err)
			continue
		}
		mb := core.MB(size)
		totalMB += mb
		if mb > extensionDataMB {
			issues = append(issues, fmt.Sprintf("Extension '%s' has large data (%.1f MB)", e.Name(), mb))
		}
	}
	if totalMB > extensionTotalMB {
		issues = append(issues, fmt.Sprintf("Total extension data is large (%.1f MB)", totalMB))
	}
	return issues, nil
}

// ─── Preferences ─────────────────────────────────────────────────────────────

// checkPreferences reports keys that are set to something other than the
// expected value. Absent keys are not reported.
func (s *session) checkPreferences(ctx context.Context) ([]string, error) {
	values, found, err := s.preferences(ctx)
	if !found {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var issues []string
	for _, pc := range s.cfg.PreferenceChecks {
		current, ok := values[pc.Key]
		if !ok || current == nil {
			continue
		}
		if !prefs.Equal(current, pc.Expected) {
			issues = append(issues, fmt.Sprintf("Setting '%s': %s", pc.Key, pc.Message))
		}
	}
	return issues, nil
}

func (s *session) checkContentBlockers(_ context.Context) ([]string, error) {
	entries, found, err := listVisible(filepath.Join(s.layout.Profile, s.cfg.ContentBlockersDir))
	if err != nil || !found {
		return nil, err
	}
	if len(entries) > manyContentBlockers {
		return []string{fmt.Sprintf("Many content blockers (%d) may slow page loading", len(entries))}, nil
	}
	return nil, nil
}

// ─── Databases ───────────────────────────────────────────────────────────────

func (s *session) checkDatabases(ctx context.Context) ([]string, error) {
	var issues []string
	for _, name := range s.cfg.Databases {
		path := filepath.Join(s.layout.Profile, name)
		size, ok := fileSize(path)
		if !ok {
			continue
		}
		mb := core.MB(size)
		if mb > largeDatabaseMB {
			issues = append(issues, fmt.Sprintf("Database '%s' is very large (%.1f MB)", name, mb))
		}
		if size == 0 {
			continue
		}

		health, err := s.db.Probe(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Debug("integrity probe error", "database", name, "error", err)
		}
		switch health {
		case DBCorrupt:
			issues = append(issues, fmt.Sprintf("Database '%s' may be corrupted", name))
		case DBLocked:
			issues = append(issues, fmt.Sprintf("Database '%s' is locked or unresponsive", name))
		}
	}
	return issues, nil
}

// ─── Profile corruption ──────────────────────────────────────────────────────

func (s *session) checkCorruption(ctx context.Context) ([]string, error) {
	var issues []string
	for _, name := range s.cfg.LockFiles {
		if _, err := os.Lstat(filepath.Join(s.layout.Profile, name)); err == nil {
			issues = append(issues, fmt.Sprintf("Profile lock file found (%s) - may indicate corruption", name))
		}
	}

	values, found, err := s.preferences(ctx)
	if found {
		switch {
		case err != nil:
			issues = append(issues, "Preferences file is corrupted")
		case len(values) == 0:
			issues = append(issues, "Preferences file exists but cannot be read - may be corrupted")
		}
	}

	crashes, hangs, err := s.recentLogs()
	if err != nil {
		s.log.Debug("unable to read crash logs", "dir", s.layout.CrashLogs, "error", err)
	}
	if crashes > crashLogLimit {
		issues = append(issues, fmt.Sprintf("Multiple %s crashes in past week (%d crash logs)", s.appName, crashes))
	}
	if hangs > hangLogLimit {
		issues = append(issues, fmt.Sprintf("%s hang logs detected (%d hang logs)", s.appName, hangs))
	}

	netDir := filepath.Join(s.layout.Profile, s.cfg.WebKitNetworkingDir)
	if _, err := os.Lstat(netDir); err == nil {
		size, err := core.PathSize(netDir)
		if err == nil && core.MB(size) > webKitNetworkingMB {
			issues = append(issues, fmt.Sprintf("WebKit networking data is very large (%.1f MB)", core.MB(size)))
		}
	}
	return issues, nil
}

// recentLogs counts crash and hang reports for the browser modified within
// the last week.
func (s *session) recentLogs() (crashes, hangs int, err error) {
	if s.layout.CrashLogs == "" {
		return 0, 0, nil
	}
	cutoff := s.now().Add(-crashLogWindow)
	count := func(pattern string) (int, error) {
		matches, err := filepath.Glob(filepath.Join(s.layout.CrashLogs, pattern))
		if err != nil {
			return 0, err
		}
		n := 0
		for _, m := range matches {
			info, err := os.Stat(m)
			if err == nil && info.ModTime().After(cutoff) {
				n++
			}
		}
		return n, nil
	}

	if crashes, err = count("*" + s.appName + "*crash*"); err != nil {
		return 0, 0, err
	}
	if hangs, err = count("*" + s.appName + "*hang*"); err != nil {
		return crashes, 0, err
	}
	return crashes, hangs, nil
}

// ─── Sibling browser ─────────────────────────────────────────────────────────

// checkSibling compares the profile with the system browser's data
// directory. Nothing is reported when that directory does not exist.
func (s *session) checkSibling(ctx context.Context) ([]string, error) {
	if info, err := os.Stat(s.layout.Sibling); err != nil || !info.IsDir() {
		return nil, nil
	}

	ours, _, err := listVisible(filepath.Join(s.layout.Profile, s.cfg.ExtensionsDir))
	if err != nil {
		return nil, err
	}
	theirs, _, err := listVisible(filepath.Join(s.layout.Sibling, "Extensions"))
	if err != nil {
		return nil, err
	}

	var issues []string
	if len(ours) > len(theirs)+siblingExtraExts {
		issues = append(issues, fmt.Sprintf("%s has significantly more extensions than Safari (%d vs %d)", s.appName, len(ours), len(theirs)))
	}

	var ourHistory int64
	for _, name := range []string{"History.db", "History.plist"} {
		size, _ := fileSize(filepath.Join(s.layout.Profile, name))
		ourHistory += size
	}
	theirHistory, _ := fileSize(filepath.Join(s.layout.Sibling, "History.db"))
	oursMB, theirsMB := core.MB(ourHistory), core.MB(theirHistory)
	if oursMB > theirsMB*siblingHistoryRatio {
		issues = append(issues, fmt.Sprintf("%s history is much larger than Safari (%.1fMB vs %.1fMB)", s.appName, oursMB, theirsMB))
	}

	values, found, err := s.preferences(ctx)
	if !found || err != nil {
		return issues, nil
	}
	var settings []string
	if prefs.Truthy(values["WebKitDeveloperExtrasEnabled"]) {
		settings = append(settings, "Developer tools enabled (Safari likely doesn't have this)")
	}
	if prefs.Truthy(values["WebKitResourceLoadStatisticsEnabled"]) {
		settings = append(settings, "Resource load statistics enabled (extra overhead)")
	}
	if policy, ok := prefs.Number(values["WebKitStorageBlockingPolicy"]); ok && policy > 1 {
		settings = append(settings, "Strict storage blocking may slow page loads")
	}
	for _, msg := range settings {
		issues = append(issues, fmt.Sprintf("%s-specific setting: %s", s.appName, msg))
	}
	return issues, nil
}

// ─── System & network ────────────────────────────────────────────────────────

func (s *session) checkSystem(ctx context.Context) ([]string, error) {
	var issues []string
	var errs []error

	if load1, cpus, err := s.probe.Load(ctx); err != nil {
		errs = append(errs, err)
	} else if cpus > 0 && load1 > float64(cpus)*systemLoadPerCPU {
		issues = append(issues, fmt.Sprintf("High system load (%.1f) may be slowing all applications", load1))
	}

	if used, err := s.probe.SwapUsed(ctx); err != nil {
		errs = append(errs, err)
	} else if gb := core.GB(used); gb > swapLimitGB {
		issues = append(issues, fmt.Sprintf("High swap usage (%.1f GB) indicates memory pressure", gb))
	}

	if m, err := s.probe.Memory(ctx); err != nil {
		errs = append(errs, err)
	} else if m.UsedPercent > veryHighMemory {
		issues = append(issues, fmt.Sprintf("Very high memory usage (%.1f%%) - close other applications", m.UsedPercent))
	}

	if len(issues) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	for _, err := range errs {
		s.log.Debug("system probe failed", "error", err)
	}
	return issues, nil
}

func (s *session) checkNetwork(ctx context.Context) ([]string, error) {
	var issues []string

	if s.cfg.DNSHost != "" {
		took, err := s.probe.Resolve(ctx, s.cfg.DNSHost)
		switch {
		case errors.Is(err, ErrResolveTimeout):
			issues = append(issues, "DNS resolution timed out (>3s) - check network connectivity")
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			issues = append(issues, "DNS resolution test failed - check network connectivity")
		case took > slowDNS:
			issues = append(issues, fmt.Sprintf("Slow DNS resolution (%.1fms) - consider changing DNS servers", float64(took)/float64(time.Millisecond)))
		}
	}

	candidates := []string{s.layout.ProxyPreferences}
	if s.cfg.ProxyFile != "" {
		candidates = append([]string{filepath.Join(s.layout.Profile, s.cfg.ProxyFile)}, candidates...)
	}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			issues = append(issues, "Proxy settings detected - may impact browsing speed")
			break
		}
	}
	return issues, nil
}
