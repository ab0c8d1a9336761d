package diagnose

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/browser"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/config"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/prefs"
)

const gb = 1024 * 1024 * 1024

// ─── Fakes ───────────────────────────────────────────────────────────────────

type fakeProbe struct {
	free     uint64
	freeErr  error
	mem      MemoryStat
	swap     uint64
	load1    float64
	cpus     int
	dnsTook  time.Duration
	dnsErr   error
	resolved int
}

func (f *fakeProbe) FreeDisk(context.Context, string) (uint64, error) {
	return f.free, f.freeErr
}
func (f *fakeProbe) Memory(context.Context) (MemoryStat, error) {
	return f.mem, nil
}
func (f *fakeProbe) SwapUsed(context.Context) (uint64, error) {
	return f.swap, nil
}
func (f *fakeProbe) Load(context.Context) (float64, int, error) {
	return f.load1, f.cpus, nil
}
func (f *fakeProbe) Resolve(context.Context, string) (time.Duration, error) {
	f.resolved++
	return f.dnsTook, f.dnsErr
}

func healthyProbe() *fakeProbe {
	return &fakeProbe{
		free: 50 * gb,
		mem:  MemoryStat{Total: 16 * gb, Available: 8 * gb, UsedPercent: 50},
		cpus: 8,
	}
}

type fakeInspector struct {
	stats  []browser.ProcessStat
	called bool
}

func (f *fakeInspector) Stats(context.Context) ([]browser.ProcessStat, error) {
	f.called = true
	return f.stats, nil
}

type fakeProber map[string]DBHealth

func (f fakeProber) Probe(_ context.Context, path string) (DBHealth, error) {
	return f[filepath.Base(path)], nil
}

// ─── Fixtures ────────────────────────────────────────────────────────────────

type fixture struct {
	cfg       *config.Config
	layout    config.Layout
	probe     *fakeProbe
	inspector *fakeInspector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	layout := cfg.ResolveAt(t.TempDir())
	require.NoError(t, os.MkdirAll(layout.Profile, 0o755))
	return &fixture{cfg: cfg, layout: layout, probe: healthyProbe(), inspector: &fakeInspector{}}
}

func (f *fixture) diagnoser() *Diagnoser {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(f.cfg, f.layout, prefs.Native{}, f.inspector, log).WithProbe(f.probe)
}

func (f *fixture) session() *session {
	return &session{Diagnoser: f.diagnoser(), report: &Report{Profile: f.layout.Profile}}
}

func (f *fixture) path(rel string) string {
	return filepath.Join(f.layout.Profile, rel)
}

// sparse creates a file that reports size bytes without using the space.
func sparse(t *testing.T, path string, size int64) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func mkdirs(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, n), 0o755))
	}
}

func writePrefs(t *testing.T, path string, values map[string]any) {
	t.Helper()
	require.NoError(t, prefs.Native{}.Write(context.Background(), path, values))
}

// ─── Orchestration ───────────────────────────────────────────────────────────

func TestRun_MissingProfile(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.RemoveAll(f.layout.Profile))

	_, err := f.diagnoser().Run(context.Background())
	assert.ErrorIs(t, err, ErrProfileMissing)
}

func TestRun_HealthyProfileEscalates(t *testing.T) {
	f := newFixture(t)
	touch(t, f.path("Cache/index"))

	r, err := f.diagnoser().Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, r.Issues)
	assert.True(t, r.Escalated, "zero primary issues must run the secondary battery")
	assert.True(t, f.inspector.called)
	assert.Equal(t, 100, r.Score.Value)
	assert.Equal(t, "Excellent", r.Score.Status)
	assert.False(t, r.HasIssues())
	require.Len(t, r.Caches, 1)
	assert.Equal(t, "Cache", r.Caches[0].Name)
}

func TestRun_LargeCacheSkipsEscalation(t *testing.T) {
	f := newFixture(t)
	sparse(t, f.path("Cache/data_0"), 600*1024*1024)

	r, err := f.diagnoser().Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"Large Cache directory (600.0 MB)"}, r.Issues)
	assert.Contains(t, r.Recommendations, "Clean Cache to improve performance")
	assert.False(t, r.Escalated)
	assert.False(t, f.inspector.called)
	assert.Equal(t, "Warning", r.CacheStatus.Label)

	// 100 - 30 (cache over 500 MB) - 10 (one issue)
	assert.Equal(t, 60, r.Score.Value)
	assert.Equal(t, "Fair", r.Score.Status)
}

func TestRun_ModerateCacheRecommendsMonitoring(t *testing.T) {
	f := newFixture(t)
	sparse(t, f.path("Cache/data_0"), 120*1024*1024)
	sparse(t, f.path("WebKitCache/data_0"), 130*1024*1024)

	r, err := f.diagnoser().Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, r.Issues)
	assert.Equal(t, []string{"Monitor Cache size", "Monitor WebKitCache size"}, r.Recommendations)
	assert.Equal(t, 85, r.Score.Value)
	assert.Equal(t, "Good", r.Score.Status)
}

func TestRun_PrimaryHostChecks(t *testing.T) {
	f := newFixture(t)
	f.probe.free = 2 * gb
	f.probe.mem.UsedPercent = 85

	r, err := f.diagnoser().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Low disk space (2.0 GB free)",
		"High memory usage (85.0%)",
	}, r.Issues)
	// 100 - 25 (disk under 5 GB) - 10 (issues)
	assert.Equal(t, 65, r.Score.Value)
}

func TestRun_FailedCheckDoesNotAbortOthers(t *testing.T) {
	f := newFixture(t)
	f.probe.freeErr = errors.New("statfs: permission denied")
	f.probe.mem.UsedPercent = 95

	r, err := f.diagnoser().Run(context.Background())
	require.NoError(t, err)

	require.Len(t, r.Failures, 1)
	assert.Equal(t, "disk space", r.Failures[0].Check)
	assert.False(t, r.FreeDiskKnown)
	assert.Equal(t, []string{"High memory usage (95.0%)"}, r.Issues)
	// Unknown free space is not penalised.
	assert.Equal(t, 90, r.Score.Value)
}

func TestRun_History(t *testing.T) {
	f := newFixture(t)
	sparse(t, f.path("History.db"), 40*1024*1024)
	sparse(t, f.path("History-journal"), 20*1024*1024)

	r, err := f.diagnoser().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Large history files (60.0 MB)"}, r.Issues)
	assert.Equal(t, "Large", r.HistoryStatus.Label)
	assert.Equal(t, 60000, r.EstimatedEntries)
	assert.Equal(t, []string{
		"Consider clearing old browsing history",
		"Reduce history retention period",
	}, r.Recommendations)
	assert.Len(t, r.History, 2)
}

func TestRun_Interrupted(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.diagnoser().Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_SystemChecksAreOptIn(t *testing.T) {
	f := newFixture(t)
	_, err := f.diagnoser().Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, f.probe.resolved)

	f.cfg.Diagnostics.SystemChecks = true
	_, err = f.diagnoser().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.probe.resolved)
}

// ─── Secondary checks ────────────────────────────────────────────────────────

func TestCheckProcesses(t *testing.T) {
	f := newFixture(t)
	f.inspector.stats = []browser.ProcessStat{
		{PID: 1, Name: "Orion", CPU: 75, RSSMB: 1500, Uptime: 30 * time.Hour},
		{PID: 2, Name: "Orion Helper", CPU: 5, RSSMB: 600, Uptime: time.Hour},
	}

	issues, err := f.session().checkProcesses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"High memory usage by Orion processes (2100.0 MB)",
		"High CPU usage by Orion (75.0%)",
		"Orion has been running for 30.0 hours - restart recommended",
	}, issues)
}

func TestCheckExtensions(t *testing.T) {
	f := newFixture(t)
	ext := f.path("Extensions")
	for i := range 15 {
		mkdirs(t, ext, "ext-"+string(rune('a'+i)))
	}
	mkdirs(t, ext, "Grammarly-Helper")
	sparse(t, filepath.Join(ext, "ext-a", "data.bin"), 60*1024*1024)
	sparse(t, filepath.Join(ext, "ext-b", "data.bin"), 150*1024*1024)
	touch(t, filepath.Join(ext, ".DS_Store"))

	issues, err := f.session().checkExtensions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Too many extensions (16) - each adds overhead",
		"Extension 'Grammarly-Helper' - Grammarly extension can cause typing lag",
		"Extension 'ext-a' has large data (60.0 MB)",
		"Extension 'ext-b' has large data (150.0 MB)",
		"Total extension data is large (210.0 MB)",
	}, issues)
}

func TestCheckPreferences(t *testing.T) {
	f := newFixture(t)
	writePrefs(t, f.layout.Preferences, map[string]any{
		"WebKitJavaScriptEnabled": true,
		"WebKitJavaEnabled":       true,
		"WebKitPageCacheEnabled":  false,
		"Unrelated":               "value",
	})

	issues, err := f.session().checkPreferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Setting 'WebKitJavaEnabled': Java enabled - security and performance risk",
		"Setting 'WebKitPageCacheEnabled': Page cache disabled - slower back/forward navigation",
	}, issues)
}

func TestCheckPreferences_MissingFile(t *testing.T) {
	f := newFixture(t)
	issues, err := f.session().checkPreferences(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCheckContentBlockers(t *testing.T) {
	f := newFixture(t)
	mkdirs(t, f.path("ContentBlockers"), "a", "b", "c", "d", "e", "f")

	issues, err := f.session().checkContentBlockers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Many content blockers (6) may slow page loading"}, issues)
}

func TestCheckDatabases(t *testing.T) {
	f := newFixture(t)
	sparse(t, f.path("History.db"), 600*1024*1024)
	touch(t, f.path("Cookies.db"))
	touch(t, f.path("Web Data"))
	sparse(t, f.path("Favicons.db"), 0)

	s := f.session()
	s.db = fakeProber{"Cookies.db": DBCorrupt, "Web Data": DBLocked}

	issues, err := s.checkDatabases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Database 'History.db' is very large (600.0 MB)",
		"Database 'Cookies.db' may be corrupted",
		"Database 'Web Data' is locked or unresponsive",
	}, issues)
}

func TestCheckCorruption(t *testing.T) {
	f := newFixture(t)
	touch(t, f.path("LOCK"))
	require.NoError(t, os.WriteFile(f.layout.Preferences, []byte("{ HomePage = "), 0o644))

	now := time.Now()
	old := now.Add(-8 * 24 * time.Hour)
	for _, name := range []string{"Orion-1.crash", "Orion-2.crash", "Orion-3.crash", "Orion-4.crash", "Orion_a.hang", "Orion_b.hang"} {
		touch(t, filepath.Join(f.layout.CrashLogs, name))
	}
	stale := filepath.Join(f.layout.CrashLogs, "Orion-0.crash")
	touch(t, stale)
	require.NoError(t, os.Chtimes(stale, old, old))
	sparse(t, f.path("WebKitNetworking/cache.db"), 501*1024*1024)

	issues, err := f.session().checkCorruption(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Profile lock file found (LOCK) - may indicate corruption",
		"Preferences file is corrupted",
		"Multiple Orion crashes in past week (4 crash logs)",
		"Orion hang logs detected (2 hang logs)",
		"WebKit networking data is very large (501.0 MB)",
	}, issues)
}

func TestCheckCorruption_EmptyPreferences(t *testing.T) {
	f := newFixture(t)
	writePrefs(t, f.layout.Preferences, map[string]any{})

	issues, err := f.session().checkCorruption(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Preferences file exists but cannot be read - may be corrupted"}, issues)
}

func TestCheckSibling(t *testing.T) {
	f := newFixture(t)
	mkdirs(t, f.path("Extensions"), "a", "b", "c", "d", "e", "f")
	sparse(t, f.path("History.db"), 4*1024*1024)
	mkdirs(t, f.layout.Sibling, "Extensions")
	sparse(t, filepath.Join(f.layout.Sibling, "History.db"), 1024*1024)
	writePrefs(t, f.layout.Preferences, map[string]any{
		"WebKitDeveloperExtrasEnabled":        true,
		"WebKitResourceLoadStatisticsEnabled": false,
		"WebKitStorageBlockingPolicy":         2,
	})

	issues, err := f.session().checkSibling(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Orion has significantly more extensions than Safari (6 vs 0)",
		"Orion history is much larger than Safari (4.0MB vs 1.0MB)",
		"Orion-specific setting: Developer tools enabled (Safari likely doesn't have this)",
		"Orion-specific setting: Strict storage blocking may slow page loads",
	}, issues)
}

func TestCheckSibling_NoSiblingProfile(t *testing.T) {
	f := newFixture(t)
	mkdirs(t, f.path("Extensions"), "a", "b", "c", "d", "e", "f")

	issues, err := f.session().checkSibling(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCheckSystem(t *testing.T) {
	f := newFixture(t)
	f.probe.load1 = 7
	f.probe.swap = 2 * gb
	f.probe.mem.UsedPercent = 93

	issues, err := f.session().checkSystem(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"High system load (7.0) may be slowing all applications",
		"High swap usage (2.0 GB) indicates memory pressure",
		"Very high memory usage (93.0%) - close other applications",
	}, issues)
}

func TestCheckNetwork(t *testing.T) {
	tests := []struct {
		name  string
		took  time.Duration
		err   error
		proxy bool
		want  []string
	}{
		{name: "fast", took: 20 * time.Millisecond},
		{name: "slow", took: 800 * time.Millisecond, want: []string{"Slow DNS resolution (800.0ms) - consider changing DNS servers"}},
		{name: "timeout", err: ErrResolveTimeout, want: []string{"DNS resolution timed out (>3s) - check network connectivity"}},
		{name: "failure", err: errors.New("no such host"), want: []string{"DNS resolution test failed - check network connectivity"}},
		{name: "proxy", proxy: true, want: []string{"Proxy settings detected - may impact browsing speed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.probe.dnsTook = tt.took
			f.probe.dnsErr = tt.err
			if tt.proxy {
				touch(t, f.path("Proxy Settings"))
			}

			issues, err := f.session().checkNetwork(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, issues)
		})
	}
}

// ─── SQLite probe ────────────────────────────────────────────────────────────

func TestSQLiteProber(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "History Copy.db")
	db, err := sql.Open("sqlite", good)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE visits (id INTEGER PRIMARY KEY, url TEXT)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO visits (url) VALUES ('https://example.com')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	bad := filepath.Join(dir, "Cookies.db")
	require.NoError(t, os.WriteFile(bad, bytes.Repeat([]byte("not a database "), 512), 0o644))

	p := SQLiteProber{}
	health, err := p.Probe(context.Background(), good)
	require.NoError(t, err)
	assert.Equal(t, DBOK, health)

	health, _ = p.Probe(context.Background(), bad)
	assert.Equal(t, DBCorrupt, health)
}

func TestReadOnlyDSN(t *testing.T) {
	dsn := readOnlyDSN("/Users/me/Library/Application Support/Orion/History.db")
	assert.True(t, strings.HasPrefix(dsn, "file:///Users/me/Library/Application%20Support/"))
	assert.Contains(t, dsn, "mode=ro")
}

// ─── Rendering ───────────────────────────────────────────────────────────────

func TestRender(t *testing.T) {
	f := newFixture(t)
	sparse(t, f.path("Cache/data_0"), 600*1024*1024)
	touch(t, f.path("GPUCache/x"))

	r, err := f.diagnoser().Run(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	Render(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "DIRECTORY")
	assert.Contains(t, out, "GPUCache")
	assert.Contains(t, out, "600.0 MB")
	assert.Contains(t, out, "Large Cache directory (600.0 MB)")
	assert.Contains(t, out, "60/100")
	assert.NotContains(t, out, "Advanced diagnosis")
}
