package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_BuiltInTables(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "Orion", cfg.Browser.AppName)
	assert.Equal(t, 3*time.Second, cfg.Browser.GracePeriod.Std())
	assert.Equal(t, 100*time.Millisecond, cfg.Browser.CPUSample.Std())

	cache, ok := cfg.Impact.Directories["Cache"]
	require.True(t, ok)
	assert.Equal(t, 50.0, cache.Low)
	assert.Equal(t, 200.0, cache.Medium)
	assert.Equal(t, 500.0, cache.High)

	local := cfg.Impact.Directories["Local Storage"]
	assert.Equal(t, 5.0, local.Low)
	assert.Equal(t, 150.0, cfg.Impact.Default.High)

	assert.Len(t, cfg.Diagnostics.CacheDirs, 15)
	assert.Len(t, cfg.Cleanup.AllowList, 14)
	assert.Len(t, cfg.Settings, 10)
	assert.Equal(t, 3, cfg.Cleaner.KeepBackups)
	assert.Equal(t, 100, cfg.Score.Baseline)
}

func TestDefault_SettingValuesKeepTheirTypes(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	byKey := make(map[string]any)
	for _, s := range cfg.Settings {
		byKey[s.Key] = s.Value
	}
	assert.Equal(t, false, byKey["WebKitDNSPrefetchingEnabled"])
	assert.Equal(t, true, byKey["WebKitPageCacheEnabled"])
	assert.EqualValues(t, 1000, byKey["WebKitHistoryItemLimit"])
}

func TestLoad_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
browser:
  grace_period: 1s
impact:
  directories:
    Custom:
      low: 1
      medium: 2
      high: 3
      purpose: custom
cleanup:
  allow_list: [Cache]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Browser.GracePeriod.Std())
	assert.Equal(t, "Orion", cfg.Browser.AppName, "untouched fields keep defaults")
	assert.Equal(t, []string{"Cache"}, cfg.Cleanup.AllowList)
	assert.Contains(t, cfg.Impact.Directories, "Custom")
	assert.Contains(t, cfg.Impact.Directories, "Cache", "maps merge with defaults")
}

func TestLoad_TOMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[browser]
app_name = "Orion RC"
startup_wait = "2s"

[cleaner]
keep_backups = 5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Orion RC", cfg.Browser.AppName)
	assert.Equal(t, 2*time.Second, cfg.Browser.StartupWait.Std())
	assert.Equal(t, 5, cfg.Cleaner.KeepBackups)
	assert.Equal(t, "orion", cfg.Browser.ProcessMatch)
}

func TestLoad_RejectsUnsafeAllowList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cleanup:\n  allow_list: [\"../Documents\"]\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes its root")
}

func TestLoad_RejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate_ThresholdOrder(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	cfg.Impact.Directories["Broken"] = Thresholds{Low: 10, Medium: 5, High: 20}
	assert.Error(t, cfg.Validate())
}

func TestCheckRelative(t *testing.T) {
	tests := []struct {
		name    string
		rel     string
		wantErr bool
	}{
		{name: "plain", rel: "Cache"},
		{name: "nested", rel: "Service Worker/CacheStorage"},
		{name: "inner dotdot", rel: "a/../b"},
		{name: "empty", rel: "", wantErr: true},
		{name: "dot", rel: ".", wantErr: true},
		{name: "parent", rel: "..", wantErr: true},
		{name: "escape", rel: "../x", wantErr: true},
		{name: "absolute", rel: "/etc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRelative(tt.rel)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveAt(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	l := cfg.ResolveAt("/Users/me")
	assert.Equal(t, "/Users/me/Library/Application Support/Orion", l.Profile)
	assert.Equal(t, "/Users/me/Library/Application Support/Orion/Defaults", l.Defaults)
	assert.Equal(t, "/Users/me/Desktop", l.BackupParent)
	assert.Equal(t, "/Users/me/Library/Application Support/Orion/preferences.plist", l.Preferences)

	never := cfg.NeverDelete(l)
	assert.Contains(t, never, l.Profile)
	assert.Contains(t, never, filepath.Join(l.Profile, "Bookmarks.plist"))
	assert.Contains(t, never, filepath.Join(l.Defaults, "favourites.plist"))
}

func TestValidate_CleanerLists(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	cfg.Cleaner.SessionFiles = append(cfg.Cleaner.SessionFiles, "../../Documents")
	assert.ErrorContains(t, cfg.Validate(), "cleaner.session_files")

	cfg, err = Default()
	require.NoError(t, err)
	cfg.Cleaner.VersionBackups = "sub/bk_*"
	assert.ErrorContains(t, cfg.Validate(), "cleaner.version_backups")
}
