package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the complete, immutable-after-load configuration of a run.
// Components receive the sub-struct they need; nothing reads package state.
type Config struct {
	Browser     Browser     `yaml:"browser" toml:"browser"`
	Paths       Paths       `yaml:"paths" toml:"paths"`
	Preferences Preferences `yaml:"preferences" toml:"preferences"`
	Impact      Impact      `yaml:"impact" toml:"impact"`
	Score       Score       `yaml:"score" toml:"score"`
	Backup      Backup      `yaml:"backup" toml:"backup"`
	Cleanup     Cleanup     `yaml:"cleanup" toml:"cleanup"`
	Diagnostics Diagnostics `yaml:"diagnostics" toml:"diagnostics"`
	Settings    []Setting   `yaml:"settings" toml:"settings"`
	Cleaner     Cleaner     `yaml:"cleaner" toml:"cleaner"`
}

// ─── Browser ─────────────────────────────────────────────────────────────────

// Browser describes the target application and its shutdown timings.
type Browser struct {
	AppName         string   `yaml:"app_name" toml:"app_name"`
	ProcessMatch    string   `yaml:"process_match" toml:"process_match"`
	QuitTimeout     Duration `yaml:"quit_timeout" toml:"quit_timeout"`
	GracePeriod     Duration `yaml:"grace_period" toml:"grace_period"`
	KillWait        Duration `yaml:"kill_wait" toml:"kill_wait"`
	CleanerKillWait Duration `yaml:"cleaner_kill_wait" toml:"cleaner_kill_wait"`
	StartupWait     Duration `yaml:"startup_wait" toml:"startup_wait"`
	CPUSample       Duration `yaml:"cpu_sample" toml:"cpu_sample"`
}

// Paths holds profile locations. Relative values are resolved against the
// home directory by Resolve.
type Paths struct {
	Profile          string `yaml:"profile" toml:"profile"`
	Defaults         string `yaml:"defaults" toml:"defaults"`
	Sibling          string `yaml:"sibling" toml:"sibling"`
	CrashLogs        string `yaml:"crash_logs" toml:"crash_logs"`
	BackupParent     string `yaml:"backup_parent" toml:"backup_parent"`
	ProxyPreferences string `yaml:"proxy_preferences" toml:"proxy_preferences"`
}

// Preferences selects the preference file and how it is converted.
type Preferences struct {
	File      string `yaml:"file" toml:"file"`
	Converter string `yaml:"converter" toml:"converter"`
}

// ─── Impact & score ──────────────────────────────────────────────────────────

// TierText holds one description per impact tier.
type TierText struct {
	Low    string `yaml:"low" toml:"low"`
	Medium string `yaml:"medium" toml:"medium"`
	High   string `yaml:"high" toml:"high"`
}

// Thresholds is the three-level size table (in MB) for one cache directory.
type Thresholds struct {
	Low     float64  `yaml:"low" toml:"low"`
	Medium  float64  `yaml:"medium" toml:"medium"`
	High    float64  `yaml:"high" toml:"high"`
	Purpose string   `yaml:"purpose" toml:"purpose"`
	Impact  TierText `yaml:"impact" toml:"impact"`
}

// Impact maps known directory names to thresholds.
type Impact struct {
	Default     Thresholds            `yaml:"default" toml:"default"`
	Directories map[string]Thresholds `yaml:"directories" toml:"directories"`
}

// Band is one penalty step of the score rubric.
type Band struct {
	Limit   float64 `yaml:"limit" toml:"limit"`
	Penalty int     `yaml:"penalty" toml:"penalty"`
}

// StatusBand labels every score at or above Min.
type StatusBand struct {
	Min     int    `yaml:"min" toml:"min"`
	Label   string `yaml:"label" toml:"label"`
	Summary string `yaml:"summary" toml:"summary"`
}

// Score is the aggregate performance rubric.
type Score struct {
	Baseline   int          `yaml:"baseline" toml:"baseline"`
	CacheMB    []Band       `yaml:"cache_mb" toml:"cache_mb"`
	HistoryMB  []Band       `yaml:"history_mb" toml:"history_mb"`
	Issues     []Band       `yaml:"issues" toml:"issues"`
	FreeDiskGB []Band       `yaml:"free_disk_gb" toml:"free_disk_gb"`
	Status     []StatusBand `yaml:"status" toml:"status"`
}

// ─── Backup & cleanup ────────────────────────────────────────────────────────

// Backup configures the snapshot taken before the optimizer cleans.
type Backup struct {
	Prefix          string   `yaml:"prefix" toml:"prefix"`
	Stamp           string   `yaml:"stamp" toml:"stamp"`
	RequireAny      bool     `yaml:"require_any" toml:"require_any"`
	PreferencesCopy string   `yaml:"preferences_copy" toml:"preferences_copy"`
	Critical        []string `yaml:"critical" toml:"critical"`
	Verify          []string `yaml:"verify" toml:"verify"`
}

// Cleanup is the optimizer's deletion allow-list, relative to the profile.
type Cleanup struct {
	AllowList []string `yaml:"allow_list" toml:"allow_list"`
}

// ─── Diagnostics ─────────────────────────────────────────────────────────────

// KnownExtension flags extensions whose directory name contains Match.
type KnownExtension struct {
	Match  string `yaml:"match" toml:"match"`
	Reason string `yaml:"reason" toml:"reason"`
}

// PreferenceCheck reports Message when Key is set to anything but Expected.
type PreferenceCheck struct {
	Key      string `yaml:"key" toml:"key"`
	Expected any    `yaml:"expected" toml:"expected"`
	Message  string `yaml:"message" toml:"message"`
}

// Diagnostics lists what the diagnostic checks look at.
type Diagnostics struct {
	SystemChecks        bool              `yaml:"system_checks" toml:"system_checks"`
	DNSHost             string            `yaml:"dns_host" toml:"dns_host"`
	ExtensionsDir       string            `yaml:"extensions_dir" toml:"extensions_dir"`
	ContentBlockersDir  string            `yaml:"content_blockers_dir" toml:"content_blockers_dir"`
	WebKitNetworkingDir string            `yaml:"webkit_networking_dir" toml:"webkit_networking_dir"`
	ProxyFile           string            `yaml:"proxy_file" toml:"proxy_file"`
	CacheDirs           []string          `yaml:"cache_dirs" toml:"cache_dirs"`
	HistoryFiles        []string          `yaml:"history_files" toml:"history_files"`
	Databases           []string          `yaml:"databases" toml:"databases"`
	LockFiles           []string          `yaml:"lock_files" toml:"lock_files"`
	KnownExtensions     []KnownExtension  `yaml:"known_extensions" toml:"known_extensions"`
	PreferenceChecks    []PreferenceCheck `yaml:"preference_checks" toml:"preference_checks"`
}

// Setting is one entry of the optimization catalog.
type Setting struct {
	Name        string `yaml:"name" toml:"name"`
	Description string `yaml:"description" toml:"description"`
	Benefit     string `yaml:"benefit" toml:"benefit"`
	Key         string `yaml:"key" toml:"key"`
	Value       any    `yaml:"value" toml:"value"`
	Safety      string `yaml:"safety" toml:"safety"`
}

// SyncFile is a Defaults file that syncs to mobile devices.
type SyncFile struct {
	Name        string `yaml:"name" toml:"name"`
	Description string `yaml:"description" toml:"description"`
}

// Cleaner configures the profile cleaner, which works on the Defaults dir.
type Cleaner struct {
	BackupPrefix   string     `yaml:"backup_prefix" toml:"backup_prefix"`
	BackupStamp    string     `yaml:"backup_stamp" toml:"backup_stamp"`
	Critical       []string   `yaml:"critical" toml:"critical"`
	HistoryFiles   []string   `yaml:"history_files" toml:"history_files"`
	CacheDirs      []string   `yaml:"cache_dirs" toml:"cache_dirs"`
	IconFiles      []string   `yaml:"icon_files" toml:"icon_files"`
	VersionBackups string     `yaml:"version_backups" toml:"version_backups"`
	KeepBackups    int        `yaml:"keep_backups" toml:"keep_backups"`
	SessionFiles   []string   `yaml:"session_files" toml:"session_files"`
	SyncFiles      []SyncFile `yaml:"sync_files" toml:"sync_files"`
}

// ─── Duration ────────────────────────────────────────────────────────────────

// Duration decodes "3s"-style strings from both YAML and TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ─── Loading ─────────────────────────────────────────────────────────────────

// Default returns the built-in configuration.
func Default() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse built-in defaults: %w", err)
	}
	return &cfg, nil
}

// DefaultPath returns the first existing user config file under
// ~/.config/oriondoctor, or "" when there is none.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".config", "oriondoctor")
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load returns the defaults overlaid with the file at path. An empty path
// falls back to DefaultPath; no file at all yields the defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if err := overlay(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

// overlay decodes the file at path on top of cfg, picking the format from
// the extension.
func overlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
	return nil
}

// Validate rejects tables that would make classification or cleanup unsafe.
func (c *Config) Validate() error {
	var errs []error

	check := func(name string, t Thresholds) {
		if t.Low > t.Medium || t.Medium > t.High {
			errs = append(errs, fmt.Errorf("thresholds for %q must satisfy low <= medium <= high", name))
		}
	}
	check("default", c.Impact.Default)
	for name, t := range c.Impact.Directories {
		check(name, t)
	}

	for _, rel := range c.Cleanup.AllowList {
		if err := CheckRelative(rel); err != nil {
			errs = append(errs, fmt.Errorf("cleanup.allow_list: %w", err))
		}
	}
	for _, rel := range c.Backup.Critical {
		if err := CheckRelative(rel); err != nil {
			errs = append(errs, fmt.Errorf("backup.critical: %w", err))
		}
	}
	cleanerLists := map[string][]string{
		"cleaner.critical":      c.Cleaner.Critical,
		"cleaner.history_files": c.Cleaner.HistoryFiles,
		"cleaner.cache_dirs":    c.Cleaner.CacheDirs,
		"cleaner.icon_files":    c.Cleaner.IconFiles,
		"cleaner.session_files": c.Cleaner.SessionFiles,
	}
	for field, list := range cleanerLists {
		for _, rel := range list {
			if err := CheckRelative(rel); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", field, err))
			}
		}
	}
	if strings.ContainsRune(c.Cleaner.VersionBackups, filepath.Separator) {
		errs = append(errs, fmt.Errorf("cleaner.version_backups %q must match names, not paths", c.Cleaner.VersionBackups))
	} else if _, err := filepath.Match(c.Cleaner.VersionBackups, ""); err != nil {
		errs = append(errs, fmt.Errorf("cleaner.version_backups: %w", err))
	}
	if c.Cleaner.KeepBackups < 0 {
		errs = append(errs, errors.New("cleaner.keep_backups must not be negative"))
	}
	for i, s := range c.Settings {
		if s.Key == "" {
			errs = append(errs, fmt.Errorf("settings[%d] (%s) has no key", i, s.Name))
		}
	}
	switch c.Preferences.Converter {
	case "", "native", "plutil":
	default:
		errs = append(errs, fmt.Errorf("preferences.converter %q is not one of native, plutil", c.Preferences.Converter))
	}

	return errors.Join(errs...)
}

// CheckRelative reports whether rel is a clean path that stays inside the
// directory it is joined to.
func CheckRelative(rel string) error {
	if rel == "" {
		return errors.New("empty path")
	}
	if filepath.IsAbs(rel) {
		return fmt.Errorf("%q must be relative", rel)
	}
	clean := filepath.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%q escapes its root", rel)
	}
	return nil
}
