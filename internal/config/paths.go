package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout is the set of absolute locations a run works with.
type Layout struct {
	// Home is the user's home directory.
	Home string

	// Profile is the browser data directory used by the optimizer.
	Profile string

	// Defaults is the per-profile directory the cleaner prunes.
	Defaults string

	// Sibling is another browser's data directory, used for comparison only.
	Sibling string

	// CrashLogs holds the system's per-app crash and hang reports.
	CrashLogs string

	// BackupParent is where timestamped backup snapshots are created.
	BackupParent string

	// Preferences is the browser preference file.
	Preferences string

	// ProxyPreferences is the app-level preference domain that may carry
	// proxy configuration.
	ProxyPreferences string
}

// expand resolves p against home unless it is already absolute.
func expand(home, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(home, p)
}

// Resolve builds the Layout for the current user.
func (c *Config) Resolve() (Layout, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Layout{}, fmt.Errorf("cannot determine home directory: %w", err)
	}
	return c.ResolveAt(home), nil
}

// ResolveAt builds the Layout relative to an explicit home directory.
func (c *Config) ResolveAt(home string) Layout {
	profile := expand(home, c.Paths.Profile)
	return Layout{
		Home:             home,
		Profile:          profile,
		Defaults:         expand(home, c.Paths.Defaults),
		Sibling:          expand(home, c.Paths.Sibling),
		CrashLogs:        expand(home, c.Paths.CrashLogs),
		BackupParent:     expand(home, c.Paths.BackupParent),
		Preferences:      filepath.Join(profile, c.Preferences.File),
		ProxyPreferences: expand(home, c.Paths.ProxyPreferences),
	}
}

// NeverDelete returns paths that no cleanup may remove, whatever an
// allow-list says: the roots themselves and every critical item.
func (c *Config) NeverDelete(l Layout) []string {
	paths := []string{
		l.Home,
		l.Profile,
		l.Defaults,
		l.Sibling,
		l.BackupParent,
		l.Preferences,
	}
	for _, name := range c.Backup.Critical {
		paths = append(paths, filepath.Join(l.Profile, name))
	}
	for _, name := range c.Cleaner.Critical {
		paths = append(paths, filepath.Join(l.Defaults, name))
	}
	return paths
}
