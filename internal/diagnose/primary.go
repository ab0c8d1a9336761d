package diagnose

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
	"github.com/lakshaymaurya-felt/oriondoctor/internal/impact"
)

const (
	manyExtensions      = 10
	lowDiskGB           = 5.0
	highMemoryPercent   = 80.0
	historyEntriesLimit = 10000
)

// ─── Helpers ─────────────────────────────────────────────────────────────────

// listVisible returns the entries of dir, skipping dot files. A missing
// directory yields found=false and no error.
func listVisible(dir string) (entries []os.DirEntry, found bool, err error) {
	all, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, true, err
	}
	for _, e := range all {
		if !strings.HasPrefix(e.Name(), ".") {
			entries = append(entries, e)
		}
	}
	return entries, true, nil
}

// fileSize returns the size of a regular file and whether it exists.
func fileSize(path string) (int64, bool) {
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0, false
	}
	return info.Size(), true
}

// ─── Primary checks ──────────────────────────────────────────────────────────

func (s *session) checkCaches(ctx context.Context) ([]string, error) {
	r := s.report
	var issues []string
	for _, name := range s.cfg.CacheDirs {
		if ctx.Err() != nil {
			return issues, ctx.Err()
		}
		path := filepath.Join(s.layout.Profile, name)
		if _, err := os.Lstat(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				r.Caches = append(r.Caches, CacheDir{Name: name, Path: path, Err: err})
				s.log.Warn("unable to read cache directory", "path", path, "error", err)
			}
			continue
		}

		size, err := core.PathSize(path)
		if err != nil {
			r.Caches = append(r.Caches, CacheDir{Name: name, Path: path, Err: err})
			s.log.Warn("unable to read cache directory", "path", path, "error", err)
			continue
		}
		mb := core.MB(size)
		cl := s.classifier.Classify(name, mb)
		r.Caches = append(r.Caches, CacheDir{Name: name, Path: path, Size: size, Class: cl})
		r.CacheTotal += size

		switch cl.Tier {
		case impact.TierHigh:
			issues = append(issues, fmt.Sprintf("Large %s directory (%.1f MB)", name, mb))
			r.recommend(fmt.Sprintf("Clean %s to improve performance", name))
		case impact.TierMedium:
			r.recommend(fmt.Sprintf("Monitor %s size", name))
		}
	}
	r.CacheStatus = impact.CacheStatusFor(core.MB(r.CacheTotal))
	return issues, nil
}

func (s *session) checkExtensionCount(_ context.Context) ([]string, error) {
	entries, found, err := listVisible(filepath.Join(s.layout.Profile, s.cfg.ExtensionsDir))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	s.report.Extensions = len(entries)
	if len(entries) > manyExtensions {
		return []string{fmt.Sprintf("Many extensions installed (%d)", len(entries))}, nil
	}
	return nil, nil
}

func (s *session) checkHistory(_ context.Context) ([]string, error) {
	r := s.report
	for _, name := range s.cfg.HistoryFiles {
		size, ok := fileSize(filepath.Join(s.layout.Profile, name))
		if !ok {
			continue
		}
		r.History = append(r.History, FileSize{Name: name, Size: size})
		r.HistoryTotal += size
	}

	mb := core.MB(r.HistoryTotal)
	r.HistoryStatus = impact.HistoryStatusFor(mb)
	r.EstimatedEntries = impact.EstimatedHistoryEntries(mb)

	var issues []string
	if r.HistoryStatus.Issue {
		issues = append(issues, fmt.Sprintf("Large history files (%.1f MB)", mb))
		r.recommend("Consider clearing old browsing history")
	}
	if r.EstimatedEntries > historyEntriesLimit {
		r.recommend("Reduce history retention period")
	}
	return issues, nil
}

func (s *session) checkDisk(ctx context.Context) ([]string, error) {
	free, err := s.probe.FreeDisk(ctx, s.layout.Home)
	if err != nil {
		return nil, err
	}
	s.report.FreeDisk = free
	s.report.FreeDiskKnown = true
	if gb := core.GB(free); gb < lowDiskGB {
		return []string{fmt.Sprintf("Low disk space (%.1f GB free)", gb)}, nil
	}
	return nil, nil
}

func (s *session) checkMemory(ctx context.Context) ([]string, error) {
	m, err := s.probe.Memory(ctx)
	if err != nil {
		return nil, err
	}
	s.report.Memory = m
	s.report.MemoryKnown = true
	if m.UsedPercent > highMemoryPercent {
		return []string{fmt.Sprintf("High memory usage (%.1f%%)", m.UsedPercent)}, nil
	}
	return nil, nil
}
