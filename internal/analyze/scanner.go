// Package analyze builds a read-only disk-usage tree of a browser profile.
package analyze

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DirEntry represents a file or directory in the scan tree.
type DirEntry struct {
	Path     string
	Name     string
	Size     int64
	IsDir    bool
	Children []*DirEntry
	Parent   *DirEntry
	ModTime  time.Time
	Scanned  bool
}

// IsStale reports whether the entry has not been modified for the given age.
func (e *DirEntry) IsStale(age time.Duration) bool {
	return time.Since(e.ModTime) > age
}

// Child returns the direct child called name, or nil.
func (e *DirEntry) Child(name string) *DirEntry {
	for _, c := range e.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

const maxWarnings = 500

// Scanner performs a recursive directory scan with bounded read
// concurrency. It never modifies the tree it reads.
type Scanner struct {
	sem          chan struct{}
	exclude      map[string]bool
	mu           sync.Mutex
	warnings     []string
	scannedCount atomic.Int64
}

// NewScanner creates a scanner with bounded concurrency.
// exclude is a list of directory names (case-insensitive) to skip.
func NewScanner(maxConcurrency int, exclude []string) *Scanner {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	excMap := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		excMap[strings.ToLower(e)] = true
	}
	return &Scanner{
		sem:     make(chan struct{}, maxConcurrency),
		exclude: excMap,
	}
}

// Warnings returns any warnings accumulated during scanning.
func (s *Scanner) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.warnings...)
}

// ScannedCount returns the number of entries scanned so far.
func (s *Scanner) ScannedCount() int64 {
	return s.scannedCount.Load()
}

func (s *Scanner) addWarning(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.warnings) < maxWarnings {
		s.warnings = append(s.warnings, msg)
	}
}

// Scan walks rootPath and returns its tree with sizes summed bottom-up and
// every level sorted by size, largest first. Symlinks are listed but never
// followed. A cancelled ctx stops descending and returns ctx.Err().
func (s *Scanner) Scan(ctx context.Context, rootPath string) (*DirEntry, error) {
	rootPath = filepath.Clean(rootPath)

	info, err := os.Lstat(rootPath)
	if err != nil {
		return nil, err
	}

	root := &DirEntry{
		Path:    rootPath,
		Name:    info.Name(),
		IsDir:   info.IsDir(),
		ModTime: info.ModTime(),
	}

	if !info.IsDir() {
		root.Size = info.Size()
		root.Scanned = true
		return root, nil
	}

	s.scanDir(ctx, root)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	calculateSizes(root)
	root.Scanned = true

	return root, nil
}

// scanDir holds the semaphore only during ReadDir so nested goroutines
// cannot deadlock waiting on their parents.
func (s *Scanner) scanDir(ctx context.Context, entry *DirEntry) {
	if ctx.Err() != nil {
		return
	}

	s.sem <- struct{}{}
	entries, err := os.ReadDir(entry.Path)
	<-s.sem

	if err != nil {
		s.addWarning("cannot read " + entry.Path + ": " + err.Error())
		return
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, e := range entries {
		childPath := filepath.Join(entry.Path, e.Name())
		s.scannedCount.Add(1)

		if e.IsDir() && s.exclude[strings.ToLower(e.Name())] {
			continue
		}

		info, err := e.Info()
		if err != nil {
			s.addWarning("cannot stat " + childPath + ": " + err.Error())
			continue
		}

		child := &DirEntry{
			Path:    childPath,
			Name:    e.Name(),
			IsDir:   e.IsDir(),
			Parent:  entry,
			ModTime: info.ModTime(),
		}

		switch {
		case e.Type()&os.ModeSymlink != 0:
			child.Scanned = true
		case !e.IsDir():
			child.Size = info.Size()
			child.Scanned = true
		default:
			wg.Add(1)
			go func(dir *DirEntry) {
				defer wg.Done()
				s.scanDir(ctx, dir)
				dir.Scanned = true
			}(child)
		}

		mu.Lock()
		entry.Children = append(entry.Children, child)
		mu.Unlock()
	}

	wg.Wait()
}

// calculateSizes sums sizes from children, then sorts each level by size
// descending and by name for equal sizes.
func calculateSizes(entry *DirEntry) {
	if !entry.IsDir {
		return
	}

	var total int64
	for _, child := range entry.Children {
		calculateSizes(child)
		total += child.Size
	}
	entry.Size = total

	sort.Slice(entry.Children, func(i, j int) bool {
		a, b := entry.Children[i], entry.Children[j]
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		return a.Name < b.Name
	})
}
