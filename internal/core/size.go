package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

const (
	bytesPerMB = 1024 * 1024
	bytesPerGB = 1024 * 1024 * 1024
)

// FormatSize renders a byte count in binary units ("1.5 GiB").
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatMB renders a byte count as megabytes with one decimal ("12.3 MB"),
// the unit every threshold table is expressed in.
func FormatMB(bytes int64) string {
	return fmt.Sprintf("%.1f MB", MB(bytes))
}

// MB converts bytes to (binary) megabytes.
func MB(bytes int64) float64 {
	return float64(bytes) / bytesPerMB
}

// GB converts bytes to (binary) gigabytes.
func GB(bytes uint64) float64 {
	return float64(bytes) / bytesPerGB
}

// PathSize returns the size of a file, or the total size of the regular
// files below a directory. Symlinks are not followed. Unreadable entries
// below the root are skipped; only a failure on the root itself is an error.
func PathSize(path string) (int64, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		if info.Mode().IsRegular() {
			return info.Size(), nil
		}
		return 0, nil
	}

	var total int64
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == path {
				return walkErr
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		total += fi.Size()
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipDir) {
		return total, err
	}
	return total, nil
}
