package core

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrProtectedPath is returned when a delete targets a protected location.
var ErrProtectedPath = errors.New("refusing to delete protected path")

// ErrSymlinkedParent is returned when a path below a root is reached
// through a symlinked directory.
var ErrSymlinkedParent = errors.New("path is reached through a symlink")

// Within reports whether path is root itself or lies below it. Both are
// cleaned before comparison; no symlinks are resolved.
func Within(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if root == path {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// CheckParents verifies that every directory between root and path is a
// real directory. The final component itself is not checked, and a missing
// component ends the walk without error.
func CheckParents(root, path string) error {
	root = filepath.Clean(root)
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil || !Within(root, path) {
		return fmt.Errorf("%s is outside %s", path, root)
	}

	dir := root
	for _, part := range strings.Split(filepath.Dir(rel), string(filepath.Separator)) {
		if part == "." || part == "" {
			continue
		}
		dir = filepath.Join(dir, part)
		info, err := os.Lstat(dir)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s", ErrSymlinkedParent, dir)
		}
	}
	return nil
}

// SafeDelete removes path (recursively for directories) and returns the
// number of bytes it occupied. Paths listed in protected, filesystem roots
// and empty paths are refused. In dryRun mode only the size is measured.
// A missing path returns fs.ErrNotExist.
func SafeDelete(path string, protected []string, dryRun bool) (int64, error) {
	clean := filepath.Clean(path)
	if path == "" || clean == string(filepath.Separator) || clean == "." {
		return 0, fmt.Errorf("%w: %q", ErrProtectedPath, path)
	}
	for _, p := range protected {
		if p != "" && filepath.Clean(p) == clean {
			return 0, fmt.Errorf("%w: %s", ErrProtectedPath, path)
		}
	}

	info, err := os.Lstat(clean)
	if err != nil {
		return 0, err
	}

	size, err := PathSize(clean)
	if err != nil {
		return 0, err
	}
	if dryRun {
		return size, nil
	}

	if info.IsDir() {
		err = os.RemoveAll(clean)
	} else {
		err = os.Remove(clean)
	}
	if err != nil {
		return 0, err
	}
	return size, nil
}

// CopyFile copies a regular file, preserving its permission bits and
// modification time. The destination directory must exist.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// CopyTree copies src to dst. Directories are copied recursively and merged
// into an existing destination; symlinks are recreated, not followed.
func CopyTree(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		if info.Mode()&os.ModeSymlink != 0 {
			return copySymlink(src, dst)
		}
		return CopyFile(src, dst)
	}

	return filepath.WalkDir(src, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			fi, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, fi.Mode().Perm()|0o700)
		case d.Type()&os.ModeSymlink != 0:
			return copySymlink(p, target)
		case d.Type().IsRegular():
			return CopyFile(p, target)
		default:
			// Sockets, devices and pipes have no place in a profile backup.
			return nil
		}
	})
}

func copySymlink(src, dst string) error {
	link, err := os.Readlink(src)
	if err != nil {
		return err
	}
	_ = os.Remove(dst)
	return os.Symlink(link, dst)
}
