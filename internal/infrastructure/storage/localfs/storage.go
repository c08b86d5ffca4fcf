package localfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// Storage is the local filesystem implementation of ports.FileStore.
type Storage struct {
	dirMode fs.FileMode
}

func New() *Storage {
	return &Storage{dirMode: 0o755}
}

func (s *Storage) ListFiles(root, exclude string) ([]string, error) {
	var excludeAbs string
	if exclude != "" {
		abs, err := filepath.Abs(exclude)
		if err != nil {
			return nil, fmt.Errorf("resolve excluded dir: %w", err)
		}
		excludeAbs = abs
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// unreadable entries below the root are skipped
			return nil
		}
		if d.IsDir() {
			if excludeAbs != "" && path != root {
				if abs, absErr := filepath.Abs(path); absErr == nil && abs == excludeAbs {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

func (s *Storage) EnsureDir(path string) error {
	if err := os.MkdirAll(path, s.dirMode); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	return nil
}

func (s *Storage) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

// Move moves src to dst without ever replacing an existing dst. On one
// filesystem it hard-links and unlinks the source; across filesystems, or
// where links are unsupported, it copies and removes.
func (s *Storage) Move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), s.dirMode); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}
	err := os.Link(src, dst)
	switch {
	case err == nil:
		if err := os.Remove(src); err != nil {
			_ = os.Remove(dst)
			return fmt.Errorf("remove source after link: %w", err)
		}
		return nil
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("move %s: %w", dst, err)
	case !linkUnsupported(err):
		return fmt.Errorf("link: %w", err)
	}

	if err := copyFile(src, dst); err != nil {
		if !errors.Is(err, fs.ErrExist) {
			_ = os.Remove(dst)
		}
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

func linkUnsupported(err error) bool {
	return errors.Is(err, syscall.EXDEV) ||
		errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.ENOTSUP) ||
		errors.Is(err, syscall.EMLINK)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}
