// Package filex holds small filesystem helpers for the CLI.
package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates dir (and parents) with owner-only permissions. A relative
// dir is resolved against the working directory. The absolute path is
// returned.
func EnsureDir(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// ErrTooLarge is returned by ReadFile when the file is over the size limit.
var ErrTooLarge = errors.New("file too large")

// ReadFile returns the content of path and its modification time in Unix
// milliseconds. Files larger than maxSize bytes are rejected before any of
// the content is read; maxSize <= 0 disables the check.
func ReadFile(path string, maxSize int64) ([]byte, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("%s: is a directory", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, 0, fmt.Errorf("%s: %w", path, ErrTooLarge)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	return data, info.ModTime().UnixMilli(), nil
}
