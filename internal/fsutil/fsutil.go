// Package fsutil holds the filesystem helpers shared by provisioning and verification.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"acfgen/internal/logger"
)

// FindFirst walks root and returns the path of the first regular file whose base
// name equals one of names. Walk order is lexical, so results are deterministic.
// Unreadable subdirectories are skipped. found is false when nothing matched.
func FindFirst(root string, names ...string) (path string, found bool, err error) {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == root {
				return walkErr
			}
			logger.Debug("[DEBUG] Skipping %s: %v\n", p, walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := want[d.Name()]; ok && d.Type().IsRegular() {
			path, found = p, true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return path, found, nil
}

// NonEmptyFile reports whether path is a regular file with nonzero size.
func NonEmptyFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Exists reports whether anything exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CopyFile copies a file from src to dst, creating missing parent directories.
// The destination gets mode when nonzero, otherwise the source's permissions.
func CopyFile(src, dst string, mode os.FileMode) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source failed: %w", err)
	}
	defer in.Close()

	if mode == 0 {
		info, err := in.Stat()
		if err != nil {
			return fmt.Errorf("stat source failed: %w", err)
		}
		mode = info.Mode().Perm()
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir failed: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create target failed: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}
	// OpenFile only applies mode on creation; force it for pre-existing targets.
	return os.Chmod(dst, mode)
}

// MakeExecutable adds the execute bits for everyone who can read the file.
func MakeExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	perm := info.Mode().Perm()
	return os.Chmod(path, perm|(perm&0o444)>>2|0o100)
}

// RemoveQuietly deletes path, ignoring "does not exist".
func RemoveQuietly(path string) {
	if err := os.RemoveAll(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Debug("[DEBUG] Failed to remove %s: %v\n", path, err)
	}
}
