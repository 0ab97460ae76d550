package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models/pythia
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// PathExists checks if the given path exists.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// IsRegularFile reports whether path exists and is a regular file.
func IsRegularFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// CopyFileIfMissing copies src to dst unless dst already exists.
// It returns true when a copy was made. Existing files are never overwritten.
func CopyFileIfMissing(src, dst string) (bool, error) {
	if _, err := os.Stat(dst); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	in, err := os.Open(src)
	if err != nil {
		return false, err
	}
	defer in.Close()
	err = WriteAtomic(dst, func(w io.Writer) error {
		_, cerr := io.Copy(w, in)
		return cerr
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// WriteAtomic writes dst through a temp file in the same directory and renames
// it into place once write succeeds and the data is synced. A crash midway
// leaves only a "<name>.tmp-*" file behind, never a partial dst.
func WriteAtomic(dst string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(dst)
	f, err := os.CreateTemp(dir, filepath.Base(dst)+TempSuffix+"*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()
	if err = write(f); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

// TempSuffix marks in-progress files written by WriteAtomic.
const TempSuffix = ".tmp-"

// RemoveStaleTemps deletes leftovers of interrupted WriteAtomic calls for base
// inside dir. It returns the number of files removed.
func RemoveStaleTemps(dir, base string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, base+TempSuffix+"*"))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range matches {
		if err := os.Remove(m); err == nil {
			n++
		}
	}
	return n, nil
}
