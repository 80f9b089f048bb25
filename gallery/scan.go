package gallery

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
)

// Selector decides which source files are gallery candidates. All checks are lexical.
type Selector struct {
	// Extensions are matched exactly, case variants included, e.g. ".jpg" and ".JPG".
	Extensions []string
	// CapturePrefix is the camera naming scheme a stem must start with, e.g. "IMG_".
	CapturePrefix string
	// DuplicateMarker marks a second copy of a capture when found anywhere in the stem, e.g. " 2".
	DuplicateMarker string
}

// Match reports whether a file name is a candidate.
func (s Selector) Match(name string) bool {
	ext := filepath.Ext(name)
	if !slices.Contains(s.Extensions, ext) {
		return false
	}
	stem := strings.TrimSuffix(name, ext)
	if s.DuplicateMarker != "" && strings.Contains(stem, s.DuplicateMarker) {
		return false
	}
	return strings.HasPrefix(stem, s.CapturePrefix)
}

// List returns the candidate file names in dir, sorted lexicographically.
// A directory that is missing, not a directory or unreadable yields no candidates.
func (s Selector) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("source directory does not exist", "dir", dir)
		return nil, nil
	case errors.Is(err, syscall.ENOTDIR):
		slog.Warn("source path is not a directory", "dir", dir)
		return nil, nil
	case errors.Is(err, fs.ErrPermission):
		slog.Warn("source directory is not readable", "dir", dir, "err", err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !s.Match(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	slices.Sort(names)
	return names, nil
}

// listByExt returns the regular files in dir with the given extension, sorted.
func listByExt(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ext {
			continue
		}
		names = append(names, entry.Name())
	}
	slices.Sort(names)
	return names, nil
}
