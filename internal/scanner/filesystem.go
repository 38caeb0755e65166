package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
)

// FileSystemScanner implements Scanner interface for filesystem scanning
type FileSystemScanner struct {
	fsys         fs.FS
	metadataFile string
	only         map[string]bool
}

// NewFileSystemScanner creates a new filesystem scanner. When only is not
// empty, directories not listed in it are ignored.
func NewFileSystemScanner(fsys fs.FS, metadataFile string, only []string) *FileSystemScanner {
	s := &FileSystemScanner{
		fsys:         fsys,
		metadataFile: metadataFile,
	}
	if len(only) > 0 {
		s.only = make(map[string]bool, len(only))
		for _, name := range only {
			s.only[name] = true
		}
	}
	return s
}

// Scan lists every package directory in dir. The metadata file itself is
// not required to exist.
func (s *FileSystemScanner) Scan(ctx context.Context, dir string) ([]ScannedPackage, error) {
	entries, err := fs.ReadDir(s.fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	var packages []ScannedPackage
	for _, entry := range entries {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		name := entry.Name()

		// Hidden entries are never packages
		if strings.HasPrefix(name, ".") {
			continue
		}

		if s.only != nil && !s.only[name] {
			continue
		}

		isDir, err := s.isDir(path.Join(dir, name), entry)
		if err != nil {
			logrus.Warnf("Failed to stat %s: %v", name, err)
			continue
		}
		if !isDir {
			continue
		}

		logrus.Debugf("Found package directory: %s", name)

		packages = append(packages, ScannedPackage{
			Name: name,
			Path: path.Join(dir, name, s.metadataFile),
		})
	}

	if s.only != nil {
		for name := range s.only {
			if !containsPackage(packages, name) {
				logrus.Warnf("Package %s not found in %s", name, dir)
			}
		}
	}

	logrus.Debugf("Found %d packages in %s", len(packages), dir)
	return packages, nil
}

// isDir follows symlinks, which DirEntry does not
func (s *FileSystemScanner) isDir(p string, entry fs.DirEntry) (bool, error) {
	if entry.IsDir() {
		return true, nil
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false, nil
	}
	info, err := fs.Stat(s.fsys, p)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func containsPackage(packages []ScannedPackage, name string) bool {
	for _, p := range packages {
		if p.Name == name {
			return true
		}
	}
	return false
}
