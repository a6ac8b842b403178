package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const sidecarExtension = ".xmp"

// classifier maps a lowercased extension to a Class.
type classifier struct {
	images map[string]bool
	videos map[string]bool
}

func newClassifier(cfg *Config) classifier {
	c := classifier{
		images: make(map[string]bool, len(cfg.ImageExtensions)),
		videos: make(map[string]bool, len(cfg.VideoExtensions)),
	}
	for _, e := range cfg.ImageExtensions {
		c.images[e] = true
	}
	for _, e := range cfg.VideoExtensions {
		c.videos[e] = true
	}
	return c
}

// classify detects the class of a file from its extension
func (c classifier) classify(path string) FileEntry {
	ext := strings.ToLower(filepath.Ext(path))
	e := FileEntry{Path: path, Ext: ext, Class: ClassOther}

	switch {
	case c.images[ext]:
		e.Class = ClassImage
	case c.videos[ext]:
		e.Class = ClassVideo
	case ext == sidecarExtension:
		e.Class = ClassSidecar
	}
	return e
}

// walk visits every regular file below root depth-first: the files of a
// directory in name order, then its subdirectories. Symlinks are never
// followed and destination roots are not entered.
func (s *Session) walk(root string, visit func(FileEntry) error) error {
	stack := []string{root}

	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := afero.ReadDir(s.fs, dir)
		if err != nil {
			if dir == root {
				return &ConfigError{Code: ErrCodeBadRoot, Path: root, Err: err}
			}
			s.logger.Warn("cannot read directory", "dir", dir, "err", err)
			continue
		}

		var subdirs []string
		for _, fi := range entries {
			path := filepath.Join(dir, fi.Name())

			if fi.Mode()&os.ModeSymlink != 0 {
				s.logger.Debug("skipping symlink", "path", path)
				continue
			}
			if fi.IsDir() {
				if s.isDestinationRoot(path) {
					s.logger.Debug("skipping destination root", "dir", path)
					continue
				}
				subdirs = append(subdirs, path)
				continue
			}
			if !fi.Mode().IsRegular() {
				continue
			}

			e := s.classifier.classify(path)
			e.Size = fi.Size()
			if err := visit(e); err != nil {
				return err
			}
		}

		// Reverse push keeps the first subdirectory on top.
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}
	return nil
}

func (s *Session) isDestinationRoot(dir string) bool {
	for _, r := range []string{
		s.cfg.LibraryBase, s.layout.ImageRoot, s.layout.VideoRoot,
		s.layout.NonImageRoot, s.layout.DuplicateRoot, s.layout.FailedRoot,
	} {
		if r != "" && filepath.Clean(r) == dir {
			return true
		}
	}
	return false
}

// CountFiles returns the number of files a run over root would visit.
func (s *Session) CountFiles(root string) (int, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return 0, &ConfigError{Code: ErrCodeBadRoot, Path: root, Err: err}
	}
	n := 0
	err = s.walk(root, func(FileEntry) error {
		n++
		return nil
	})
	return n, err
}

// pruneEmpty removes source directories left empty by the run, deepest
// first. The root itself stays.
func (s *Session) pruneEmpty(root string) int {
	var dirs []string
	stack := []string{root}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		entries, err := afero.ReadDir(s.fs, dir)
		if err != nil {
			continue
		}
		for _, fi := range entries {
			path := filepath.Join(dir, fi.Name())
			if fi.IsDir() && fi.Mode()&os.ModeSymlink == 0 && !s.isDestinationRoot(path) {
				dirs = append(dirs, path)
				stack = append(stack, path)
			}
		}
	}

	// Parents are listed before their children.
	removed := 0
	for i := len(dirs) - 1; i >= 0; i-- {
		empty, err := afero.IsEmpty(s.fs, dirs[i])
		if err != nil || !empty {
			continue
		}
		if err := s.fs.Remove(dirs[i]); err != nil {
			s.logger.Warn("cannot remove empty directory", "dir", dirs[i], "err", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("pruned empty directories", "count", removed)
	}
	return removed
}
