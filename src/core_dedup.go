package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// resolve walks a candidate until it reaches a destination that is safe to
// write. With dedup unset an occupied destination is returned as is and the
// relocator refuses it; the non-media bucket works that way.
func (s *Session) resolve(cand DestinationCandidate, original string, dedup bool) (string, Route, error) {
	base := filepath.Base(original)
	route := RouteCanonical
	redirected := make(map[string]bool)
	firstColliding := ""

	for {
		path := cand.Path
		if cand.IsDir || s.isDir(path) {
			path = filepath.Join(path, base)
		}

		if s.symlinkHazard(path) {
			target := filepath.Join(s.layout.FailedRoot, base)
			if redirected[target] {
				return "", route, &ConfigError{
					Code: ErrCodeFailedRoot,
					Path: s.layout.FailedRoot,
					Err:  fmt.Errorf("%s redirected to itself", original),
				}
			}
			redirected[target] = true
			s.logger.Warn("destination is a symlink, redirecting", "src", original, "dst", path, "to", target)
			route = RouteSymlink
			cand = DestinationCandidate{Path: target}
			continue
		}

		if !dedup {
			return path, route, nil
		}

		dup, err := s.collides(path)
		if err != nil {
			return "", route, err
		}
		if dup {
			s.dupCounter++
			s.stats.Duplicates++
			if firstColliding == "" {
				firstColliding = filepath.Base(path)
			}
			next := filepath.Join(s.layout.DuplicateRoot, duplicateName(base, firstColliding, s.dupCounter))
			s.logger.Warn("duplicate", "src", original, "collides", path, "to", next, "n", s.dupCounter)
			route = RouteDuplicate
			cand = DestinationCandidate{Path: next}
			continue
		}

		return path, route, nil
	}
}

// collides reports an occupied destination: something on disk, a fingerprint
// already filed under the image root, or (dry-run) a path handed out earlier.
func (s *Session) collides(path string) (bool, error) {
	if _, err := lstat(s.fs, path); err == nil {
		return true, nil
	}

	if isUnder(path, s.layout.ImageRoot) {
		seen, err := s.index.Seen(FingerprintSuffix(filepath.Base(path)))
		if err != nil {
			return false, &ConfigError{Code: ErrCodeIndex, Path: path, Err: err}
		}
		if seen {
			return true, nil
		}
	}

	if s.cfg.DryRun {
		claimed, err := s.index.Claimed(path)
		if err != nil {
			return false, &ConfigError{Code: ErrCodeIndex, Path: path, Err: err}
		}
		return claimed, nil
	}
	return false, nil
}

func (s *Session) isDir(path string) bool {
	fi, err := s.fs.Stat(path)
	return err == nil && fi.IsDir()
}

// symlinkHazard reports whether path or its parent directory is a symbolic
// link. Higher ancestors are trusted; the library itself may live behind one.
func (s *Session) symlinkHazard(path string) bool {
	return isSymlink(s.fs, path) || isSymlink(s.fs, filepath.Dir(path))
}

func lstat(fs afero.Fs, path string) (os.FileInfo, error) {
	if l, ok := fs.(afero.Lstater); ok {
		fi, _, err := l.LstatIfPossible(path)
		return fi, err
	}
	return fs.Stat(path)
}

func isSymlink(fs afero.Fs, path string) bool {
	fi, err := lstat(fs, path)
	return err == nil && fi.Mode()&os.ModeSymlink != 0
}
