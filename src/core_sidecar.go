package main

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// sidecarMatch is an .xmp file belonging to an image. full is set when it is
// named after the whole image name ("a.CR2.xmp") rather than its stem
// ("a.xmp").
type sidecarMatch struct {
	Path string
	Size int64
	full bool
}

// findSidecars lists the sidecars of imageBase in dir, in name order.
func findSidecars(fs afero.Fs, dir, imageBase string) ([]sidecarMatch, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, ioErr("readdir", dir, err)
	}

	imageStem := strings.TrimSuffix(imageBase, filepath.Ext(imageBase))
	var out []sidecarMatch
	for _, fi := range entries {
		if !fi.Mode().IsRegular() {
			continue
		}
		name := fi.Name()
		ext := filepath.Ext(name)
		if strings.ToLower(ext) != sidecarExtension {
			continue
		}
		switch strings.TrimSuffix(name, ext) {
		case imageBase:
			out = append(out, sidecarMatch{Path: filepath.Join(dir, name), Size: fi.Size(), full: true})
		case imageStem:
			out = append(out, sidecarMatch{Path: filepath.Join(dir, name), Size: fi.Size()})
		}
	}
	return out, nil
}

// sidecarName follows the image's new name: "<new-name>.xmp" or
// "<new-stem>.xmp".
func sidecarName(m sidecarMatch, newImageBase string) string {
	if m.full {
		return newImageBase + sidecarExtension
	}
	return strings.TrimSuffix(newImageBase, filepath.Ext(newImageBase)) + sidecarExtension
}

// hasImageFor reports whether the directory holding sidecar also holds an
// image the sidecar is named after.
func (s *Session) hasImageFor(sidecar string) bool {
	dir := filepath.Dir(sidecar)
	name := filepath.Base(sidecar)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return false
	}
	for _, fi := range entries {
		if !fi.Mode().IsRegular() {
			continue
		}
		other := fi.Name()
		if s.classifier.classify(other).Class != ClassImage {
			continue
		}
		if other == stem || strings.TrimSuffix(other, filepath.Ext(other)) == stem {
			return true
		}
	}
	return false
}

// carrySidecars moves the sidecars of an image that was just placed next to
// it. A failing sidecar never affects the image or the other sidecars.
func (s *Session) carrySidecars(imageSrc, imageDst string) error {
	oldBase := filepath.Base(imageSrc)
	newBase := filepath.Base(imageDst)

	matches, err := findSidecars(s.fs, filepath.Dir(imageSrc), oldBase)
	if err != nil {
		s.logger.Warn("cannot look for sidecars", "image", imageSrc, "err", err)
		return nil
	}

	for _, m := range matches {
		cand := DestinationCandidate{Path: filepath.Join(filepath.Dir(imageDst), sidecarName(m, newBase))}
		final, route, err := s.resolve(cand, m.Path, false)
		if err != nil {
			return err
		}
		if route == RouteCanonical {
			route = RouteSidecar
		}

		var out Outcome
		if oldBase != newBase {
			out = s.rewriteSidecar(m, final, oldBase, newBase)
		} else {
			out = s.place(m.Path, final, m.Size)
		}
		if err := s.commit(ClassSidecar, out, route); err != nil {
			return err
		}
	}
	return nil
}

// keepSidecars journals the sidecars of an image that was left in place.
// They stay next to it.
func (s *Session) keepSidecars(imageSrc string) error {
	matches, err := findSidecars(s.fs, filepath.Dir(imageSrc), filepath.Base(imageSrc))
	if err != nil {
		s.logger.Warn("cannot look for sidecars", "image", imageSrc, "err", err)
		return nil
	}
	for _, m := range matches {
		s.logger.Info("sidecar kept with its image", "src", m.Path, "image", imageSrc)
		err := s.index.Record(Placement{
			Source: m.Path, Bucket: bucketSidecar, Route: RouteSidecar, Size: m.Size, Status: statusSkipped,
		})
		if err != nil {
			return &ConfigError{Code: ErrCodeIndex, Path: m.Path, Err: err}
		}
	}
	return nil
}

// rewriteSidecar writes the sidecar to dst with every reference to the old
// image name replaced, then removes the source.
func (s *Session) rewriteSidecar(m sidecarMatch, dst, oldBase, newBase string) Outcome {
	out := Outcome{Source: m.Path, Destination: dst, Size: m.Size}
	if s.cfg.DryRun {
		out.Placed = true
		return out
	}

	info, err := s.fs.Stat(m.Path)
	if err != nil {
		out.Err = ioErr("stat", m.Path, err)
		return out
	}
	data, err := afero.ReadFile(s.fs, m.Path)
	if err != nil {
		out.Err = ioErr("read", m.Path, err)
		return out
	}
	data = bytes.ReplaceAll(data, []byte(oldBase), []byte(newBase))
	out.Size = int64(len(data))

	err = writeAtomic(s.fs, dst, info.Mode().Perm(), info, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		out.Err = err
		return out
	}
	out.Placed = true

	if err := s.fs.Remove(m.Path); err != nil {
		out.Warning = ioErr("remove", m.Path, err)
	}
	return out
}
