package main

import (
	"time"

	"github.com/spf13/afero"
)

// ResolveCaptureTime picks the timestamp a media file is filed under. The
// modification time is always read; an embedded capture time replaces it only
// when it looks real and predates the modification time (a later mtime means
// the file was copied after it was shot).
func ResolveCaptureTime(fs afero.Fs, reader MetadataReader, path string) (time.Time, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return time.Time{}, ioErr("stat", path, err)
	}
	mtime := info.ModTime()

	if reader == nil {
		return mtime, nil
	}
	embedded, err := reader.CaptureTime(path)
	if err != nil {
		return mtime, nil
	}
	if isPlaceholder(embedded) || !embedded.Before(mtime) {
		return mtime, nil
	}
	return embedded, nil
}

// isPlaceholder reports clocks that were never set: the zero time, the Unix
// epoch and anything earlier (QuickTime stores 1904-01-01 for "unknown").
func isPlaceholder(t time.Time) bool {
	return t.IsZero() || t.Unix() <= 0
}
