package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/spf13/afero"
)

// MetadataReader reads the capture time embedded in a media file. Any failure
// is reported wrapped around ErrNoMetadata.
type MetadataReader interface {
	CaptureTime(path string) (time.Time, error)
	Close() error
}

// exifReader decodes EXIF blocks with goexif (JPEG, TIFF and TIFF-based RAW).
type exifReader struct {
	fs afero.Fs
}

func newExifReader(fs afero.Fs) *exifReader {
	return &exifReader{fs: fs}
}

func (r *exifReader) CaptureTime(path string) (time.Time, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNoMetadata, err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		// No EXIF data or decode failed
		return time.Time{}, fmt.Errorf("%w: %v", ErrNoMetadata, err)
	}

	tm, err := x.DateTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNoMetadata, err)
	}
	return tm, nil
}

func (r *exifReader) Close() error { return nil }

// exiftoolTags are tried in order; the first parseable value wins.
var exiftoolTags = []string{"DateTimeOriginal", "CreateDate", "MediaCreateDate", "TrackCreateDate"}

var exiftoolLayouts = []string{
	"2006:01:02 15:04:05-07:00",
	"2006:01:02 15:04:05Z07:00",
	"2006:01:02 15:04:05.000",
	"2006:01:02 15:04:05",
}

// exiftoolReader shells out to a long-lived exiftool process. It understands
// video containers and RAW formats goexif cannot parse.
type exiftoolReader struct {
	et *exiftool.Exiftool
}

func newExiftoolReader() (*exiftoolReader, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, err
	}
	return &exiftoolReader{et: et}, nil
}

func (r *exiftoolReader) CaptureTime(path string) (time.Time, error) {
	fms := r.et.ExtractMetadata(path)
	if len(fms) == 0 {
		return time.Time{}, ErrNoMetadata
	}
	fm := fms[0]
	if fm.Err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNoMetadata, fm.Err)
	}

	for _, tag := range exiftoolTags {
		s, err := fm.GetString(tag)
		if err != nil || strings.TrimSpace(s) == "" {
			continue
		}
		if tm, ok := parseExiftoolDate(s); ok {
			return tm, nil
		}
	}
	return time.Time{}, ErrNoMetadata
}

func (r *exiftoolReader) Close() error {
	return r.et.Close()
}

func parseExiftoolDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range exiftoolLayouts {
		if tm, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return tm, true
		}
	}
	return time.Time{}, false
}

// nullReader never has metadata.
type nullReader struct{}

func (nullReader) CaptureTime(string) (time.Time, error) { return time.Time{}, ErrNoMetadata }
func (nullReader) Close() error { return nil }

// chainReader asks each reader in turn.
type chainReader []MetadataReader

func (c chainReader) CaptureTime(path string) (time.Time, error) {
	errs := make([]error, 0, len(c))
	for _, r := range c {
		tm, err := r.CaptureTime(path)
		if err == nil {
			return tm, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return time.Time{}, ErrNoMetadata
	}
	return time.Time{}, errors.Join(errs...)
}

func (c chainReader) Close() error {
	var errs []error
	for _, r := range c {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newMetadataReader builds the reader chain for a run. A missing exiftool
// binary is not fatal; the warning is returned for the caller to log.
func newMetadataReader(fs afero.Fs, useExiftool bool) (MetadataReader, error) {
	readers := chainReader{newExifReader(fs)}
	if !useExiftool {
		return readers, nil
	}
	et, err := newExiftoolReader()
	if err != nil {
		return readers, fmt.Errorf("exiftool unavailable, using EXIF only: %w", err)
	}
	return append(readers, et), nil
}
