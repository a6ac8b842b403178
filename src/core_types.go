package main

import (
	"time"
)

// Class is the bucket a file is routed to, decided once from its extension.
type Class int

const (
	ClassImage Class = iota
	ClassVideo
	ClassSidecar
	ClassOther
)

// String returns the lowercase class name used in logs.
func (c Class) String() string {
	return [...]string{"image", "video", "sidecar", "other"}[c]
}

// FileEntry is one regular file visited by the walker.
type FileEntry struct {
	Path  string
	Class Class
	Ext   string // lowercased, with leading dot
	Size  int64
}

// MediaRecord is built only for images and videos. Fingerprint is empty for
// videos, which are identified by their file name.
type MediaRecord struct {
	FileEntry
	Captured    time.Time
	Fingerprint string
}

// DestinationCandidate is a path under consideration by the resolver. When
// IsDir is set the original base name is appended before any checks.
type DestinationCandidate struct {
	Path  string
	IsDir bool
}

// Route records why a file ended up where it did.
type Route string

const (
	RouteCanonical Route = "canonical"
	RouteDuplicate Route = "duplicate"
	RouteSymlink   Route = "symlink"
	RouteOther     Route = "other"
	RouteSidecar   Route = "sidecar"
)

// Outcome is the result of one placement.
type Outcome struct {
	Placed      bool
	Source      string
	Destination string
	Size        int64
	Err         error
	Warning     error // e.g. source removal failed after a confirmed copy
}

// ScanProgress tracks ingestion progress for the UI.
type ScanProgress struct {
	TotalFiles     int
	ProcessedFiles int
	Images         int
	Videos         int
	Sidecars       int
	Others         int
	Duplicates     int
	Errors         int
	CurrentFile    string
	LastWarning    string
}

// Summary is the end-of-run report, computed from the run index.
type Summary struct {
	RunID      string
	RunDate    string
	DryRun     bool
	Placed     map[string]int // bucket -> files
	Bytes      int64
	Duplicates int
	Errors     int
	Skipped    int
	Duration   time.Duration
}

// Total returns the number of files placed across all buckets.
func (s Summary) Total() int {
	n := 0
	for _, v := range s.Placed {
		n += v
	}
	return n
}
