package main

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	runDateLayout   = "2006-01-02"
	timestampLayout = "20060102-150405"
	fingerprintSep  = "--"
)

// Layout is the set of destination roots for one run, plus the run-date
// bucket every canonical placement lands in.
type Layout struct {
	ImageRoot     string
	VideoRoot     string
	NonImageRoot  string
	DuplicateRoot string
	FailedRoot    string
	RunDate       string
}

// BuildDestination returns the canonical destination of a media file. It
// touches nothing on disk.
func BuildDestination(l Layout, class Class, captured time.Time, fingerprint, originalBase string) string {
	ext := filepath.Ext(originalBase)
	stem := strings.TrimSuffix(originalBase, ext)
	ext = strings.ToLower(ext)
	ts := captured.Local().Format(timestampLayout)

	switch class {
	case ClassImage:
		name := ts + fingerprintSep + stem + fingerprintSep + fingerprint + ext
		return filepath.Join(l.ImageRoot, l.RunDate, name)
	case ClassVideo:
		return filepath.Join(l.VideoRoot, l.RunDate, ts+"_"+stem+ext)
	default:
		return filepath.Join(l.NonImageRoot, originalBase)
	}
}

// FingerprintSuffix returns the part of a canonical image name after the last
// "--", extension included. Names without a separator are their own suffix.
func FingerprintSuffix(base string) string {
	i := strings.LastIndex(base, fingerprintSep)
	if i < 0 {
		return base
	}
	return base[i+len(fingerprintSep):]
}

// duplicateName builds the quarantine name for the n-th duplicate. The
// colliding destination name is kept for reference when it differs from the
// original one.
func duplicateName(originalBase, collidingBase string, n int) string {
	ext := filepath.Ext(originalBase)
	stem := strings.TrimSuffix(originalBase, ext)
	if collidingBase != "" && collidingBase != originalBase {
		return stem + "_" + strconv.Itoa(n) + "-" + collidingBase
	}
	return stem + "_" + strconv.Itoa(n) + ext
}

// isUnder reports whether path lies inside root (or is root).
func isUnder(path, root string) bool {
	if root == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
