package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const (
	statusPlaced  = "placed"
	statusPlanned = "planned" // dry-run
	statusFailed  = "failed"
	statusSkipped = "skipped"
)

const (
	bucketImage     = "image"
	bucketVideo     = "video"
	bucketSidecar   = "sidecar"
	bucketOther     = "other"
	bucketDuplicate = "duplicate"
	bucketFailed    = "failed"
)

// RunIndex holds the state of a single run: the fingerprint suffixes that
// landed under the image root and a journal of every placement. It lives in an
// in-memory database and is gone when the run ends.
type RunIndex struct {
	db *sql.DB
}

// Placement is one journal row.
type Placement struct {
	Source      string
	Destination string
	Bucket      string
	Route       Route
	Size        int64
	Status      string
	Err         string
}

// OpenRunIndex creates an empty index.
func OpenRunIndex() (*RunIndex, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open run index: %w", err)
	}

	// Every connection to :memory: gets its own database
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE seen (
		suffix TEXT PRIMARY KEY,
		destination TEXT NOT NULL,
		placed_at INTEGER NOT NULL
	);
	CREATE TABLE placements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		destination TEXT NOT NULL,
		bucket TEXT NOT NULL,
		route TEXT NOT NULL,
		size INTEGER NOT NULL,
		status TEXT NOT NULL,
		err TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX idx_placements_dest ON placements(destination);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &RunIndex{db: db}, nil
}

// Close closes the index database
func (r *RunIndex) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Seen reports whether a fingerprint suffix already landed this run.
func (r *RunIndex) Seen(suffix string) (bool, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM seen WHERE suffix = ?", suffix).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddSeen registers a suffix. Registering twice keeps the first destination.
func (r *RunIndex) AddSeen(suffix, destination string) error {
	_, err := r.db.Exec(`
		INSERT OR IGNORE INTO seen (suffix, destination, placed_at)
		VALUES (?, ?, ?)
	`, suffix, destination, time.Now().Unix())
	return err
}

// Claimed reports whether destination was already handed out this run. Only
// matters in dry-run, where nothing lands on disk to collide with.
func (r *RunIndex) Claimed(destination string) (bool, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM placements
		WHERE destination = ? AND status IN (?, ?)
	`, destination, statusPlaced, statusPlanned).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Record appends a placement to the journal.
func (r *RunIndex) Record(p Placement) error {
	_, err := r.db.Exec(`
		INSERT INTO placements (source, destination, bucket, route, size, status, err)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.Source, p.Destination, p.Bucket, string(p.Route), p.Size, p.Status, p.Err)
	return err
}

// Placements returns the journal in the order it was written.
func (r *RunIndex) Placements() ([]Placement, error) {
	rows, err := r.db.Query(`
		SELECT source, destination, bucket, route, size, status, err
		FROM placements ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Placement
	for rows.Next() {
		var p Placement
		var route string
		if err := rows.Scan(&p.Source, &p.Destination, &p.Bucket, &route, &p.Size, &p.Status, &p.Err); err != nil {
			return nil, err
		}
		p.Route = Route(route)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Stats fills the counting part of a Summary from the journal.
func (r *RunIndex) Stats() (Summary, error) {
	sum := Summary{Placed: make(map[string]int)}

	rows, err := r.db.Query(`
		SELECT bucket, COUNT(*), COALESCE(SUM(size), 0)
		FROM placements
		WHERE status IN (?, ?)
		GROUP BY bucket
	`, statusPlaced, statusPlanned)
	if err != nil {
		return sum, err
	}
	defer rows.Close()

	for rows.Next() {
		var bucket string
		var n int
		var bytes int64
		if err := rows.Scan(&bucket, &n, &bytes); err != nil {
			return sum, err
		}
		sum.Placed[bucket] = n
		sum.Bytes += bytes
	}
	if err := rows.Err(); err != nil {
		return sum, err
	}

	sum.Duplicates = sum.Placed[bucketDuplicate]
	if err := r.db.QueryRow("SELECT COUNT(*) FROM placements WHERE status = ?", statusFailed).Scan(&sum.Errors); err != nil {
		return sum, err
	}
	if err := r.db.QueryRow("SELECT COUNT(*) FROM placements WHERE status = ?", statusSkipped).Scan(&sum.Skipped); err != nil {
		return sum, err
	}
	return sum, nil
}
