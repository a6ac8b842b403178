package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Session is one ingestion run. It owns the duplicate counter and the run
// index, so two sessions in one process never see each other's files.
type Session struct {
	cfg        *Config
	fs         afero.Fs
	reader     MetadataReader
	index      *RunIndex
	classifier classifier
	layout     Layout
	logger     *slog.Logger

	runID      string
	started    time.Time
	dupCounter int

	progress chan<- ScanProgress
	stats    ScanProgress
}

// NewSession prepares a run. cfg must have been validated.
func NewSession(cfg *Config, fs afero.Fs, reader MetadataReader, logger *slog.Logger) (*Session, error) {
	index, err := OpenRunIndex()
	if err != nil {
		return nil, &ConfigError{Code: ErrCodeIndex, Err: err}
	}
	if reader == nil {
		reader = nullReader{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	now := time.Now()
	runID := uuid.NewString()
	layout := cfg.Layout(now.Format(runDateLayout))

	return &Session{
		cfg:        cfg,
		fs:         fs,
		reader:     reader,
		index:      index,
		classifier: newClassifier(cfg),
		layout:     layout,
		logger:     logger.With("run", runID, "run_date", layout.RunDate),
		runID:      runID,
		started:    now,
	}, nil
}

// Close releases the run index.
func (s *Session) Close() error {
	return s.index.Close()
}

// Layout is the destination layout of this run.
func (s *Session) Layout() Layout { return s.layout }

// DuplicateCount is the number of duplicates seen so far.
func (s *Session) DuplicateCount() int { return s.dupCounter }

// Placements returns the run journal.
func (s *Session) Placements() ([]Placement, error) { return s.index.Placements() }

// SetProgress makes the session report progress on ch. Sends never block.
func (s *Session) SetProgress(ch chan<- ScanProgress, total int) {
	s.progress = ch
	s.stats.TotalFiles = total
}

// Ingest runs the pipeline over root.
func (s *Session) Ingest(root string) (Summary, error) {
	return s.IngestContext(context.Background(), root)
}

// IngestContext is Ingest with cancellation between files. A file that has
// started is always finished.
func (s *Session) IngestContext(ctx context.Context, root string) (Summary, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return s.summary(), &ConfigError{Code: ErrCodeBadRoot, Path: root, Err: err}
	}
	fi, err := s.fs.Stat(root)
	if err != nil {
		return s.summary(), &ConfigError{Code: ErrCodeBadRoot, Path: root, Err: err}
	}
	if !fi.IsDir() {
		return s.summary(), &ConfigError{Code: ErrCodeBadRoot, Path: root, Err: fmt.Errorf("not a directory")}
	}

	s.logger.Info("ingest started", "root", root, "mode", s.cfg.Mode, "dry_run", s.cfg.DryRun)

	err = s.walk(root, func(e FileEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return s.process(e)
	})
	if err != nil {
		return s.summary(), err
	}

	if s.cfg.PruneEmpty && !s.cfg.DryRun {
		s.pruneEmpty(root)
	}

	sum := s.summary()
	s.logger.Info("ingest finished",
		"placed", sum.Total(),
		"duplicates", sum.Duplicates,
		"errors", sum.Errors,
		"skipped", sum.Skipped,
		"duration", sum.Duration.Round(time.Millisecond))
	return sum, nil
}

// process handles one file. Only run-level failures are returned.
func (s *Session) process(e FileEntry) error {
	s.stats.ProcessedFiles++
	s.stats.CurrentFile = e.Path
	defer s.report()

	switch e.Class {
	case ClassImage:
		return s.ingestMedia(e, true)
	case ClassVideo:
		return s.ingestMedia(e, false)
	case ClassSidecar:
		return s.ingestSidecar(e)
	default:
		return s.ingestOther(e)
	}
}

// ingestMedia files an image or a video under its canonical name. Images are
// fingerprinted and carry their sidecars along.
func (s *Session) ingestMedia(e FileEntry, image bool) error {
	rec, err := s.mediaRecord(e, image)
	if err != nil {
		if err := s.commit(e.Class, Outcome{Source: e.Path, Size: e.Size, Err: err}, RouteCanonical); err != nil {
			return err
		}
		if image {
			return s.keepSidecars(e.Path)
		}
		return nil
	}

	base := filepath.Base(e.Path)
	dst := BuildDestination(s.layout, e.Class, rec.Captured, rec.Fingerprint, base)
	final, route, err := s.resolve(DestinationCandidate{Path: dst}, e.Path, true)
	if err != nil {
		return err
	}

	out := s.place(e.Path, final, e.Size)
	if err := s.commit(e.Class, out, route); err != nil {
		return err
	}
	if !image {
		return nil
	}
	if !out.Placed {
		return s.keepSidecars(e.Path)
	}
	return s.carrySidecars(e.Path, final)
}

// mediaRecord resolves the capture time once, plus the fingerprint for images.
func (s *Session) mediaRecord(e FileEntry, fingerprint bool) (MediaRecord, error) {
	rec := MediaRecord{FileEntry: e}

	captured, err := ResolveCaptureTime(s.fs, s.reader, e.Path)
	if err != nil {
		return rec, err
	}
	rec.Captured = captured

	if fingerprint {
		fp, err := Fingerprint(s.fs, e.Path, s.cfg.LegacyHash)
		if err != nil {
			return rec, err
		}
		rec.Fingerprint = fp
	}
	return rec, nil
}

// ingestSidecar handles an .xmp met on its own. Sidecars whose image is
// still here travel with that image (or stay with it); orphans go to the
// non-media root.
func (s *Session) ingestSidecar(e FileEntry) error {
	if _, err := lstat(s.fs, e.Path); err != nil {
		s.logger.Debug("sidecar already carried", "src", e.Path)
		return nil
	}
	if s.hasImageFor(e.Path) {
		s.logger.Debug("sidecar follows its image", "src", e.Path)
		return nil
	}
	return s.ingestOther(e)
}

// ingestOther moves anything else to the non-media root. There is no
// duplicate quarantine here: an existing file of the same name makes the
// placement fail and the file stays in the source tree.
func (s *Session) ingestOther(e FileEntry) error {
	cand := DestinationCandidate{Path: s.layout.NonImageRoot, IsDir: true}
	final, route, err := s.resolve(cand, e.Path, false)
	if err != nil {
		return err
	}
	if route == RouteCanonical {
		route = RouteOther
	}
	return s.commit(ClassOther, s.place(e.Path, final, e.Size), route)
}

// commit journals an outcome, registers image-root fingerprints and logs.
func (s *Session) commit(class Class, out Outcome, route Route) error {
	p := Placement{
		Source:      out.Source,
		Destination: out.Destination,
		Bucket:      bucketFor(class, route),
		Route:       route,
		Size:        out.Size,
		Status:      statusPlaced,
	}
	switch {
	case out.Err != nil:
		p.Status = statusFailed
		p.Err = out.Err.Error()
	case s.cfg.DryRun:
		p.Status = statusPlanned
	}
	if err := s.index.Record(p); err != nil {
		return &ConfigError{Code: ErrCodeIndex, Path: out.Source, Err: err}
	}

	if out.Err != nil {
		s.stats.Errors++
		s.stats.LastWarning = out.Err.Error()
		s.logger.Warn("left in place", "src", out.Source, "err", out.Err)
		return nil
	}

	if out.Placed && isUnder(out.Destination, s.layout.ImageRoot) {
		if err := s.index.AddSeen(FingerprintSuffix(filepath.Base(out.Destination)), out.Destination); err != nil {
			return &ConfigError{Code: ErrCodeIndex, Path: out.Destination, Err: err}
		}
	}

	switch class {
	case ClassImage:
		s.stats.Images++
	case ClassVideo:
		s.stats.Videos++
	case ClassSidecar:
		s.stats.Sidecars++
	default:
		s.stats.Others++
	}

	verb := "placed"
	if s.cfg.DryRun {
		verb = "would place"
	}
	if route == RouteDuplicate || route == RouteSymlink {
		s.logger.Warn(verb, "src", out.Source, "dst", out.Destination, "route", route)
	} else {
		s.logger.Info(verb, "src", out.Source, "dst", out.Destination, "route", route)
	}
	if out.Warning != nil {
		s.stats.LastWarning = out.Warning.Error()
		s.logger.Warn("source kept after copy", "src", out.Source, "err", out.Warning)
	}
	return nil
}

func bucketFor(class Class, route Route) string {
	switch route {
	case RouteDuplicate:
		return bucketDuplicate
	case RouteSymlink:
		return bucketFailed
	}
	switch class {
	case ClassImage:
		return bucketImage
	case ClassVideo:
		return bucketVideo
	case ClassSidecar:
		return bucketSidecar
	default:
		return bucketOther
	}
}

func (s *Session) report() {
	if s.progress == nil {
		return
	}
	select {
	case s.progress <- s.stats:
	default:
	}
}

func (s *Session) summary() Summary {
	sum, err := s.index.Stats()
	if err != nil {
		s.logger.Warn("cannot read run index", "err", err)
	}
	sum.RunID = s.runID
	sum.RunDate = s.layout.RunDate
	sum.DryRun = s.cfg.DryRun
	sum.Duration = time.Since(s.started)
	return sum
}
