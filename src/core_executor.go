package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// renameFunc is swapped out by tests to simulate cross-device moves.
var renameFunc = afero.Fs.Rename

// place moves (or copies) src to dst. It never overwrites: an occupied
// destination is a failure and the source stays where it is.
func (s *Session) place(src, dst string, size int64) Outcome {
	out := Outcome{Source: src, Destination: dst, Size: size}

	if s.cfg.DryRun {
		out.Placed = true
		return out
	}

	dir := filepath.Dir(dst)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		out.Err = ioErr("mkdir", dir, err)
		return out
	}
	if err := noClobber(s.fs, dst); err != nil {
		out.Err = err
		return out
	}

	if s.cfg.Mode == ModeMove {
		err := renameFunc(s.fs, src, dst)
		if err == nil {
			out.Placed = true
			return out
		}
		if !isEXDEV(err) {
			out.Err = ioErr("rename", src, err)
			return out
		}
		s.logger.Debug("cross-device move, copying instead", "src", src, "dst", dst)
	}

	if err := copyFile(s.fs, src, dst); err != nil {
		out.Err = err
		return out
	}
	out.Placed = true

	// The copy is confirmed; losing the delete only leaves a duplicate behind.
	if err := s.fs.Remove(src); err != nil {
		out.Warning = ioErr("remove", src, err)
	}
	return out
}

func noClobber(fs afero.Fs, dst string) error {
	if _, err := lstat(fs, dst); err == nil {
		return ioErr("place", dst, os.ErrExist)
	} else if !os.IsNotExist(err) {
		return ioErr("stat", dst, err)
	}
	return nil
}

// copyFile copies src next to dst through a hidden temp file, keeping mode and
// modification time, and renames it into place once it is synced.
func copyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return ioErr("open", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return ioErr("stat", src, err)
	}

	return writeAtomic(fs, dst, info.Mode().Perm(), info, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

// writeAtomic fills a temp file in dst's directory and renames it to dst. The
// temp file is removed on any failure.
func writeAtomic(fs afero.Fs, dst string, perm os.FileMode, times os.FileInfo, fill func(io.Writer) error) error {
	dir := filepath.Dir(dst)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return ioErr("mkdir", dir, err)
	}

	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return ioErr("create", dir, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = fs.Remove(tmpName)
		}
	}()

	if err := fill(tmp); err != nil {
		return ioErr("write", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		return ioErr("sync", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return ioErr("close", tmpName, err)
	}
	if err := fs.Chmod(tmpName, perm); err != nil {
		return ioErr("chmod", tmpName, err)
	}
	if times != nil {
		mt := times.ModTime()
		if err := fs.Chtimes(tmpName, mt, mt); err != nil {
			return ioErr("chtimes", tmpName, err)
		}
	}

	if err := noClobber(fs, dst); err != nil {
		return err
	}
	if err := renameFunc(fs, tmpName, dst); err != nil {
		return ioErr("rename", tmpName, err)
	}
	committed = true

	if _, err := fs.Stat(dst); err != nil {
		return ioErr("confirm", dst, err)
	}
	syncDirBestEffort(fs, dir)
	return nil
}

func syncDirBestEffort(fs afero.Fs, dir string) {
	f, err := fs.Open(dir)
	if err != nil {
		return
	}
	defer f.Close()
	_ = f.Sync()
}
