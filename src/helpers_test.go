package main

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

var testMtime = time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)

type fakeReader struct {
	t   time.Time
	err error
}

func (f fakeReader) CaptureTime(string) (time.Time, error) {
	if f.err != nil {
		return time.Time{}, f.err
	}
	return f.t, nil
}

func (f fakeReader) Close() error { return nil }

func testConfig(t *testing.T, library string) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.LibraryBase = library
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return cfg
}

func newTestSession(t *testing.T, cfg *Config, fs afero.Fs, reader MetadataReader) *Session {
	t.Helper()
	s, err := NewSession(cfg, fs, reader, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeFile(t *testing.T, fs afero.Fs, path, data string) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := afero.WriteFile(fs, path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := fs.Chtimes(path, testMtime, testMtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func exists(fs afero.Fs, path string) bool {
	_, err := lstat(fs, path)
	return err == nil
}

func sha(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// faultFs fails Remove for the paths in removeErr, and Read after the first
// chunk for files opened from readErr.
type faultFs struct {
	afero.Fs
	removeErr map[string]error
	readErr   map[string]error
}

func (f *faultFs) Remove(name string) error {
	if err, ok := f.removeErr[name]; ok {
		return err
	}
	return f.Fs.Remove(name)
}

func (f *faultFs) Open(name string) (afero.File, error) {
	file, err := f.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	if rerr, ok := f.readErr[name]; ok {
		return &faultFile{File: file, err: rerr}, nil
	}
	return file, nil
}

type faultFile struct {
	afero.File
	err   error
	reads int
}

func (f *faultFile) Read(p []byte) (int, error) {
	if f.reads > 0 {
		return 0, f.err
	}
	f.reads++
	return f.File.Read(p)
}
