//go:build unix

package main

import (
	"os"
	"syscall"
	"testing"

	"github.com/spf13/afero"
)

func TestPlace_CrossDeviceFallsBackToCopy(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newTestSession(t, testConfig(t, "/lib"), fs, nil)
	writeFile(t, fs, "/src/a.jpg", "X")

	old := renameFunc
	renameFunc = func(fs afero.Fs, oldpath, newpath string) error {
		if oldpath == "/src/a.jpg" {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
		}
		return fs.Rename(oldpath, newpath)
	}
	defer func() { renameFunc = old }()

	out := s.place("/src/a.jpg", "/lib/Images/d/a.jpg", 1)
	if !out.Placed || out.Err != nil {
		t.Fatalf("want placed through copy, got %+v", out)
	}
	if exists(fs, "/src/a.jpg") {
		t.Fatalf("source not removed after cross-device copy")
	}
	if got := readFile(t, fs, "/lib/Images/d/a.jpg"); got != "X" {
		t.Fatalf("destination content %q", got)
	}
}

func TestIsEXDEV(t *testing.T) {
	if !isEXDEV(syscall.EXDEV) {
		t.Fatalf("bare EXDEV not detected")
	}
	if !isEXDEV(&os.LinkError{Op: "rename", Err: syscall.EXDEV}) {
		t.Fatalf("wrapped EXDEV not detected")
	}
	if isEXDEV(os.ErrPermission) {
		t.Fatalf("EPERM taken for EXDEV")
	}
}
