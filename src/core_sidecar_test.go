package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestFindSidecars(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/photo.CR2", "raw")
	writeFile(t, fs, "/src/photo.CR2.xmp", "a")
	writeFile(t, fs, "/src/photo.XMP", "b")
	writeFile(t, fs, "/src/photo2.xmp", "c")
	writeFile(t, fs, "/src/photo.CR2.txt", "d")

	got, err := findSidecars(fs, "/src", "photo.CR2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 sidecars, got %+v", got)
	}
	if got[0].Path != "/src/photo.CR2.xmp" || !got[0].full {
		t.Fatalf("first: %+v", got[0])
	}
	if got[1].Path != "/src/photo.XMP" || got[1].full {
		t.Fatalf("second: %+v", got[1])
	}
}

func TestSidecarName(t *testing.T) {
	newBase := "20240101-100000--photo--abc.cr2"
	if got := sidecarName(sidecarMatch{full: true}, newBase); got != newBase+".xmp" {
		t.Fatalf("full: got %q", got)
	}
	if got := sidecarName(sidecarMatch{}, newBase); got != "20240101-100000--photo--abc.xmp" {
		t.Fatalf("stem: got %q", got)
	}
}

func TestIngest_SidecarFollowsImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newTestSession(t, testConfig(t, "/lib"), fs, nil)
	writeFile(t, fs, "/src/photo.CR2", "raw bytes")
	writeFile(t, fs, "/src/photo.CR2.xmp", `<x:xmpmeta><rdf:Description xmpMM:DerivedFrom="photo.CR2"/></x:xmpmeta>`)

	if _, err := s.Ingest("/src"); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	imageDst := BuildDestination(s.layout, ClassImage, testMtime, sha("raw bytes"), "photo.CR2")
	if !exists(fs, imageDst) {
		t.Fatalf("image not at %s", imageDst)
	}
	content := readFile(t, fs, imageDst+".xmp")
	if strings.Contains(content, "photo.CR2") {
		t.Fatalf("old name still referenced: %s", content)
	}
	if !strings.Contains(content, filepath.Base(imageDst)) {
		t.Fatalf("new name missing: %s", content)
	}
	if exists(fs, "/src/photo.CR2.xmp") {
		t.Fatalf("source sidecar left behind")
	}
}

func TestIngest_StemSidecarFollowsImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newTestSession(t, testConfig(t, "/lib"), fs, nil)
	writeFile(t, fs, "/src/photo.jpg", "jpeg bytes")
	writeFile(t, fs, "/src/photo.xmp", "photo.jpg")

	if _, err := s.Ingest("/src"); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	imageDst := BuildDestination(s.layout, ClassImage, testMtime, sha("jpeg bytes"), "photo.jpg")
	xmp := strings.TrimSuffix(imageDst, ".jpg") + ".xmp"
	if got := readFile(t, fs, xmp); got != filepath.Base(imageDst) {
		t.Fatalf("sidecar content %q", got)
	}
}

func TestIngest_OrphanSidecarGoesToOther(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newTestSession(t, testConfig(t, "/lib"), fs, nil)
	writeFile(t, fs, "/src/lonely.xmp", "meta")

	if _, err := s.Ingest("/src"); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !exists(fs, filepath.Join(s.layout.NonImageRoot, "lonely.xmp")) {
		t.Fatalf("orphan sidecar not in the non-media root")
	}
}

func TestIngest_SidecarRewriteFailureKeepsImage(t *testing.T) {
	fs := &faultFs{Fs: afero.NewMemMapFs(), readErr: map[string]error{"/src/a.xmp": errors.New("input/output error")}}
	s := newTestSession(t, testConfig(t, "/lib"), fs, nil)
	writeFile(t, fs, "/src/a.jpg", "X")
	writeFile(t, fs, "/src/a.xmp", "a.jpg")
	writeFile(t, fs, "/src/c.jpg", "C")

	sum, err := s.Ingest("/src")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	imageDst := BuildDestination(s.layout, ClassImage, testMtime, sha("X"), "a.jpg")
	if !exists(fs, imageDst) {
		t.Fatalf("image not at %s", imageDst)
	}
	if exists(fs, strings.TrimSuffix(imageDst, ".jpg")+".xmp") {
		t.Fatalf("failed sidecar written next to the image")
	}
	if !exists(fs, BuildDestination(s.layout, ClassImage, testMtime, sha("C"), "c.jpg")) {
		t.Fatalf("run stopped after the sidecar failure")
	}
	if sum.Placed[bucketImage] != 2 || sum.Errors != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	placements, err := s.Placements()
	if err != nil {
		t.Fatal(err)
	}
	var failed []Placement
	for _, p := range placements {
		if p.Status == statusFailed {
			failed = append(failed, p)
		}
	}
	if len(failed) != 1 || failed[0].Source != "/src/a.xmp" || failed[0].Bucket != bucketSidecar {
		t.Fatalf("want one failed sidecar row, got %+v", failed)
	}
}

func TestIngest_SidecarSortedBeforeImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newTestSession(t, testConfig(t, "/lib"), fs, nil)
	writeFile(t, fs, "/src/IMG_1.XMP", "IMG_1.jpg")
	writeFile(t, fs, "/src/IMG_1.jpg", "X")

	sum, err := s.Ingest("/src")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	imageDst := BuildDestination(s.layout, ClassImage, testMtime, sha("X"), "IMG_1.jpg")
	if !exists(fs, strings.TrimSuffix(imageDst, ".jpg")+".xmp") {
		t.Fatalf("sidecar not carried next to %s", imageDst)
	}
	if sum.Skipped != 0 || sum.Placed[bucketSidecar] != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestIngest_UnreadableImageKeepsSidecar(t *testing.T) {
	fs := &faultFs{Fs: afero.NewMemMapFs(), readErr: map[string]error{"/src/a.jpg": errors.New("input/output error")}}
	s := newTestSession(t, testConfig(t, "/lib"), fs, nil)
	writeFile(t, fs, "/src/a.jpg", "X")
	writeFile(t, fs, "/src/a.xmp", "a.jpg")
	writeFile(t, fs, "/src/b.jpg", "B")

	sum, err := s.Ingest("/src")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if !exists(fs, "/src/a.jpg") || !exists(fs, "/src/a.xmp") {
		t.Fatalf("unreadable image or its sidecar moved")
	}
	if !exists(fs, BuildDestination(s.layout, ClassImage, testMtime, sha("B"), "b.jpg")) {
		t.Fatalf("later file not processed")
	}
	if sum.Errors != 1 || sum.Skipped != 1 || sum.Placed[bucketImage] != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}
