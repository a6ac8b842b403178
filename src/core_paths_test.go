package main

import (
	"path/filepath"
	"testing"
	"time"
)

var testLayout = Layout{
	ImageRoot:     "/lib/Images",
	VideoRoot:     "/lib/Videos",
	NonImageRoot:  "/lib/NonMedia",
	DuplicateRoot: "/lib/Duplicates",
	FailedRoot:    "/lib/Failed",
	RunDate:       "2024-06-01",
}

func TestBuildDestination_Image(t *testing.T) {
	got := BuildDestination(testLayout, ClassImage, testMtime, "abc", "IMG_0001.JPG")
	want := filepath.Join("/lib/Images", "2024-06-01", "20240101-100000--IMG_0001--abc.jpg")
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestBuildDestination_Video(t *testing.T) {
	got := BuildDestination(testLayout, ClassVideo, testMtime, "", "clip.MOV")
	want := filepath.Join("/lib/Videos", "2024-06-01", "20240101-100000_clip.mov")
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestBuildDestination_Deterministic(t *testing.T) {
	ts := time.Date(2019, 12, 31, 23, 59, 58, 0, time.Local)
	first := BuildDestination(testLayout, ClassImage, ts, sha("X"), "a.jpg")
	for i := 0; i < 5; i++ {
		if got := BuildDestination(testLayout, ClassImage, ts, sha("X"), "a.jpg"); got != first {
			t.Fatalf("run %d: %q != %q", i, got, first)
		}
	}
}

func TestFingerprintSuffix(t *testing.T) {
	cases := map[string]string{
		"20240101-100000--a--abc.jpg":     "abc.jpg",
		"20240101-100000--a--b--abc.jpg":  "abc.jpg",
		"plain.jpg":                       "plain.jpg",
		"20240101-100000--a--abc.jpg.xmp": "abc.jpg.xmp",
	}
	for in, want := range cases {
		if got := FingerprintSuffix(in); got != want {
			t.Fatalf("%q: want %q, got %q", in, want, got)
		}
	}
}

func TestDuplicateName(t *testing.T) {
	if got := duplicateName("b.jpg", "20240101-100000--b--abc.jpg", 1); got != "b_1-20240101-100000--b--abc.jpg" {
		t.Fatalf("hyphenated form: got %q", got)
	}
	if got := duplicateName("b.jpg", "b.jpg", 3); got != "b_3.jpg" {
		t.Fatalf("counter form: got %q", got)
	}
}

func TestIsUnder(t *testing.T) {
	cases := []struct {
		path, root string
		want       bool
	}{
		{"/lib/Images/x.jpg", "/lib/Images", true},
		{"/lib/Images", "/lib/Images", true},
		{"/lib/ImagesOld/x.jpg", "/lib/Images", false},
		{"/lib/Duplicates/x.jpg", "/lib/Images", false},
		{"/lib/..foo/x", "/lib", true},
		{"/x", "", false},
	}
	for _, tc := range cases {
		if got := isUnder(tc.path, tc.root); got != tc.want {
			t.Fatalf("isUnder(%q, %q): want %v, got %v", tc.path, tc.root, tc.want, got)
		}
	}
}
