package storage

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Put("/courses/c-a1/../c-a1/audio.mp3", strings.NewReader("bonjour"))
	if err != nil {
		t.Fatal(err)
	}
	if key != "courses/c-a1/audio.mp3" {
		t.Fatalf("key = %q", key)
	}
	rc, err := s.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "bonjour" {
		t.Fatalf("got %q", b)
	}

	if _, err := s.Get("courses/missing.mp3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing blob: %v", err)
	}
}

func TestCleanKeyStaysInsideRoot(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd":      "etc/passwd",
		"a/./b":                 "a/b",
		"/":                     "",
		`..\..\windows\win.ini`: "windows/win.ini",
	}
	for in, want := range cases {
		if got := CleanKey(in); got != want {
			t.Fatalf("CleanKey(%q) = %q, want %q", in, got, want)
		}
	}
	if got := CourseMediaKey("c-a1", "../../x/photo.png"); got != "courses/c-a1/photo.png" {
		t.Fatalf("CourseMediaKey = %q", got)
	}
}

type failingCloser struct {
	strings.Builder
	closeErr error
}

func (f *failingCloser) Close() error { return f.closeErr }

func TestCopyAndCloseReportsCloseError(t *testing.T) {
	flushErr := errors.New("disk full")
	w := &failingCloser{closeErr: flushErr}
	if err := copyAndClose(w, strings.NewReader("bonjour")); !errors.Is(err, flushErr) {
		t.Fatalf("err = %v, want %v", err, flushErr)
	}
	if w.String() != "bonjour" {
		t.Fatalf("wrote %q", w.String())
	}

	readErr := errors.New("reset")
	w = &failingCloser{closeErr: flushErr}
	if err := copyAndClose(w, io.MultiReader(strings.NewReader("bon"), iotest.ErrReader(readErr))); !errors.Is(err, readErr) {
		t.Fatalf("copy error must win, got %v", err)
	}
}

func TestPutFailedUploadLeavesNoFile(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	readErr := errors.New("client went away")
	if _, err := s.Put("courses/c-a1/cut.mp3", iotest.ErrReader(readErr)); !errors.Is(err, readErr) {
		t.Fatalf("err = %v", err)
	}
	if _, err := s.Get("courses/c-a1/cut.mp3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("partial upload kept: %v", err)
	}
}
