package filesink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dirpx.dev/dlogd/apis/ingest/command"
)

func openTestSink(t *testing.T, opt Options) (*Sink, string) {
	t.Helper()
	s, err := Open(opt)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, opt.Path
}

func TestSink_WriteSynthesizesTrailingNewline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.log")

	s, _ := openTestSink(t, Options{Path: path})
	defer s.file.Close()

	if err := s.applyWrite([]byte("no newline")); err != nil {
		t.Fatalf("applyWrite: %v", err)
	}
	if err := s.applyWrite([]byte("has newline\n")); err != nil {
		t.Fatalf("applyWrite: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "no newline\nhas newline\n"
	if got := string(data); got != want {
		t.Fatalf("file content = %q, want %q", got, want)
	}
}

func TestSink_StartingAndEndingBanners(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.log")

	s, err := Open(Options{Path: path, StartingMsg: true, EndingMsg: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.file.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.HasPrefix(string(data), "Starting ") {
		t.Fatalf("expected starting banner, got %q", string(data))
	}

	target := filepath.Join(dir, "live.log.0")
	if err := s.applyRename(context.Background(), target); err != nil {
		t.Fatalf("applyRename: %v", err)
	}

	rotated, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile rotated: %v", err)
	}
	if !strings.Contains(string(rotated), "Ending log as "+target) {
		t.Fatalf("expected ending banner in rotated file, got %q", string(rotated))
	}

	fresh, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile fresh live file: %v", err)
	}
	if !strings.HasPrefix(string(fresh), "Starting ") {
		t.Fatalf("expected fresh live file to carry a starting banner, got %q", string(fresh))
	}
}

func TestSink_RenameTruncatesNewLiveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.log")

	s, err := Open(Options{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.file.Close()
	if err := s.applyWrite([]byte("before rotation")); err != nil {
		t.Fatalf("applyWrite: %v", err)
	}

	target := filepath.Join(dir, "live.log.0")
	if err := s.applyRename(context.Background(), target); err != nil {
		t.Fatalf("applyRename: %v", err)
	}

	fresh, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(fresh) != 0 {
		t.Fatalf("expected empty live file after rotation, got %q", string(fresh))
	}

	rotated, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile rotated: %v", err)
	}
	if string(rotated) != "before rotation\n" {
		t.Fatalf("rotated content = %q, want %q", string(rotated), "before rotation\n")
	}
}

func TestSink_RunReturnsNilOnStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.log")

	s, err := Open(Options{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	in := make(chan command.Command, 2)
	stop := make(chan struct{})
	in <- command.NewWrite([]byte("line one"))
	in <- command.NewWrite([]byte("line two"))

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), in, stop) }()

	close(stop)
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}
