package attach

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFromFileBuildsDataURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hi"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	att, err := FromFile(path)
	if err != nil {
		t.Fatalf("from file: %v", err)
	}
	if att.Filename != "notes.txt" {
		t.Fatalf("unexpected filename %q", att.Filename)
	}
	if att.DataURL != "data:text/plain;base64,aGk=" {
		t.Fatalf("unexpected data url %q", att.DataURL)
	}
	if att.IsImage() {
		t.Fatalf("text file reported as image")
	}
}

func TestDetectMIMEFallsBackToContent(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if got := DetectMIME("blob", png); got != "image/png" {
		t.Fatalf("expected image/png from content, got %q", got)
	}
	sevenZip := []byte("7z\xbc\xaf\x27\x1c\x00\x04")
	if got := DetectMIME("archive", sevenZip); got != "application/x-7z-compressed" {
		t.Fatalf("expected 7z archive from content, got %q", got)
	}
	if got := DetectMIME("notes", []byte("plain words")); got != "text/plain" {
		t.Fatalf("expected text/plain without charset, got %q", got)
	}
	if got := DetectMIME("blob", nil); got != "application/octet-stream" {
		t.Fatalf("expected octet-stream for empty data, got %q", got)
	}
}

func TestFromBytesImage(t *testing.T) {
	att := FromBytes("cat.png", []byte("\x89PNG\r\n\x1a\n"))
	if !strings.HasPrefix(att.DataURL, "data:image/png;base64,") || !att.IsImage() {
		t.Fatalf("unexpected image attachment: %+v", att)
	}
}

func TestFromFileRejectsDirectories(t *testing.T) {
	if _, err := FromFile(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory")
	}
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "missing.bin"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
