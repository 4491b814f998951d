package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agent-chat/internal/history"
	"agent-chat/internal/sniff"
)

func TestSaveResponseNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	e, err := New(dir)
	if err != nil {
		t.Fatalf("new exporter: %v", err)
	}
	res, err := sniff.Sniff(`{"a":1}`)
	if err != nil {
		t.Fatalf("sniff: %v", err)
	}

	want := []string{"response.json", "response (1).json", "response (2).json"}
	for _, name := range want {
		path, err := e.SaveResponse(res)
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		if filepath.Base(path) != name {
			t.Fatalf("unexpected file name: got=%s want=%s", filepath.Base(path), name)
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "response.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestSaveResponseWritesDecodedBytes(t *testing.T) {
	dir := t.TempDir()
	e, _ := New(dir)
	res, err := sniff.Sniff("data:image/png;base64,iVBORw0KGgo=")
	if err != nil {
		t.Fatalf("sniff: %v", err)
	}
	path, err := e.SaveResponse(res)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(path) != "response.png" {
		t.Fatalf("unexpected file %s", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "\x89PNG\r\n\x1a\n" {
		t.Fatalf("unexpected bytes %q", data)
	}
}

func TestBuildTranscriptMarkdown(t *testing.T) {
	msgs := []history.Message{
		{Sender: history.SenderUser, Text: "give me json"},
		{Sender: history.SenderAgent, Text: `{"ok":true}`, Model: "gemini", Style: "precise"},
		{Sender: history.SenderAgent, Text: "   "},
		{Sender: history.SenderAgent, Text: "data:image/png;base64,iVBORw0KGgo="},
		{Sender: history.SenderAgent, Text: "plain words"},
	}
	out := BuildTranscriptMarkdown(msgs)

	for _, want := range []string{
		"## You\n\ngive me json",
		"## Agent (gemini/precise)\n\n```json\n{\"ok\":true}\n```",
		"_[image/png reply, 8 bytes]_",
		"## Agent\n\nplain words",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in transcript:\n%s", want, out)
		}
	}
	if strings.Count(out, "## Agent") != 3 {
		t.Fatalf("blank reply should be skipped:\n%s", out)
	}
}

func TestExportSession(t *testing.T) {
	dir := t.TempDir()
	e, _ := New(dir)
	session := history.Session{
		ID:        "abc",
		Title:     "Trip: Paris",
		StartedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Messages: []history.Message{
			{Sender: history.SenderUser, Text: "hi"},
			{Sender: history.SenderAgent, Text: "hello"},
		},
	}
	path, err := e.ExportSession(session)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if filepath.Base(path) != "Trip__Paris.md" {
		t.Fatalf("unexpected file name %s", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	md := string(data)
	if !strings.HasPrefix(md, "# Trip: Paris\n") || !strings.Contains(md, "session_id: abc") || !strings.Contains(md, "message_count: 2") {
		t.Fatalf("unexpected export:\n%s", md)
	}
}

func TestNewRequiresDir(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}
