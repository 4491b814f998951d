package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agent-chat/internal/chat"
	"agent-chat/internal/history"
	"agent-chat/internal/store"
)

func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func listSessions(t *testing.T, dataDir string) []int {
	t.Helper()
	st, err := store.Open(filepath.Join(dataDir, "history.sqlite"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	sessions, err := st.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	counts := make([]int, 0, len(sessions))
	for _, s := range sessions {
		counts = append(counts, s.Count())
	}
	return counts
}

func TestSendStoresReply(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"hello back"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	out, err := execRoot(t, "send", "--data-dir", dir, "--env-file", "", "--endpoint", srv.URL, "--style", "precise", "hello", "there")
	if err != nil {
		t.Fatalf("send: %v\n%s", err, out)
	}
	if !strings.Contains(out, "hello back") {
		t.Fatalf("expected reply in output, got %q", out)
	}
	if got["query"] != "hello there" {
		t.Fatalf("unexpected query %v", got["query"])
	}
	if got["temperature"] != 0.2 {
		t.Fatalf("precise style should send 0.2, got %v", got["temperature"])
	}
	if counts := listSessions(t, dir); len(counts) != 1 || counts[0] != 2 {
		t.Fatalf("expected one chat with two messages, got %v", counts)
	}
}

func TestSendUnreachableKeepsUserMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	dir := t.TempDir()
	_, err := execRoot(t, "send", "--data-dir", dir, "--env-file", "", "--endpoint", url, "ping")
	if err == nil || err.Error() != chat.UnreachableText {
		t.Fatalf("expected %q, got %v", chat.UnreachableText, err)
	}
	if counts := listSessions(t, dir); len(counts) != 1 || counts[0] != 1 {
		t.Fatalf("only the user message should be stored, got %v", counts)
	}
}

func TestSendRejectsSessionWithNew(t *testing.T) {
	dir := t.TempDir()
	_, err := execRoot(t, "send", "--data-dir", dir, "--env-file", "", "--session", "abc", "--new", "hi")
	if err == nil || !strings.Contains(err.Error(), "cannot be combined") {
		t.Fatalf("expected flag conflict error, got %v", err)
	}
}

func TestSniffSavesBinaryReply(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(t.TempDir(), "reply.txt")
	if err := os.WriteFile(input, []byte("data:image/png;base64,iVBORw0KGgo="), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := execRoot(t, "sniff", "--data-dir", dir, "--env-file", "", "--save", input); err != nil {
		t.Fatalf("sniff: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "exports", "response.png")); err != nil {
		t.Fatalf("expected saved response: %v", err)
	}
}

func TestShortTitle(t *testing.T) {
	if got := shortTitle("short"); got != "short" {
		t.Fatalf("unexpected title %q", got)
	}
	long := strings.Repeat("é", 60)
	got := shortTitle(long)
	if len([]rune(got)) != 48 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncation %q", got)
	}
}

func seedSession(t *testing.T, dataDir string, s history.Session) {
	t.Helper()
	st, err := store.Open(filepath.Join(dataDir, "history.sqlite"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	if err := st.Create(context.Background(), s); err != nil {
		t.Fatalf("create %s: %v", s.ID, err)
	}
}

func TestSessionsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	base := []string{"--data-dir", dir, "--env-file", ""}
	run := func(args ...string) (string, error) {
		return execRoot(t, append(args, base...)...)
	}

	seedSession(t, dir, history.Session{
		ID:        "chat-1",
		Title:     "Trip planning",
		StartedAt: time.Now(),
		Messages: []history.Message{
			{Sender: history.SenderUser, Text: "where to?", Timestamp: time.Now()},
			{Sender: history.SenderAgent, Text: "Paris", Timestamp: time.Now(), Model: "gemini", Style: "balanced"},
		},
	})

	out, err := run("sessions", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"Today", "chat-1", "Trip planning", "2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in list output:\n%s", want, out)
		}
	}

	if _, err := run("sessions", "rename", "chat-1", "Paris", "weekend"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	out, err = run("sessions", "list", "--search", "weekend")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "Paris weekend") {
		t.Fatalf("expected renamed chat in search output:\n%s", out)
	}

	out, err = run("sessions", "show", "chat-1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "## Agent (gemini/balanced)") || !strings.Contains(out, "where to?") {
		t.Fatalf("unexpected transcript:\n%s", out)
	}

	if _, err := run("sessions", "export", "chat-1"); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "exports", "Paris_weekend.md")); err != nil {
		t.Fatalf("expected exported transcript: %v", err)
	}

	if _, err := run("sessions", "delete", "chat-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	out, err = run("sessions", "list")
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if !strings.Contains(out, "No chats yet.") {
		t.Fatalf("expected empty history, got:\n%s", out)
	}

	_, err = run("sessions", "delete", "chat-1")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}
