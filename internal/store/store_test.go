package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"agent-chat/internal/history"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chat.sqlite"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sessionIDs(in []history.Session) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, s.ID)
	}
	return out
}

func TestCreateListPreservesInsertionOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i, id := range []string{"b", "a", "c"} {
		sess := history.Session{ID: id, Title: "t-" + id, StartedAt: now.Add(time.Duration(-i) * time.Hour)}
		if err := s.Create(ctx, sess); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if want := []string{"b", "a", "c"}; !reflect.DeepEqual(sessionIDs(got), want) {
		t.Fatalf("order mismatch: got=%v want=%v", sessionIDs(got), want)
	}
	if got[1].Title != "t-a" {
		t.Fatalf("unexpected title %q", got[1].Title)
	}
	if got[1].StartedAt.UnixMilli() != now.Add(-time.Hour).UnixMilli() {
		t.Fatalf("started_at not round-tripped: %s", got[1].StartedAt)
	}
}

func TestUpdateAppendsAndRenames(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Create(ctx, history.Session{ID: "s1", Title: "New Chat at 9:00", StartedAt: time.Now()}); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := s.Update(ctx, "s1", func(sess *history.Session) error {
		sess.Title = "hello"
		sess.Messages = append(sess.Messages, history.Message{Sender: history.SenderUser, Text: "hello", Timestamp: time.Now()})
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	err = s.Update(ctx, "s1", func(sess *history.Session) error {
		if len(sess.Messages) != 1 {
			t.Fatalf("expected stored message to be loaded, got %d", len(sess.Messages))
		}
		sess.Messages = append(sess.Messages, history.Message{Sender: history.SenderAgent, Text: "hi", Model: "gemini", Style: "balanced", Timestamp: time.Now()})
		return nil
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "hello" || len(got.Messages) != 2 {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.Messages[1].Sender != history.SenderAgent || got.Messages[1].Model != "gemini" || got.Messages[1].Style != "balanced" {
		t.Fatalf("unexpected agent message: %+v", got.Messages[1])
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list[0].MessageCount != 2 {
		t.Fatalf("expected message count 2, got %d", list[0].MessageCount)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Create(ctx, history.Session{ID: "s1", Title: "before", StartedAt: time.Now()}); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	err := s.Update(ctx, "s1", func(sess *history.Session) error {
		sess.Title = "after"
		sess.Messages = append(sess.Messages, history.Message{Sender: history.SenderUser, Text: "lost", Timestamp: time.Now()})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "before" || len(got.Messages) != 0 {
		t.Fatalf("failed update left a trace: %+v", got)
	}
}

func TestUpdateMissingSession(t *testing.T) {
	s := openTestStore(t)
	err := s.Update(context.Background(), "missing", func(*history.Session) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteKeepsOtherIDsStable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		sess := history.Session{
			ID:        id,
			Title:     id,
			StartedAt: time.Now(),
			Messages:  []history.Message{{Sender: history.SenderUser, Text: "msg " + id, Timestamp: time.Now()}},
		}
		if err := s.Create(ctx, sess); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted session to be gone, got %v", err)
	}
	got, err := s.Get(ctx, "c")
	if err != nil {
		t.Fatalf("get c: %v", err)
	}
	if got.Title != "c" || got.Messages[0].Text != "msg c" {
		t.Fatalf("id c resolved to the wrong session: %+v", got)
	}
	if err := s.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSearchMatchesMessagesAndTitles(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fixtures := []history.Session{
		{ID: "s1", Title: "Quarterly report", Messages: []history.Message{{Sender: history.SenderUser, Text: "numbers please"}}},
		{ID: "s2", Title: "Trip", Messages: []history.Message{{Sender: history.SenderAgent, Text: "Paris has great museums"}}},
		{ID: "s3", Title: "Misc", Messages: []history.Message{{Sender: history.SenderUser, Text: "nothing relevant"}}},
	}
	for _, f := range fixtures {
		f.StartedAt = time.Now()
		if err := s.Create(ctx, f); err != nil {
			t.Fatalf("create %s: %v", f.ID, err)
		}
	}

	got, err := s.Search(ctx, "museums", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if want := []string{"s2"}; !reflect.DeepEqual(sessionIDs(got), want) {
		t.Fatalf("message search mismatch: got=%v want=%v", sessionIDs(got), want)
	}

	got, err = s.Search(ctx, "quarterly", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if want := []string{"s1"}; !reflect.DeepEqual(sessionIDs(got), want) {
		t.Fatalf("title search mismatch: got=%v want=%v", sessionIDs(got), want)
	}

	got, err = s.Search(ctx, "  ", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("blank query should list everything, got %v", sessionIDs(got))
	}
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fixtures := []history.Session{
		{ID: "s1", Title: "snake_case names", Messages: []history.Message{{Sender: history.SenderUser, Text: "rename things"}}},
		{ID: "s2", Title: "Misc", Messages: []history.Message{{Sender: history.SenderUser, Text: "nothing relevant"}}},
	}
	for _, f := range fixtures {
		f.StartedAt = time.Now()
		if err := s.Create(ctx, f); err != nil {
			t.Fatalf("create %s: %v", f.ID, err)
		}
	}

	got, err := s.Search(ctx, "_", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if want := []string{"s1"}; !reflect.DeepEqual(sessionIDs(got), want) {
		t.Fatalf("underscore search mismatch: got=%v want=%v", sessionIDs(got), want)
	}

	got, err = s.Search(ctx, "%", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("percent should match nothing, got %v", sessionIDs(got))
	}
}

func TestLikeClauseEscapes(t *testing.T) {
	clause, args := likeClause("col", []string{`a_b%c\d`})
	if clause != `(col LIKE ? ESCAPE '\')` {
		t.Fatalf("unexpected clause %s", clause)
	}
	if len(args) != 1 || args[0] != `%a\_b\%c\\d%` {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestBuildFTSQuery(t *testing.T) {
	got := buildFTSQuery(`hello "world" (test)`)
	want := `"hello"* AND "world"* AND "test"*`
	if got != want {
		t.Fatalf("unexpected fts query\nwant: %s\ngot:  %s", want, got)
	}
}
