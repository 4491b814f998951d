package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"agent-chat/internal/history"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("session not found")

type Store struct {
	db         *sql.DB
	ftsEnabled bool
	mu         sync.Mutex
	logger     *zap.Logger
}

func Open(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps PRAGMAs and transactions on the same handle.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS sessions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			started_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			sender TEXT NOT NULL,
			text TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			style TEXT NOT NULL DEFAULT '',
			ts INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id, id);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return s.ensureFTSTable()
}

func (s *Store) ensureFTSTable() error {
	var sqlDef string
	err := s.db.QueryRow(`SELECT sql FROM sqlite_master WHERE name = 'messages_fts'`).Scan(&sqlDef)
	if err == nil {
		lower := strings.ToLower(sqlDef)
		s.ftsEnabled = strings.Contains(lower, "virtual table") && strings.Contains(lower, "fts5")
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("inspect messages_fts table: %w", err)
	}

	_, err = s.db.Exec(`CREATE VIRTUAL TABLE messages_fts USING fts5(
		session_id UNINDEXED,
		content
	);`)
	if err == nil {
		s.ftsEnabled = true
		return nil
	}
	if !strings.Contains(strings.ToLower(err.Error()), "no such module: fts5") {
		return fmt.Errorf("create messages_fts: %w", err)
	}

	// Plain table for sqlite builds without FTS5; search falls back to LIKE.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS messages_fts (
		rowid INTEGER PRIMARY KEY,
		session_id TEXT,
		content TEXT
	);`); err != nil {
		return fmt.Errorf("create messages_fts fallback table: %w", err)
	}
	s.logger.Debug("fts5 unavailable, using like search")
	s.ftsEnabled = false
	return nil
}

func (s *Store) Create(ctx context.Context, session history.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions(id, title, started_at) VALUES(?, ?, ?)
	`, session.ID, session.Title, session.StartedAt.UnixMilli()); err != nil {
		return fmt.Errorf("insert session %s: %w", session.ID, err)
	}
	if err := insertMessages(ctx, tx, session.ID, session.Messages); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create %s: %w", session.ID, err)
	}
	return nil
}

// Update runs fn against the stored session inside one transaction and
// persists the result. Messages are append-only: fn may rename the session
// and append messages, and only messages beyond the stored ones are written.
// An error from fn rolls everything back.
func (s *Store) Update(ctx context.Context, id string, fn func(*history.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update tx: %w", err)
	}
	defer tx.Rollback()

	session, err := loadSession(ctx, tx, id)
	if err != nil {
		return err
	}
	stored := len(session.Messages)

	if err := fn(&session); err != nil {
		return err
	}
	if len(session.Messages) < stored {
		return fmt.Errorf("update %s: messages cannot be removed", id)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET title = ? WHERE id = ?`, session.Title, id); err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	if err := insertMessages(ctx, tx, id, session.Messages[stored:]); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update %s: %w", id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages_fts WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete fts rows for %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete messages for %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete %s: %w", id, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (history.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return history.Session{}, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()
	return loadSession(ctx, tx, id)
}

// List returns session summaries in insertion order, without messages.
func (s *Store) List(ctx context.Context) ([]history.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.started_at,
			(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		FROM sessions s
		ORDER BY s.seq
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return scanSummaries(rows)
}

func scanSummaries(rows *sql.Rows) ([]history.Session, error) {
	defer rows.Close()

	out := make([]history.Session, 0, 64)
	for rows.Next() {
		var (
			sess    history.Session
			started int64
		)
		if err := rows.Scan(&sess.ID, &sess.Title, &started, &sess.MessageCount); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sess.StartedAt = time.UnixMilli(started)
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadSession(ctx context.Context, q queryer, id string) (history.Session, error) {
	var (
		sess    history.Session
		started int64
	)
	err := q.QueryRowContext(ctx, `SELECT id, title, started_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.Title, &started)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Session{}, ErrNotFound
	}
	if err != nil {
		return history.Session{}, fmt.Errorf("read session %s: %w", id, err)
	}
	sess.StartedAt = time.UnixMilli(started)

	rows, err := q.QueryContext(ctx, `
		SELECT sender, text, model, style, ts
		FROM messages
		WHERE session_id = ?
		ORDER BY id
	`, id)
	if err != nil {
		return history.Session{}, fmt.Errorf("query session messages: %w", err)
	}
	defer rows.Close()

	sess.Messages = make([]history.Message, 0, 32)
	for rows.Next() {
		var (
			m      history.Message
			sender string
			ts     int64
		)
		if err := rows.Scan(&sender, &m.Text, &m.Model, &m.Style, &ts); err != nil {
			return history.Session{}, fmt.Errorf("scan message row: %w", err)
		}
		m.Sender = history.Sender(sender)
		m.Timestamp = time.UnixMilli(ts)
		sess.Messages = append(sess.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return history.Session{}, fmt.Errorf("iterate messages: %w", err)
	}
	sess.MessageCount = len(sess.Messages)
	return sess, nil
}

func insertMessages(ctx context.Context, tx *sql.Tx, sessionID string, msgs []history.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	insertMsgStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages(session_id, sender, text, model, style, ts)
		VALUES(?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare message insert: %w", err)
	}
	defer insertMsgStmt.Close()

	insertFTSStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages_fts(rowid, session_id, content)
		VALUES(?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare fts insert: %w", err)
	}
	defer insertFTSStmt.Close()

	for _, m := range msgs {
		res, err := insertMsgStmt.ExecContext(ctx, sessionID, string(m.Sender), m.Text, m.Model, m.Style, m.Timestamp.UnixMilli())
		if err != nil {
			return fmt.Errorf("insert message for %s: %w", sessionID, err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("message row id for %s: %w", sessionID, err)
		}
		if _, err := insertFTSStmt.ExecContext(ctx, rowID, sessionID, m.Text); err != nil {
			return fmt.Errorf("index message for %s: %w", sessionID, err)
		}
	}
	return nil
}
