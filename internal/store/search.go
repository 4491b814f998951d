package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"agent-chat/internal/history"

	"go.uber.org/zap"
)

// Search returns sessions whose title or messages match query, in insertion
// order so the result can be bucketed like the full list.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]history.Session, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx)
	}
	if limit <= 0 {
		limit = 200
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ftsEnabled {
		rows, err := s.searchRowsFTS(ctx, query, limit)
		if err == nil {
			return scanSummaries(rows)
		}
		s.logger.Debug("fts search failed, falling back to like", zap.Error(err))
	}
	rows, err := s.searchRowsLike(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

const summaryColumns = `s.id, s.title, s.started_at,
	(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)`

func (s *Store) searchRowsFTS(ctx context.Context, query string, limit int) (*sql.Rows, error) {
	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return nil, fmt.Errorf("empty fts query")
	}
	terms := tokenizeSearchTerms(query)
	titleClause, titleArgs := likeClause("LOWER(s.title)", terms)

	args := append([]any{ftsQuery}, titleArgs...)
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+summaryColumns+`
		FROM sessions s
		WHERE s.id IN (SELECT session_id FROM messages_fts WHERE messages_fts MATCH ?)
			OR `+titleClause+`
		ORDER BY s.seq
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("fts query failed: %w", err)
	}
	return rows, nil
}

func (s *Store) searchRowsLike(ctx context.Context, query string, limit int) (*sql.Rows, error) {
	terms := tokenizeSearchTerms(query)
	if len(terms) == 0 {
		terms = []string{strings.ToLower(query)}
	}
	textClause, textArgs := likeClause("LOWER(m.text)", terms)
	titleClause, titleArgs := likeClause("LOWER(s.title)", terms)

	args := append(textArgs, titleArgs...)
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+summaryColumns+`
		FROM sessions s
		WHERE s.id IN (SELECT m.session_id FROM messages m WHERE `+textClause+`)
			OR `+titleClause+`
		ORDER BY s.seq
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("like query failed: %w", err)
	}
	return rows, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// likeClause matches when any term occurs in column. Terms are matched
// literally.
func likeClause(column string, terms []string) (string, []any) {
	if len(terms) == 0 {
		return "0", nil
	}
	var b strings.Builder
	args := make([]any, 0, len(terms))
	b.WriteString("(")
	for i, term := range terms {
		if i > 0 {
			b.WriteString(" OR ")
		}
		b.WriteString(column + ` LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(term)+"%")
	}
	b.WriteString(")")
	return b.String(), args
}

func buildFTSQuery(raw string) string {
	parts := tokenizeSearchTerms(raw)
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ReplaceAll(p, `"`, "")
		if p == "" {
			continue
		}
		quoted = append(quoted, fmt.Sprintf(`"%s"*`, p))
	}
	return strings.Join(quoted, " AND ")
}

func tokenizeSearchTerms(raw string) []string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "`\"'.,:;!?()[]{}<>|")
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
