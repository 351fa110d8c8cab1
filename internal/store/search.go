package store

import (
	"context"
	"database/sql"
	"strings"

	engine "github.com/remiliacorporation/wikitool/internal/errs"
)

// SearchResult is one FTS hit with match markers around the matched
// terms inside Snippet, per spec.md §4.4's positional marker tags.
type SearchResult struct {
	Tier    string
	Title   string
	Snippet string
}

const (
	snippetMarkStart = "\x02"
	snippetMarkEnd   = "\x03"
)

// SearchOptions restricts SearchFTS. Tier empty means "any tier".
type SearchOptions struct {
	Tier  string
	Limit int
}

// SearchFTS runs a full-text query over docs_fts (tier, title,
// content), returning snippets with match markers around the hit.
func (s *Store) SearchFTS(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	sqlQuery := `SELECT tier, title, snippet(docs_fts, 2, ?, ?, '...', 32)
		FROM docs_fts WHERE docs_fts MATCH ?`
	args := []any{snippetMarkStart, snippetMarkEnd, query}
	if opts.Tier != "" {
		sqlQuery += ` AND tier = ?`
		args = append(args, opts.Tier)
	}
	sqlQuery += ` ORDER BY rank LIMIT ?`
	args = append(args, limit)

	rows, err := s.conn.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, engine.Newf(engine.KindFilesystemError, "", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Tier, &r.Title, &r.Snippet); err != nil {
			return nil, engine.Newf(engine.KindFilesystemError, "", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// IndexPage overwrites the docs_fts row for (tier, title). The
// authoritative content stays in pages/extension_doc_pages/technical_docs;
// this row is a rebuildable shadow.
func (s *Store) IndexPage(ctx context.Context, tier, title, content string) error {
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM docs_fts WHERE tier = ? AND title = ?`, tier, title); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO docs_fts (tier, title, content) VALUES (?, ?, ?)`, tier, title, content)
		return err
	})
	if err != nil {
		return engine.Newf(engine.KindFilesystemError, title, err)
	}
	return nil
}
