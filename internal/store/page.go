package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	engine "github.com/remiliacorporation/wikitool/internal/errs"
	"github.com/remiliacorporation/wikitool/internal/hashutil"
)

// Page mirrors spec.md §3's Page entity. Pointer fields distinguish
// "leave unchanged" (nil) from "set to empty/zero" in UpsertPage.
type Page struct {
	ID               int64
	Title            string
	Namespace        int
	PageType         string
	Filename         string
	Filepath         string
	TemplateCategory string
	Content          []byte
	ContentHash      string
	FileMtimeMS      int64
	WikiModifiedAt   string
	LastSyncedAt     string
	SyncStatus       string
	IsRedirect       bool
	RedirectTarget   string
	ContentModel     string
	WikiPageID       int64
	RevisionID       int64
	ShortDesc        string
	DisplayTitle     string
	WordCount        int
}

// PagePatch carries a partial update for UpsertPage; nil fields are
// left untouched on an existing row, or default to the zero value on
// insert.
type PagePatch struct {
	Title            string
	Namespace        *int
	PageType         *string
	Filename         *string
	Filepath         *string
	TemplateCategory *string
	Content          []byte
	HasContent       bool
	FileMtimeMS      *int64
	WikiModifiedAt   *string
	LastSyncedAt     *string
	SyncStatus       *string
	IsRedirect       *bool
	RedirectTarget   *string
	ContentModel     *string
	WikiPageID       *int64
	RevisionID       *int64
	ShortDesc        *string
	DisplayTitle     *string
	WordCount        *int
}

// UpsertPage creates a row for patch.Title if absent, otherwise
// updates exactly the fields patch sets. Returns the page id.
func (s *Store) UpsertPage(ctx context.Context, patch PagePatch) (int64, error) {
	if strings.TrimSpace(patch.Title) == "" {
		return 0, engine.Newf(engine.KindFilesystemError, "", fmt.Errorf("upsert page: title is required"))
	}

	var id int64
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT id FROM pages WHERE title = ?`, patch.Title)
		err := row.Scan(&id)
		switch {
		case err == sql.ErrNoRows:
			res, insErr := tx.ExecContext(ctx,
				`INSERT INTO pages (title, namespace, sync_status) VALUES (?, 0, 'new')`, patch.Title)
			if insErr != nil {
				return insErr
			}
			id, err = res.LastInsertId()
			if err != nil {
				return err
			}
		case err != nil:
			return err
		}

		sets := []string{}
		args := []any{}
		addInt := func(col string, v *int) {
			if v != nil {
				sets = append(sets, col+" = ?")
				args = append(args, *v)
			}
		}
		addInt64 := func(col string, v *int64) {
			if v != nil {
				sets = append(sets, col+" = ?")
				args = append(args, *v)
			}
		}
		addStr := func(col string, v *string) {
			if v != nil {
				sets = append(sets, col+" = ?")
				args = append(args, *v)
			}
		}
		addBool := func(col string, v *bool) {
			if v != nil {
				sets = append(sets, col+" = ?")
				args = append(args, *v)
			}
		}

		addInt("namespace", patch.Namespace)
		addStr("page_type", patch.PageType)
		addStr("filename", patch.Filename)
		addStr("filepath", patch.Filepath)
		addStr("template_category", patch.TemplateCategory)
		addInt64("file_mtime", patch.FileMtimeMS)
		addStr("wiki_modified_at", patch.WikiModifiedAt)
		addStr("last_synced_at", patch.LastSyncedAt)
		addStr("sync_status", patch.SyncStatus)
		addBool("is_redirect", patch.IsRedirect)
		addStr("redirect_target", patch.RedirectTarget)
		addStr("content_model", patch.ContentModel)
		addInt64("wiki_page_id", patch.WikiPageID)
		addInt64("revision_id", patch.RevisionID)
		addStr("short_desc", patch.ShortDesc)
		addStr("display_title", patch.DisplayTitle)
		addInt("word_count", patch.WordCount)

		if patch.HasContent {
			sets = append(sets, "content = ?", "content_hash = ?")
			args = append(args, patch.Content, hashutil.Content(patch.Content))
		}

		if len(sets) == 0 {
			return nil
		}

		args = append(args, id)
		query := fmt.Sprintf(`UPDATE pages SET %s WHERE id = ?`, strings.Join(sets, ", "))
		_, err = tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return 0, engine.Newf(engine.KindFilesystemError, patch.Title, err)
	}
	return id, nil
}

const pageColumns = `id, title, namespace, page_type, filename, filepath, template_category,
	content, content_hash, file_mtime, wiki_modified_at, last_synced_at, sync_status,
	is_redirect, redirect_target, content_model, wiki_page_id, revision_id,
	short_desc, display_title, word_count`

func scanPage(row interface{ Scan(...any) error }) (*Page, error) {
	var p Page
	var filename, filepath_, templateCategory, wikiModifiedAt, lastSyncedAt, redirectTarget, contentModel sql.NullString
	var shortDesc, displayTitle sql.NullString
	var fileMtime, wikiPageID, revisionID sql.NullInt64
	var content []byte

	err := row.Scan(
		&p.ID, &p.Title, &p.Namespace, &p.PageType, &filename, &filepath_, &templateCategory,
		&content, &p.ContentHash, &fileMtime, &wikiModifiedAt, &lastSyncedAt, &p.SyncStatus,
		&p.IsRedirect, &redirectTarget, &contentModel, &wikiPageID, &revisionID,
		&shortDesc, &displayTitle, &p.WordCount,
	)
	if err != nil {
		return nil, err
	}

	p.Filename = filename.String
	p.Filepath = filepath_.String
	p.TemplateCategory = templateCategory.String
	p.WikiModifiedAt = wikiModifiedAt.String
	p.LastSyncedAt = lastSyncedAt.String
	p.RedirectTarget = redirectTarget.String
	p.ContentModel = contentModel.String
	p.FileMtimeMS = fileMtime.Int64
	p.WikiPageID = wikiPageID.Int64
	p.RevisionID = revisionID.Int64
	p.ShortDesc = shortDesc.String
	p.DisplayTitle = displayTitle.String
	p.Content = content
	return &p, nil
}

// GetPage fetches a page by exact title, returning (nil, nil) if absent.
func (s *Store) GetPage(ctx context.Context, title string) (*Page, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE title = ?`, title)
	p, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, engine.Newf(engine.KindFilesystemError, title, err)
	}
	return p, nil
}

// GetPageByPath fetches a page by its exact filepath.
func (s *Store) GetPageByPath(ctx context.Context, filepath_ string) (*Page, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE filepath = ?`, filepath_)
	p, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, engine.Newf(engine.KindFilesystemError, filepath_, err)
	}
	return p, nil
}

// GetPageByFilepathFold fetches a page whose filepath matches
// case-insensitively, used to detect cross-platform case collisions
// before writing a new file.
func (s *Store) GetPageByFilepathFold(ctx context.Context, filepath_ string) (*Page, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE filepath IS NOT NULL AND LOWER(filepath) = LOWER(?)`, filepath_)
	p, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, engine.Newf(engine.KindFilesystemError, filepath_, err)
	}
	return p, nil
}

// Filter restricts GetPages. Zero values mean "no restriction" except
// Limit, where 0 means "no limit".
type Filter struct {
	Namespace  *int
	SyncStatus string
	PageType   string
	Limit      int
	Offset     int
}

// GetPages lists pages matching filter, ordered by title.
func (s *Store) GetPages(ctx context.Context, filter Filter) ([]*Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE 1=1`
	args := []any{}

	if filter.Namespace != nil {
		query += ` AND namespace = ?`
		args = append(args, *filter.Namespace)
	}
	if filter.SyncStatus != "" {
		query += ` AND sync_status = ?`
		args = append(args, filter.SyncStatus)
	}
	if filter.PageType != "" {
		query += ` AND page_type = ?`
		args = append(args, filter.PageType)
	}
	query += ` ORDER BY title`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, engine.Newf(engine.KindFilesystemError, "", err)
	}
	defer rows.Close()

	var pages []*Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, engine.Newf(engine.KindFilesystemError, "", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// DeletePage removes title and all rows it owns in derived tables,
// in a single transaction. Categories are shared and are never
// deleted here, only the page_categories join rows.
func (s *Store) DeletePage(ctx context.Context, title string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM pages WHERE title = ?`, title).Scan(&id)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}

		statements := []string{
			`DELETE FROM page_categories WHERE page_id = ?`,
			`DELETE FROM page_links WHERE source_page_id = ?`,
			`DELETE FROM template_usage WHERE page_id = ?`,
			`DELETE FROM template_params WHERE call_id IN (SELECT id FROM template_calls WHERE page_id = ?)`,
			`DELETE FROM template_calls WHERE page_id = ?`,
			`DELETE FROM infobox_kv WHERE page_id = ?`,
			`DELETE FROM page_sections WHERE page_id = ?`,
			`DELETE FROM page_sections_fts WHERE page_id = ?`,
			`DELETE FROM cargo_tables WHERE page_id = ?`,
			`DELETE FROM cargo_stores WHERE page_id = ?`,
			`DELETE FROM cargo_queries WHERE page_id = ?`,
		}
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM redirects WHERE source_title = ?`, title); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM module_deps WHERE module_title = ?`, title); err != nil {
			return err
		}
		if strings.HasPrefix(title, "Template:") {
			name := strings.TrimPrefix(title, "Template:")
			if _, err := tx.ExecContext(ctx, `DELETE FROM template_metadata WHERE template_name = ?`, name); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
		return err
	})
}

// UpdateSyncStatus is an idempotent single-column update.
func (s *Store) UpdateSyncStatus(ctx context.Context, title, status string) error {
	_, err := s.conn.ExecContext(ctx, `UPDATE pages SET sync_status = ? WHERE title = ?`, status, title)
	if err != nil {
		return engine.Newf(engine.KindFilesystemError, title, err)
	}
	return nil
}
