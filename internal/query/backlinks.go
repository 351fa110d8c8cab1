package query

import (
	"context"

	errs "github.com/remiliacorporation/wikitool/internal/errs"
)

// GetBacklinks returns every page title that links to title, per
// spec.md §4.9.
func (q *Query) GetBacklinks(ctx context.Context, title string) ([]string, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT DISTINCT p.title
		FROM page_links pl
		JOIN pages p ON p.id = pl.source_page_id
		WHERE pl.target_title = ?
		ORDER BY p.title`, title)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, title, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, title, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetOrphanPages returns every main-content page with zero incoming
// internal links, excluding redirects (a redirect's only purpose is to
// be linked to, so it is never itself "orphaned").
func (q *Query) GetOrphanPages(ctx context.Context) ([]string, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT p.title
		FROM pages p
		WHERE p.namespace = 0 AND p.is_redirect = 0
		  AND NOT EXISTS (SELECT 1 FROM page_links pl WHERE pl.target_title = p.title)
		ORDER BY p.title`)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, "", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// BrokenLink is an internal link whose target has no corresponding page.
type BrokenLink struct {
	SourceTitle string
	TargetTitle string
}

// GetBrokenLinks returns every internal link target absent from
// pages, excluding File:/Category: prefixes (those may legitimately
// target unsynced media or categories never written as pages).
func (q *Query) GetBrokenLinks(ctx context.Context) ([]BrokenLink, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT p.title, pl.target_title
		FROM page_links pl
		JOIN pages p ON p.id = pl.source_page_id
		WHERE pl.link_type = 'internal'
		  AND pl.target_title NOT LIKE 'File:%'
		  AND pl.target_title NOT LIKE 'Category:%'
		  AND NOT EXISTS (SELECT 1 FROM pages t WHERE t.title = pl.target_title)
		ORDER BY p.title, pl.target_title`)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer rows.Close()

	var out []BrokenLink
	for rows.Next() {
		var bl BrokenLink
		if err := rows.Scan(&bl.SourceTitle, &bl.TargetTitle); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, "", err)
		}
		out = append(out, bl)
	}
	return out, rows.Err()
}

// DoubleRedirect is a redirect chain two hops deep: Title -> FirstTarget
// (also a redirect) -> FinalTarget.
type DoubleRedirect struct {
	Title       string
	FirstTarget string
	FinalTarget string
}

// GetDoubleRedirects finds every redirect whose target is itself a
// redirect, per spec.md §8 scenario 3.
func (q *Query) GetDoubleRedirects(ctx context.Context) ([]DoubleRedirect, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT r1.source_title, r1.target_title, r2.target_title
		FROM redirects r1
		JOIN redirects r2 ON r2.source_title = r1.target_title
		ORDER BY r1.source_title`)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer rows.Close()

	var out []DoubleRedirect
	for rows.Next() {
		var d DoubleRedirect
		if err := rows.Scan(&d.Title, &d.FirstTarget, &d.FinalTarget); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, "", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetUncategorizedPages returns every main-namespace, non-redirect
// page with no page_categories row.
func (q *Query) GetUncategorizedPages(ctx context.Context) ([]string, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT p.title
		FROM pages p
		WHERE p.namespace = 0 AND p.is_redirect = 0
		  AND NOT EXISTS (SELECT 1 FROM page_categories pc WHERE pc.page_id = p.id)
		ORDER BY p.title`)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, "", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetMissingShortdesc returns every main-namespace, non-redirect page
// with no SHORTDESC metadata.
func (q *Query) GetMissingShortdesc(ctx context.Context) ([]string, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT title FROM pages
		WHERE namespace = 0 AND is_redirect = 0
		  AND (short_desc IS NULL OR short_desc = '')
		ORDER BY title`)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, "", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
