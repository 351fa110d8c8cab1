package query

import (
	"context"

	errs "github.com/remiliacorporation/wikitool/internal/errs"
)

// NameCount is a (name, count) pair shared by the top-N aggregations.
type NameCount struct {
	Name  string
	Count int
}

// GetTopTemplates returns the limit most-used template names by
// distinct-page usage count.
func (q *Query) GetTopTemplates(ctx context.Context, limit int) ([]NameCount, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT template_name, COUNT(DISTINCT page_id) AS n
		FROM template_usage
		GROUP BY template_name
		ORDER BY n DESC, template_name ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer rows.Close()
	return scanNameCounts(rows)
}

// GetTopCategories returns the limit categories with the most member pages.
func (q *Query) GetTopCategories(ctx context.Context, limit int) ([]NameCount, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT c.name, COUNT(pc.page_id) AS n
		FROM categories c
		JOIN page_categories pc ON pc.category_id = c.id
		GROUP BY c.name
		ORDER BY n DESC, c.name ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer rows.Close()
	return scanNameCounts(rows)
}

// GetTopLinkedPages returns the limit pages with the most incoming
// internal links.
func (q *Query) GetTopLinkedPages(ctx context.Context, limit int) ([]NameCount, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT target_title, COUNT(*) AS n
		FROM page_links
		WHERE link_type = 'internal'
		GROUP BY target_title
		ORDER BY n DESC, target_title ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer rows.Close()
	return scanNameCounts(rows)
}

func scanNameCounts(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]NameCount, error) {
	var out []NameCount
	for rows.Next() {
		var nc NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, "", err)
		}
		out = append(out, nc)
	}
	return out, rows.Err()
}
