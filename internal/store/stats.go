package store

import (
	"context"
	"database/sql"

	engine "github.com/remiliacorporation/wikitool/internal/errs"
)

// Stats aggregates counts used by the status/rebuild-index reporting
// path, per spec.md §4.4's getStats.
type Stats struct {
	TotalPages         int
	ByNamespace        map[int]int
	BySyncStatus       map[string]int
	ByPageType         map[string]int
	TotalCategories    int
	TotalLinks         int
	TotalRedirects     int
	TotalTemplateUsage int
	TotalSections      int
	TotalCargoTables   int
}

// GetStats computes the counts getStats reports. Each query is cheap
// (COUNT/GROUP BY over indexed columns); no transaction is needed
// since these are read-only and tolerate snapshot skew between counts.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{
		ByNamespace:  make(map[int]int),
		BySyncStatus: make(map[string]int),
		ByPageType:   make(map[string]int),
	}

	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&stats.TotalPages); err != nil {
		return stats, engine.Newf(engine.KindFilesystemError, "", err)
	}

	if err := groupCountInt(ctx, s.conn, `SELECT namespace, COUNT(*) FROM pages GROUP BY namespace`, stats.ByNamespace); err != nil {
		return stats, err
	}
	if err := groupCountStr(ctx, s.conn, `SELECT sync_status, COUNT(*) FROM pages GROUP BY sync_status`, stats.BySyncStatus); err != nil {
		return stats, err
	}
	if err := groupCountStr(ctx, s.conn, `SELECT page_type, COUNT(*) FROM pages GROUP BY page_type`, stats.ByPageType); err != nil {
		return stats, err
	}

	totals := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM categories`, &stats.TotalCategories},
		{`SELECT COUNT(*) FROM page_links`, &stats.TotalLinks},
		{`SELECT COUNT(*) FROM redirects`, &stats.TotalRedirects},
		{`SELECT COUNT(*) FROM template_usage`, &stats.TotalTemplateUsage},
		{`SELECT COUNT(*) FROM page_sections`, &stats.TotalSections},
		{`SELECT COUNT(*) FROM cargo_tables`, &stats.TotalCargoTables},
	}
	for _, t := range totals {
		if err := s.conn.QueryRowContext(ctx, t.query).Scan(t.dest); err != nil {
			return stats, engine.Newf(engine.KindFilesystemError, "", err)
		}
	}

	return stats, nil
}

func groupCountInt(ctx context.Context, db *sql.DB, query string, into map[int]int) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return engine.Newf(engine.KindFilesystemError, "", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v int
		if err := rows.Scan(&k, &v); err != nil {
			return engine.Newf(engine.KindFilesystemError, "", err)
		}
		into[k] = v
	}
	return rows.Err()
}

func groupCountStr(ctx context.Context, db *sql.DB, query string, into map[string]int) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return engine.Newf(engine.KindFilesystemError, "", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var v int
		if err := rows.Scan(&k, &v); err != nil {
			return engine.Newf(engine.KindFilesystemError, "", err)
		}
		into[k] = v
	}
	return rows.Err()
}
