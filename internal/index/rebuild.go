package index

import (
	"context"
	"database/sql"
	"fmt"

	engine "github.com/remiliacorporation/wikitool/internal/errs"
	"github.com/remiliacorporation/wikitool/internal/store"
)

// RebuildOptions configures a full or namespace-scoped rebuild.
type RebuildOptions struct {
	Namespace  *int
	OnProgress func(processed, total int)
}

// PageError records one page's rebuild failure without aborting the
// rest of the scan, per spec.md §4.7.
type PageError struct {
	Title string
	Err   error
}

// RebuildResult aggregates counters across a rebuild run.
type RebuildResult struct {
	Processed int
	Succeeded int
	Errors    []PageError
}

// derivedTables lists every table insertPageRows can populate; a full
// rebuild truncates them all once up front rather than paying a
// per-page DELETE, per spec.md §4.7's "deletes all derived tables
// once" bulk path.
var derivedTables = []string{
	"page_categories", "page_links", "template_usage", "template_params",
	"template_calls", "infobox_kv", "page_sections", "page_sections_fts",
	"cargo_tables", "cargo_stores", "cargo_queries", "redirects", "module_deps",
}

// RebuildIndex truncates every derived table once, then re-parses and
// re-inserts every selected page's rows in title order, all inside one
// enclosing transaction. A per-page parse/insert failure is recorded
// in Errors without aborting the scan; only a transaction-level error
// (e.g. the truncate itself failing) rolls back the whole rebuild.
func RebuildIndex(ctx context.Context, d Deps, opts RebuildOptions) (RebuildResult, error) {
	var result RebuildResult

	pages, err := d.Store.GetPages(ctx, store.Filter{Namespace: opts.Namespace})
	if err != nil {
		return result, fmt.Errorf("listing pages for rebuild: %w", err)
	}

	txErr := d.Store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := truncateDerivedTables(ctx, tx); err != nil {
			return fmt.Errorf("truncating derived tables: %w", err)
		}

		for _, p := range pages {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := insertPageRows(ctx, tx, d, p); err != nil {
				result.Errors = append(result.Errors, PageError{Title: p.Title, Err: err})
			} else {
				result.Succeeded++
			}
			result.Processed++
			if opts.OnProgress != nil {
				opts.OnProgress(result.Processed, len(pages))
			}
		}
		return nil
	})
	if txErr != nil {
		return result, engine.Newf(engine.KindParseError, "", txErr)
	}
	return result, nil
}

func truncateDerivedTables(ctx context.Context, tx *sql.Tx) error {
	for _, table := range derivedTables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("deleting from %s: %w", table, err)
		}
	}
	return nil
}
