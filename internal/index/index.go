// Package index rebuilds the derived tables (links, categories,
// template calls, sections, Cargo constructs, module deps) from a
// page's stored content. Grounded on the teacher's
// Database.RebuildPageIndex/RebuildPageLinks: delete-all-for-this-key,
// prepared-statement-insert, single transaction — generalized here
// from two tables to the full derived-table set spec.md §4.7 names.
package index

import (
	"context"
	"database/sql"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/remiliacorporation/wikitool/internal/codec"
	engine "github.com/remiliacorporation/wikitool/internal/errs"
	"github.com/remiliacorporation/wikitool/internal/store"
	"github.com/remiliacorporation/wikitool/internal/wikitext"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Deps are the shared dependencies every index operation needs.
type Deps struct {
	Store             *store.Store
	Table             *codec.Table
	InterwikiPrefixes map[string]bool
}

// UpdatePageIndex deletes every derived row this page owns and
// re-inserts the parse of page.Content, all within one transaction,
// per spec.md §4.7. If the page is a redirect, only the redirects row
// is written.
func UpdatePageIndex(ctx context.Context, d Deps, page *store.Page) error {
	return d.Store.WithTx(ctx, func(tx *sql.Tx) error {
		return updatePageIndexTx(ctx, tx, d, page)
	})
}

func updatePageIndexTx(ctx context.Context, tx *sql.Tx, d Deps, page *store.Page) error {
	if err := deleteDerivedRows(ctx, tx, page.ID, page.Title); err != nil {
		return fmt.Errorf("deleting derived rows for %q: %w", page.Title, err)
	}
	return insertPageRows(ctx, tx, d, page)
}

// insertPageRows parses page.Content and inserts its derived rows,
// assuming any prior rows for this page have already been cleared
// (either by deleteDerivedRows for a single-page update, or by a bulk
// truncateDerivedTables for a full rebuild).
func insertPageRows(ctx context.Context, tx *sql.Tx, d Deps, page *store.Page) error {
	ns, _ := d.Table.ByID(page.Namespace)
	opts := wikitext.Options{
		IsTemplateNamespace: ns.ID == codec.NSTemplate,
		IsModuleNamespace:   ns.ID == codec.NSModule,
		InterwikiPrefixes:   d.InterwikiPrefixes,
	}

	result := wikitext.Parse(string(page.Content), opts)

	if result.RedirectTarget != "" {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO redirects (source_title, target_title) VALUES (?, ?)
			 ON CONFLICT(source_title) DO UPDATE SET target_title = excluded.target_title`,
			page.Title, result.RedirectTarget)
		return err
	}

	if opts.IsModuleNamespace {
		return insertModuleDeps(ctx, tx, page.Title, result.ModuleDeps)
	}

	if err := insertLinksAndCategories(ctx, tx, page.ID, result.Links, result.Categories); err != nil {
		return err
	}
	if err := insertTemplateCalls(ctx, tx, page.ID, result.Templates); err != nil {
		return err
	}
	if err := insertSections(ctx, tx, page.ID, result.Sections); err != nil {
		return err
	}
	if err := insertCargoConstructs(ctx, tx, page.ID, result); err != nil {
		return err
	}

	if opts.IsTemplateNamespace && result.TemplateDataJSON != "" {
		if err := upsertTemplateMetadataFromJSON(ctx, tx, page.Title, result.TemplateDataJSON); err != nil {
			return err
		}
	}

	_, err := tx.ExecContext(ctx,
		`UPDATE pages SET short_desc = ?, display_title = ?, word_count = ? WHERE id = ?`,
		nullIfEmpty(result.ShortDesc), nullIfEmpty(result.DisplayTitle), result.WordCount, page.ID)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// deleteDerivedRows removes every row updatePageIndex owns for this
// page, by id where the table is page-scoped and by title where it's
// keyed by source/module title instead (redirects, module_deps).
func deleteDerivedRows(ctx context.Context, tx *sql.Tx, pageID int64, title string) error {
	byID := []string{
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
	for _, stmt := range byID {
		if _, err := tx.ExecContext(ctx, stmt, pageID); err != nil {
			return err
		}
	}

	byTitle := []string{
		`DELETE FROM redirects WHERE source_title = ?`,
		`DELETE FROM module_deps WHERE module_title = ?`,
	}
	for _, stmt := range byTitle {
		if _, err := tx.ExecContext(ctx, stmt, title); err != nil {
			return err
		}
	}
	return nil
}

func insertLinksAndCategories(ctx context.Context, tx *sql.Tx, pageID int64, links []wikitext.Link, categories []string) error {
	for _, l := range links {
		var targetNS any
		if l.Namespace >= 0 {
			targetNS = l.Namespace
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO page_links (source_page_id, target_title, link_type, target_namespace) VALUES (?, ?, ?, ?)
			 ON CONFLICT(source_page_id, target_title, link_type) DO NOTHING`,
			pageID, l.Target, l.LinkType, targetNS); err != nil {
			return fmt.Errorf("inserting page_links: %w", err)
		}
	}

	for _, name := range categories {
		catID, err := upsertCategory(ctx, tx, name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO page_categories (page_id, category_id) VALUES (?, ?)
			 ON CONFLICT(page_id, category_id) DO NOTHING`,
			pageID, catID); err != nil {
			return fmt.Errorf("inserting page_categories: %w", err)
		}
	}
	return nil
}

func upsertCategory(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		res, insErr := tx.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
		if insErr != nil {
			return 0, insErr
		}
		return res.LastInsertId()
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func insertTemplateCalls(ctx context.Context, tx *sql.Tx, pageID int64, calls []wikitext.TemplateCall) error {
	for i, call := range calls {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO template_usage (page_id, template_name) VALUES (?, ?)`,
			pageID, call.Name); err != nil {
			return fmt.Errorf("inserting template_usage: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO template_calls (page_id, template_name, call_index) VALUES (?, ?, ?)`,
			pageID, call.Name, i)
		if err != nil {
			return fmt.Errorf("inserting template_calls: %w", err)
		}
		callID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for _, p := range call.Params {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO template_params (call_id, param_index, param_name, param_value, is_named) VALUES (?, ?, ?, ?, ?)`,
				callID, p.Index, nullIfEmpty(p.Name), p.Value, p.IsNamed); err != nil {
				return fmt.Errorf("inserting template_params: %w", err)
			}

			if p.IsNamed && isInfoboxCall(call.Name) {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO infobox_kv (page_id, infobox_name, param_name, param_value, call_index) VALUES (?, ?, ?, ?, ?)`,
					pageID, call.Name, p.Name, p.Value, i); err != nil {
					return fmt.Errorf("inserting infobox_kv: %w", err)
				}
			}
		}
	}
	return nil
}

func isInfoboxCall(name string) bool {
	return len(name) >= 7 && name[:7] == "Infobox"
}

func insertSections(ctx context.Context, tx *sql.Tx, pageID int64, sections []wikitext.Section) error {
	for _, s := range sections {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO page_sections (page_id, section_index, heading, level, anchor, content, is_lead) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			pageID, s.Index, nullIfEmpty(s.Heading), nullIntIfZero(s.Level), nullIfEmpty(s.Anchor), s.Content, s.IsLead); err != nil {
			return fmt.Errorf("inserting page_sections: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO page_sections_fts (page_id, section_index, heading, content) VALUES (?, ?, ?, ?)`,
			pageID, s.Index, s.Heading, s.Content); err != nil {
			return fmt.Errorf("inserting page_sections_fts: %w", err)
		}
	}
	return nil
}

func nullIntIfZero(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func insertCargoConstructs(ctx context.Context, tx *sql.Tx, pageID int64, result *wikitext.Result) error {
	for _, d := range result.CargoDeclares {
		columnsJSON, err := json.Marshal(d.Columns)
		if err != nil {
			return fmt.Errorf("marshaling cargo columns: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cargo_tables (page_id, table_name, columns, declare_raw) VALUES (?, ?, ?, ?)
			 ON CONFLICT(page_id, table_name) DO UPDATE SET columns = excluded.columns, declare_raw = excluded.declare_raw`,
			pageID, d.TableName, string(columnsJSON), d.Raw); err != nil {
			return fmt.Errorf("inserting cargo_tables: %w", err)
		}
	}

	for _, s := range result.CargoStores {
		valuesJSON, err := json.Marshal(s.Values)
		if err != nil {
			return fmt.Errorf("marshaling cargo store values: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cargo_stores (page_id, table_name, values_json, store_raw) VALUES (?, ?, ?, ?)`,
			pageID, s.TableName, string(valuesJSON), s.Raw); err != nil {
			return fmt.Errorf("inserting cargo_stores: %w", err)
		}
	}

	for _, q := range result.CargoQueries {
		tablesJSON, err := json.Marshal(q.Tables)
		if err != nil {
			return err
		}
		var fieldsJSON, paramsJSON []byte
		if len(q.Fields) > 0 {
			fieldsJSON, err = json.Marshal(q.Fields)
			if err != nil {
				return err
			}
		}
		paramsJSON, err = json.Marshal(q.Params)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cargo_queries (page_id, query_type, tables, fields, params, query_raw) VALUES (?, ?, ?, ?, ?, ?)`,
			pageID, q.QueryType, string(tablesJSON), nullIfEmptyBytes(fieldsJSON), string(paramsJSON), q.Raw); err != nil {
			return fmt.Errorf("inserting cargo_queries: %w", err)
		}
	}
	return nil
}

func nullIfEmptyBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func insertModuleDeps(ctx context.Context, tx *sql.Tx, moduleTitle string, deps []wikitext.ModuleDep) error {
	for _, d := range deps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO module_deps (module_title, dependency, dep_type) VALUES (?, ?, ?)
			 ON CONFLICT(module_title, dependency, dep_type) DO NOTHING`,
			moduleTitle, d.Dependency, d.DepType); err != nil {
			return fmt.Errorf("inserting module_deps: %w", err)
		}
	}
	return nil
}

// templateDataDoc is the subset of the TemplateData JSON schema
// wikitool projects into template_metadata.param_defs.
type templateDataDoc struct {
	Description any                        `json:"description"`
	Params      map[string]templateDataParam `json:"params"`
}

type templateDataParam struct {
	Label       any `json:"label"`
	Description any `json:"description"`
	Type        any `json:"type"`
	Required    any `json:"required"`
}

// upsertTemplateMetadataFromJSON records a Template page's declared
// TemplateData as the authoritative ("templatedata") schema source,
// taking precedence over anything query.getTemplateSchema would
// otherwise infer from observed usage.
func upsertTemplateMetadataFromJSON(ctx context.Context, tx *sql.Tx, templateTitle, rawJSON string) error {
	var doc templateDataDoc
	if err := json.Unmarshal([]byte(rawJSON), &doc); err != nil {
		return engine.Newf(engine.KindParseError, templateTitle, fmt.Errorf("invalid templatedata JSON: %w", err))
	}

	paramDefs, err := json.Marshal(doc.Params)
	if err != nil {
		return err
	}

	name := templateNameFromTitle(templateTitle)
	var description string
	if s, ok := doc.Description.(string); ok {
		description = s
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO template_metadata (template_name, source, param_defs, description, updated_at)
		 VALUES (?, 'templatedata', ?, ?, datetime('now'))
		 ON CONFLICT(template_name) DO UPDATE SET
			source = 'templatedata', param_defs = excluded.param_defs,
			description = excluded.description, updated_at = excluded.updated_at`,
		name, string(paramDefs), nullIfEmpty(description))
	return err
}

func templateNameFromTitle(title string) string {
	for i := 0; i < len(title); i++ {
		if title[i] == ':' {
			return title[i+1:]
		}
	}
	return title
}
