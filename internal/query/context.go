package query

import (
	"context"
	"database/sql"
	"strconv"

	errs "github.com/remiliacorporation/wikitool/internal/errs"
	"github.com/remiliacorporation/wikitool/internal/store"
)

// ContextBundleOptions controls how much of a page's derived data
// GetContextBundle pulls in.
type ContextBundleOptions struct {
	IncludeContent bool
	MaxSections    int // 0 means no limit
	IncludeCargo   bool
}

// Section is one entry in a ContextBundle's Sections slice.
type Section struct {
	Index   int
	Heading string
	Level   int
	Content string
	IsLead  bool
}

// TemplateCallSummary is one entry in a ContextBundle's TemplateCalls.
type TemplateCallSummary struct {
	Name   string
	Params map[string]string
}

// InfoboxEntry is one {{Infobox ...}} call's named parameters, keyed
// by infobox template name.
type InfoboxEntry struct {
	InfoboxName string
	Params      map[string]string
}

// ContextBundle aggregates everything query callers typically need
// about one page in a single round trip, per spec.md §4.9.
type ContextBundle struct {
	Page          *store.Page
	Sections      []Section
	Categories    []string
	OutgoingLinks []string
	Infoboxes     []InfoboxEntry
	TemplateCalls []TemplateCallSummary

	// Populated only when the page is a template.
	Usage  *TemplateUsageStats
	Schema *TemplateSchema

	// Populated only when the page is a module.
	ModuleDeps []string

	// Populated only when opts.IncludeCargo and the page declares or
	// stores into a Cargo table.
	CargoTables []CargoTableSummary
	CargoStores []map[string]string
}

// CargoTableSummary is the declaration half of a Cargo table's context.
type CargoTableSummary struct {
	TableName string
	Columns   string
}

// GetContextBundle aggregates the page row with its sections (limited
// to opts.MaxSections), categories, templates, outgoing links, infobox
// entries, template calls, and — for templates — usage/schema, or —
// for modules — dependencies, plus (optionally) Cargo stores/schema.
func (q *Query) GetContextBundle(ctx context.Context, title string, opts ContextBundleOptions) (*ContextBundle, error) {
	page, err := q.Store.GetPage(ctx, title)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, errs.Newf(errs.KindMissingPage, title, nil)
	}
	if !opts.IncludeContent {
		page.Content = nil
	}

	bundle := &ContextBundle{Page: page}

	if bundle.Sections, err = q.loadSections(ctx, page.ID, opts.MaxSections); err != nil {
		return nil, err
	}
	if bundle.Categories, err = q.loadCategories(ctx, page.ID); err != nil {
		return nil, err
	}
	if bundle.OutgoingLinks, err = q.loadOutgoingLinks(ctx, page.ID); err != nil {
		return nil, err
	}
	if bundle.TemplateCalls, err = q.loadTemplateCalls(ctx, page.ID); err != nil {
		return nil, err
	}
	if bundle.Infoboxes, err = q.loadInfoboxes(ctx, page.ID); err != nil {
		return nil, err
	}

	if page.Namespace == 10 { // Template
		templateName := stripNamespacePrefix(title)
		stats, err := q.GetTemplateUsageStats(ctx, templateName, TemplateUsageOptions{})
		if err != nil {
			return nil, err
		}
		bundle.Usage = &stats
		schema, err := q.GetTemplateSchema(ctx, templateName)
		if err != nil {
			return nil, err
		}
		bundle.Schema = &schema
	}

	if page.Namespace == 828 { // Module
		if bundle.ModuleDeps, err = q.loadModuleDeps(ctx, title); err != nil {
			return nil, err
		}
	}

	if opts.IncludeCargo {
		if bundle.CargoTables, err = q.loadCargoTables(ctx, page.ID); err != nil {
			return nil, err
		}
		if bundle.CargoStores, err = q.loadCargoStores(ctx, page.ID); err != nil {
			return nil, err
		}
	}

	return bundle, nil
}

// stripNamespacePrefix strips a "Namespace:" prefix from title, the
// same transform index.templateNameFromTitle applies before storing
// template_calls/template_metadata rows under their bare template name.
func stripNamespacePrefix(title string) string {
	for i := 0; i < len(title); i++ {
		if title[i] == ':' {
			return title[i+1:]
		}
	}
	return title
}

func (q *Query) loadSections(ctx context.Context, pageID int64, maxSections int) ([]Section, error) {
	query := `SELECT section_index, heading, level, content, is_lead FROM page_sections WHERE page_id = ? ORDER BY section_index`
	args := []any{pageID}
	if maxSections > 0 {
		query += ` LIMIT ?`
		args = append(args, maxSections)
	}
	rows, err := q.Store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer rows.Close()

	var out []Section
	for rows.Next() {
		var s Section
		var heading sql.NullString
		var level sql.NullInt64
		if err := rows.Scan(&s.Index, &heading, &level, &s.Content, &s.IsLead); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, "", err)
		}
		s.Heading = heading.String
		s.Level = int(level.Int64)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *Query) loadCategories(ctx context.Context, pageID int64) ([]string, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT c.name FROM categories c
		JOIN page_categories pc ON pc.category_id = c.id
		WHERE pc.page_id = ? ORDER BY c.name`, pageID)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, "", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (q *Query) loadOutgoingLinks(ctx context.Context, pageID int64) ([]string, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT target_title FROM page_links WHERE source_page_id = ? ORDER BY target_title`, pageID)
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

func (q *Query) loadTemplateCalls(ctx context.Context, pageID int64) ([]TemplateCallSummary, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT id, template_name FROM template_calls WHERE page_id = ? ORDER BY call_index`, pageID)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer rows.Close()

	var out []TemplateCallSummary
	for rows.Next() {
		var callID int64
		var name string
		if err := rows.Scan(&callID, &name); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, "", err)
		}
		params, err := q.loadCallParams(ctx, callID)
		if err != nil {
			return nil, err
		}
		out = append(out, TemplateCallSummary{Name: name, Params: params})
	}
	return out, rows.Err()
}

func (q *Query) loadCallParams(ctx context.Context, callID int64) (map[string]string, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT param_index, param_name, param_value, is_named FROM template_params WHERE call_id = ?`, callID)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var idx int
		var paramName sql.NullString
		var value string
		var isNamed bool
		if err := rows.Scan(&idx, &paramName, &value, &isNamed); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, "", err)
		}
		key := paramName.String
		if !isNamed || !paramName.Valid {
			key = strconv.Itoa(idx)
		}
		out[key] = value
	}
	return out, rows.Err()
}

func (q *Query) loadInfoboxes(ctx context.Context, pageID int64) ([]InfoboxEntry, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT infobox_name, call_index, param_name, param_value
		FROM infobox_kv WHERE page_id = ? ORDER BY call_index`, pageID)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer rows.Close()

	byCall := make(map[int]*InfoboxEntry)
	var order []int
	for rows.Next() {
		var name string
		var callIndex int
		var paramName, paramValue string
		if err := rows.Scan(&name, &callIndex, &paramName, &paramValue); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, "", err)
		}
		entry, ok := byCall[callIndex]
		if !ok {
			entry = &InfoboxEntry{InfoboxName: name, Params: make(map[string]string)}
			byCall[callIndex] = entry
			order = append(order, callIndex)
		}
		entry.Params[paramName] = paramValue
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}

	out := make([]InfoboxEntry, 0, len(order))
	for _, idx := range order {
		out = append(out, *byCall[idx])
	}
	return out, nil
}

func (q *Query) loadModuleDeps(ctx context.Context, moduleTitle string) ([]string, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT dependency FROM module_deps WHERE module_title = ? ORDER BY dependency`, moduleTitle)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, moduleTitle, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, moduleTitle, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *Query) loadCargoTables(ctx context.Context, pageID int64) ([]CargoTableSummary, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT table_name, columns FROM cargo_tables WHERE page_id = ?`, pageID)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer rows.Close()

	var out []CargoTableSummary
	for rows.Next() {
		var s CargoTableSummary
		if err := rows.Scan(&s.TableName, &s.Columns); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, "", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *Query) loadCargoStores(ctx context.Context, pageID int64) ([]map[string]string, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT values_json FROM cargo_stores WHERE page_id = ?`, pageID)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer rows.Close()

	var out []map[string]string
	for rows.Next() {
		var valuesJSON string
		if err := rows.Scan(&valuesJSON); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, "", err)
		}
		var values map[string]string
		if err := json.Unmarshal([]byte(valuesJSON), &values); err != nil {
			return nil, errs.Newf(errs.KindParseError, "", err)
		}
		out = append(out, values)
	}
	return out, rows.Err()
}

