package query

import (
	"context"
	"database/sql"
	"sort"

	errs "github.com/remiliacorporation/wikitool/internal/errs"
)

// TemplateUsageOptions bounds how many example values and distinct
// parameters UsageStats gathers.
type TemplateUsageOptions struct {
	SampleLimit int // example values kept per parameter, 0 means a default of 5
	ValueLimit  int // distinct parameters reported, 0 means unlimited
}

// ParamUsage describes one named template parameter's observed usage.
type ParamUsage struct {
	Name          string
	UsageCount    int
	PageCount     int
	ExampleValues []string
}

// TemplateUsageStats is the result of GetTemplateUsageStats.
type TemplateUsageStats struct {
	TotalCalls       int
	TotalPages       int
	NamedParams      []ParamUsage
	PositionalParams []ParamUsage
}

// GetTemplateUsageStats aggregates every call to template name: total
// calls, distinct pages, and per-parameter usage with example values,
// per spec.md §8 scenario 4.
func (q *Query) GetTemplateUsageStats(ctx context.Context, name string, opts TemplateUsageOptions) (TemplateUsageStats, error) {
	sampleLimit := opts.SampleLimit
	if sampleLimit <= 0 {
		sampleLimit = 5
	}

	var stats TemplateUsageStats
	row := q.Store.DB().QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT page_id) FROM template_calls WHERE template_name = ?`, name)
	if err := row.Scan(&stats.TotalCalls, &stats.TotalPages); err != nil {
		return stats, errs.Newf(errs.KindFilesystemError, name, err)
	}

	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT tp.param_name, tp.param_value, tp.is_named, tc.page_id
		FROM template_params tp
		JOIN template_calls tc ON tc.id = tp.call_id
		WHERE tc.template_name = ?`, name)
	if err != nil {
		return stats, errs.Newf(errs.KindFilesystemError, name, err)
	}
	defer rows.Close()

	named := make(map[string]*agg)
	positional := make(map[string]*agg)

	for rows.Next() {
		var paramName sql.NullString
		var value string
		var isNamed bool
		var pageID int64
		if err := rows.Scan(&paramName, &value, &isNamed, &pageID); err != nil {
			return stats, errs.Newf(errs.KindFilesystemError, name, err)
		}

		bucket := positional
		key := paramName.String
		if isNamed && paramName.Valid {
			bucket = named
		} else {
			key = "positional"
		}

		a, ok := bucket[key]
		if !ok {
			a = &agg{pages: make(map[int64]bool)}
			bucket[key] = a
		}
		a.usage++
		a.pages[pageID] = true
		if len(a.values) < sampleLimit {
			a.values = append(a.values, value)
		}
	}
	if err := rows.Err(); err != nil {
		return stats, errs.Newf(errs.KindFilesystemError, name, err)
	}

	stats.NamedParams = flattenAgg(named, opts.ValueLimit)
	stats.PositionalParams = flattenAgg(positional, opts.ValueLimit)
	return stats, nil
}

// agg accumulates one template parameter's observed usage while
// scanning template_params rows.
type agg struct {
	usage  int
	pages  map[int64]bool
	values []string
}

func flattenAgg(m map[string]*agg, valueLimit int) []ParamUsage {
	out := make([]ParamUsage, 0, len(m))
	for name, a := range m {
		out = append(out, ParamUsage{
			Name:          name,
			UsageCount:    a.usage,
			PageCount:     len(a.pages),
			ExampleValues: a.values,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount > out[j].UsageCount
		}
		return out[i].Name < out[j].Name
	})
	if valueLimit > 0 && len(out) > valueLimit {
		out = out[:valueLimit]
	}
	return out
}

// SchemaParam is one parameter in a template's merged schema.
type SchemaParam struct {
	Name        string
	Source      string // "templatedata" | "observed" | "merged"
	Label       string
	Description string
	Type        string
	Required    bool
}

// TemplateSchema is the result of GetTemplateSchema.
type TemplateSchema struct {
	TemplateName string
	Description  string
	Params       []SchemaParam
}

// GetTemplateSchema merges the declared template_metadata (if any)
// with parameters observed in actual usage, marking each parameter's
// provenance, per spec.md §4.9.
func (q *Query) GetTemplateSchema(ctx context.Context, name string) (TemplateSchema, error) {
	schema := TemplateSchema{TemplateName: name}

	declared, err := loadDeclaredParams(ctx, q.Store.DB(), name, &schema.Description)
	if err != nil {
		return schema, err
	}

	observedStats, err := q.GetTemplateUsageStats(ctx, name, TemplateUsageOptions{})
	if err != nil {
		return schema, err
	}

	seen := make(map[string]bool, len(declared))
	for _, d := range declared {
		if _, hasObserved := findParamUsage(observedStats.NamedParams, d.Name); hasObserved {
			d.Source = "merged"
		}
		schema.Params = append(schema.Params, d)
		seen[d.Name] = true
	}
	for _, p := range observedStats.NamedParams {
		if seen[p.Name] {
			continue
		}
		schema.Params = append(schema.Params, SchemaParam{Name: p.Name, Source: "observed"})
	}

	sort.Slice(schema.Params, func(i, j int) bool { return schema.Params[i].Name < schema.Params[j].Name })
	return schema, nil
}

func findParamUsage(params []ParamUsage, name string) (ParamUsage, bool) {
	for _, p := range params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamUsage{}, false
}

func loadDeclaredParams(ctx context.Context, db dbQuerier, name string, description *string) ([]SchemaParam, error) {
	var paramDefsJSON sql.NullString
	var desc sql.NullString
	row := db.QueryRowContext(ctx, `SELECT param_defs, description FROM template_metadata WHERE template_name = ?`, name)
	if err := row.Scan(&paramDefsJSON, &desc); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errs.Newf(errs.KindFilesystemError, name, err)
	}
	if desc.Valid {
		*description = desc.String
	}
	if !paramDefsJSON.Valid || paramDefsJSON.String == "" {
		return nil, nil
	}

	var raw map[string]struct {
		Label       any `json:"label"`
		Description any `json:"description"`
		Type        any `json:"type"`
		Required    any `json:"required"`
	}
	if err := json.Unmarshal([]byte(paramDefsJSON.String), &raw); err != nil {
		return nil, errs.Newf(errs.KindParseError, name, err)
	}

	out := make([]SchemaParam, 0, len(raw))
	for paramName, def := range raw {
		sp := SchemaParam{Name: paramName, Source: "templatedata"}
		if s, ok := def.Label.(string); ok {
			sp.Label = s
		}
		if s, ok := def.Description.(string); ok {
			sp.Description = s
		}
		if s, ok := def.Type.(string); ok {
			sp.Type = s
		}
		if b, ok := def.Required.(bool); ok {
			sp.Required = b
		}
		out = append(out, sp)
	}
	return out, nil
}

type dbQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
