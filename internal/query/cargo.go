package query

import (
	"context"

	errs "github.com/remiliacorporation/wikitool/internal/errs"
)

// CargoStoreRow is one cargo_stores row's decoded values, with the
// declaring page title of the store call.
type CargoStoreRow struct {
	PageTitle string
	Values    map[string]string
}

// CargoTableContext aggregates one Cargo table's declaration,
// declaring page, stores, queries, and a field-usage histogram.
type CargoTableContext struct {
	TableName     string
	Columns       string
	DeclaringPage string
	Stores        []CargoStoreRow
	QueryCount    int
	FieldUsage    []NameCount
}

// GetCargoTableContext aggregates everything known about tableName:
// its declaration, the page that declared it, every store into it,
// the queries that reference it, and a histogram of which declared
// fields actually appear in stores.
func (q *Query) GetCargoTableContext(ctx context.Context, tableName string) (CargoTableContext, error) {
	ctxResult := CargoTableContext{TableName: tableName}

	row := q.Store.DB().QueryRowContext(ctx, `
		SELECT ct.columns, p.title
		FROM cargo_tables ct JOIN pages p ON p.id = ct.page_id
		WHERE ct.table_name = ?`, tableName)
	if err := row.Scan(&ctxResult.Columns, &ctxResult.DeclaringPage); err != nil {
		return ctxResult, errs.Newf(errs.KindFilesystemError, tableName, err)
	}

	stores, err := q.loadCargoStoresForTable(ctx, tableName)
	if err != nil {
		return ctxResult, err
	}
	ctxResult.Stores = stores

	fieldCounts := make(map[string]int)
	for _, s := range stores {
		for field := range s.Values {
			fieldCounts[field]++
		}
	}
	for field, n := range fieldCounts {
		ctxResult.FieldUsage = append(ctxResult.FieldUsage, NameCount{Name: field, Count: n})
	}

	err = q.Store.DB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM cargo_queries WHERE tables LIKE '%' || ? || '%'`, tableName).
		Scan(&ctxResult.QueryCount)
	if err != nil {
		return ctxResult, errs.Newf(errs.KindFilesystemError, tableName, err)
	}

	return ctxResult, nil
}

func (q *Query) loadCargoStoresForTable(ctx context.Context, tableName string) ([]CargoStoreRow, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT p.title, cs.values_json
		FROM cargo_stores cs JOIN pages p ON p.id = cs.page_id
		WHERE cs.table_name = ?`, tableName)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, tableName, err)
	}
	defer rows.Close()

	var out []CargoStoreRow
	for rows.Next() {
		var pageTitle, valuesJSON string
		if err := rows.Scan(&pageTitle, &valuesJSON); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, tableName, err)
		}
		var values map[string]string
		if err := json.Unmarshal([]byte(valuesJSON), &values); err != nil {
			return nil, errs.Newf(errs.KindParseError, tableName, err)
		}
		out = append(out, CargoStoreRow{PageTitle: pageTitle, Values: values})
	}
	return out, rows.Err()
}

// CargoSchemaMismatch reports a store field unknown to its table's
// declared columns.
type CargoSchemaMismatch struct {
	TableName string
	PageTitle string
	Field     string
}

// cargoColumn is the shape of one element of cargo_tables.columns —
// the same fields as wikitext.CargoColumn, duplicated here so query
// doesn't need to import wikitext just for this struct.
type cargoColumn struct {
	Name string
	Type string
}

// GetCargoSchemaMismatches reports every cargo_stores field not
// present in its table's declared columns, per spec.md §8 scenario 5.
func (q *Query) GetCargoSchemaMismatches(ctx context.Context) ([]CargoSchemaMismatch, error) {
	rows, err := q.Store.DB().QueryContext(ctx, `SELECT table_name, columns FROM cargo_tables`)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	declaredFields := make(map[string]map[string]bool)
	for rows.Next() {
		var tableName, columnsJSON string
		if err := rows.Scan(&tableName, &columnsJSON); err != nil {
			rows.Close()
			return nil, errs.Newf(errs.KindFilesystemError, "", err)
		}
		var cols []cargoColumn
		if err := json.Unmarshal([]byte(columnsJSON), &cols); err != nil {
			rows.Close()
			return nil, errs.Newf(errs.KindParseError, tableName, err)
		}
		fields := make(map[string]bool, len(cols))
		for _, c := range cols {
			fields[c.Name] = true
		}
		declaredFields[tableName] = fields
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	rows.Close()

	storeRows, err := q.Store.DB().QueryContext(ctx, `
		SELECT p.title, cs.table_name, cs.values_json
		FROM cargo_stores cs JOIN pages p ON p.id = cs.page_id`)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer storeRows.Close()

	var mismatches []CargoSchemaMismatch
	for storeRows.Next() {
		var pageTitle, tableName, valuesJSON string
		if err := storeRows.Scan(&pageTitle, &tableName, &valuesJSON); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, "", err)
		}
		var values map[string]string
		if err := json.Unmarshal([]byte(valuesJSON), &values); err != nil {
			return nil, errs.Newf(errs.KindParseError, tableName, err)
		}
		fields := declaredFields[tableName]
		for field := range values {
			if !fields[field] {
				mismatches = append(mismatches, CargoSchemaMismatch{
					TableName: tableName, PageTitle: pageTitle, Field: field,
				})
			}
		}
	}
	return mismatches, storeRows.Err()
}
