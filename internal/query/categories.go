package query

import (
	"context"

	errs "github.com/remiliacorporation/wikitool/internal/errs"
)

// EmptyCategoriesOptions bounds what counts as "empty".
type EmptyCategoriesOptions struct {
	MinMembers int // a category with fewer members than this counts as empty; 0 means "exactly zero members"
}

// EmptyCategory is one category with fewer members than the threshold.
type EmptyCategory struct {
	Name        string
	MemberCount int
}

// GetEmptyCategories returns every category whose member count is
// below opts.MinMembers (default: zero members).
func (q *Query) GetEmptyCategories(ctx context.Context, opts EmptyCategoriesOptions) ([]EmptyCategory, error) {
	threshold := opts.MinMembers
	if threshold <= 0 {
		threshold = 1
	}

	rows, err := q.Store.DB().QueryContext(ctx, `
		SELECT c.name, COUNT(pc.page_id) AS n
		FROM categories c
		LEFT JOIN page_categories pc ON pc.category_id = c.id
		GROUP BY c.name
		HAVING n < ?
		ORDER BY c.name`, threshold)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystemError, "", err)
	}
	defer rows.Close()

	var out []EmptyCategory
	for rows.Next() {
		var ec EmptyCategory
		if err := rows.Scan(&ec.Name, &ec.MemberCount); err != nil {
			return nil, errs.Newf(errs.KindFilesystemError, "", err)
		}
		out = append(out, ec)
	}
	return out, rows.Err()
}

// PruneEmptyCategoriesOptions controls PruneEmptyCategories.
type PruneEmptyCategoriesOptions struct {
	Apply bool // if false, report what would be pruned without deleting
}

// PruneEmptyCategoriesResult reports what PruneEmptyCategories removed
// (or would remove, when Apply is false).
type PruneEmptyCategoriesResult struct {
	Removed []string
}

// PruneEmptyCategories deletes every category with zero members. With
// Apply=false it only reports candidates, matching spec.md §8's
// "apply:true then immediate rerun removes zero additional categories"
// idempotence property.
func (q *Query) PruneEmptyCategories(ctx context.Context, opts PruneEmptyCategoriesOptions) (PruneEmptyCategoriesResult, error) {
	empty, err := q.GetEmptyCategories(ctx, EmptyCategoriesOptions{MinMembers: 1})
	if err != nil {
		return PruneEmptyCategoriesResult{}, err
	}

	result := PruneEmptyCategoriesResult{}
	for _, ec := range empty {
		result.Removed = append(result.Removed, ec.Name)
	}

	if !opts.Apply {
		return result, nil
	}

	for _, name := range result.Removed {
		if _, err := q.Store.DB().ExecContext(ctx, `DELETE FROM categories WHERE name = ?`, name); err != nil {
			return result, errs.Newf(errs.KindFilesystemError, name, err)
		}
	}
	return result, nil
}
