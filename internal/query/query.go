// Package query implements wikitool's read-only aggregations over the
// derived tables index.UpdatePageIndex/index.RebuildIndex populate:
// backlinks, orphans, broken links, double redirects, template usage
// stats and schema inference, and per-page context bundles. Grounded
// on the teacher's WikiService.Backlinks/PageIndex/PageTree — the same
// "aggregate over the store, never mutate" shape, generalized from a
// single page_links table to the full derived schema spec.md §4.9 names.
package query

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/remiliacorporation/wikitool/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Query bundles the store every aggregation reads from.
type Query struct {
	Store *store.Store
}

// New constructs a Query over s.
func New(s *store.Store) *Query {
	return &Query{Store: s}
}
