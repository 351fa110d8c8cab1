package query

import (
	"context"
	"testing"

	"github.com/remiliacorporation/wikitool/internal/codec"
	"github.com/remiliacorporation/wikitool/internal/index"
	"github.com/remiliacorporation/wikitool/internal/store"
)

func newTestQuery(t *testing.T) (*Query, *store.Store) {
	t.Helper()
	s, err := store.Open("sqlite:///:memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return New(s), s
}

func indexDeps(s *store.Store) index.Deps {
	return index.Deps{
		Store:             s,
		Table:             codec.DefaultTable(),
		InterwikiPrefixes: map[string]bool{"wikipedia": true},
	}
}

func upsertAndIndex(t *testing.T, s *store.Store, title string, ns int, content string) *store.Page {
	t.Helper()
	ctx := context.Background()
	n := ns
	if _, err := s.UpsertPage(ctx, store.PagePatch{
		Title: title, Namespace: &n, Content: []byte(content), HasContent: true,
	}); err != nil {
		t.Fatalf("UpsertPage(%q): %v", title, err)
	}
	page, err := s.GetPage(ctx, title)
	if err != nil || page == nil {
		t.Fatalf("GetPage(%q): %v", title, err)
	}
	if err := index.UpdatePageIndex(ctx, indexDeps(s), page); err != nil {
		t.Fatalf("UpdatePageIndex(%q): %v", title, err)
	}
	page, err = s.GetPage(ctx, title)
	if err != nil || page == nil {
		t.Fatalf("GetPage(%q) after index: %v", title, err)
	}
	return page
}
