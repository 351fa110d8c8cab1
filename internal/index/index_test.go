package index

import (
	"context"
	"testing"

	"github.com/remiliacorporation/wikitool/internal/codec"
	"github.com/remiliacorporation/wikitool/internal/store"
)

func newTestDeps(t *testing.T) (Deps, *store.Store) {
	t.Helper()
	s, err := store.Open("sqlite:///:memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	return Deps{
		Store:             s,
		Table:             codec.DefaultTable(),
		InterwikiPrefixes: map[string]bool{"wikipedia": true},
	}, s
}

func upsertContentPage(t *testing.T, s *store.Store, title string, ns int, content string) *store.Page {
	t.Helper()
	ctx := context.Background()
	n := ns
	if _, err := s.UpsertPage(ctx, store.PagePatch{
		Title: title, Namespace: &n, Content: []byte(content), HasContent: true,
	}); err != nil {
		t.Fatalf("UpsertPage(%q): %v", title, err)
	}
	p, err := s.GetPage(ctx, title)
	if err != nil || p == nil {
		t.Fatalf("GetPage(%q): %v", title, err)
	}
	return p
}

func TestUpdatePageIndexArticle(t *testing.T) {
	d, s := newTestDeps(t)
	ctx := context.Background()

	content := `{{SHORTDESC:A test article}}
'''Example''' is a thing. [[Category:Examples]]

Some text linking to [[Other Page|elsewhere]].

== History ==
More text here about the subject in question.
`
	page := upsertContentPage(t, s, "Example", codec.NSMain, content)

	if err := UpdatePageIndex(ctx, d, page); err != nil {
		t.Fatalf("UpdatePageIndex: %v", err)
	}

	updated, err := s.GetPage(ctx, "Example")
	if err != nil {
		t.Fatal(err)
	}
	if updated.ShortDesc != "A test article" {
		t.Errorf("ShortDesc = %q, want %q", updated.ShortDesc, "A test article")
	}
	if updated.WordCount == 0 {
		t.Error("expected a non-zero word count")
	}

	var linkCount int
	if err := s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM page_links WHERE source_page_id = ? AND target_title = ?`,
		page.ID, "Other Page").Scan(&linkCount); err != nil {
		t.Fatal(err)
	}
	if linkCount != 1 {
		t.Errorf("expected 1 page_links row for Other Page, got %d", linkCount)
	}

	var catCount int
	if err := s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM page_categories pc JOIN categories c ON c.id = pc.category_id
		 WHERE pc.page_id = ? AND c.name = ?`, page.ID, "Examples").Scan(&catCount); err != nil {
		t.Fatal(err)
	}
	if catCount != 1 {
		t.Errorf("expected 1 page_categories row for Examples, got %d", catCount)
	}

	var sectionCount int
	if err := s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM page_sections WHERE page_id = ?`, page.ID).Scan(&sectionCount); err != nil {
		t.Fatal(err)
	}
	if sectionCount != 2 {
		t.Errorf("expected lead + History sections (2), got %d", sectionCount)
	}
}

func TestUpdatePageIndexRedirectOnlyWritesRedirectRow(t *testing.T) {
	d, s := newTestDeps(t)
	ctx := context.Background()

	page := upsertContentPage(t, s, "Old Name", codec.NSMain, "#REDIRECT [[New Name]]")

	if err := UpdatePageIndex(ctx, d, page); err != nil {
		t.Fatalf("UpdatePageIndex: %v", err)
	}

	var target string
	if err := s.DB().QueryRowContext(ctx,
		`SELECT target_title FROM redirects WHERE source_title = ?`, "Old Name").Scan(&target); err != nil {
		t.Fatalf("redirects row missing: %v", err)
	}
	if target != "New Name" {
		t.Errorf("target = %q, want %q", target, "New Name")
	}

	var linkCount int
	if err := s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM page_links WHERE source_page_id = ?`, page.ID).Scan(&linkCount); err != nil {
		t.Fatal(err)
	}
	if linkCount != 0 {
		t.Errorf("expected no page_links rows for a redirect page, got %d", linkCount)
	}
}

func TestUpdatePageIndexModuleNamespaceOnlyWritesModuleDeps(t *testing.T) {
	d, s := newTestDeps(t)
	ctx := context.Background()

	content := `local p = {}
local str = require('Module:String')
local data = mw.loadData('Module:Data')
return p
`
	page := upsertContentPage(t, s, "Module:Helper", codec.NSModule, content)

	if err := UpdatePageIndex(ctx, d, page); err != nil {
		t.Fatalf("UpdatePageIndex: %v", err)
	}

	var depCount int
	if err := s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM module_deps WHERE module_title = ?`, "Module:Helper").Scan(&depCount); err != nil {
		t.Fatal(err)
	}
	if depCount != 2 {
		t.Errorf("expected 2 module_deps rows, got %d", depCount)
	}

	var sectionCount int
	if err := s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM page_sections WHERE page_id = ?`, page.ID).Scan(&sectionCount); err != nil {
		t.Fatal(err)
	}
	if sectionCount != 0 {
		t.Errorf("expected no page_sections rows for a module page, got %d", sectionCount)
	}
}

func TestUpdatePageIndexTemplateDataUpsertsMetadata(t *testing.T) {
	d, s := newTestDeps(t)
	ctx := context.Background()

	content := `<templatedata>
{
	"description": "Infobox for a person",
	"params": {
		"name": {"label": "Name", "type": "string", "required": true}
	}
}
</templatedata>
`
	page := upsertContentPage(t, s, "Template:Infobox Person", codec.NSTemplate, content)

	if err := UpdatePageIndex(ctx, d, page); err != nil {
		t.Fatalf("UpdatePageIndex: %v", err)
	}

	var source, description string
	if err := s.DB().QueryRowContext(ctx,
		`SELECT source, description FROM template_metadata WHERE template_name = ?`,
		"Infobox Person").Scan(&source, &description); err != nil {
		t.Fatalf("template_metadata row missing: %v", err)
	}
	if source != "templatedata" {
		t.Errorf("source = %q, want templatedata", source)
	}
	if description != "Infobox for a person" {
		t.Errorf("description = %q", description)
	}
}

func TestUpdatePageIndexIsIdempotent(t *testing.T) {
	d, s := newTestDeps(t)
	ctx := context.Background()

	content := "Links to [[A]] and [[B]]. [[Category:X]]"
	page := upsertContentPage(t, s, "Repeated", codec.NSMain, content)

	for i := 0; i < 2; i++ {
		if err := UpdatePageIndex(ctx, d, page); err != nil {
			t.Fatalf("UpdatePageIndex (pass %d): %v", i, err)
		}
	}

	var linkCount int
	if err := s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM page_links WHERE source_page_id = ?`, page.ID).Scan(&linkCount); err != nil {
		t.Fatal(err)
	}
	if linkCount != 2 {
		t.Errorf("expected 2 page_links rows after re-indexing, got %d (duplicates not cleared)", linkCount)
	}

	var catCount int
	if err := s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM page_categories WHERE page_id = ?`, page.ID).Scan(&catCount); err != nil {
		t.Fatal(err)
	}
	if catCount != 1 {
		t.Errorf("expected 1 page_categories row after re-indexing, got %d", catCount)
	}
}

func TestRebuildIndexRepopulatesAllPages(t *testing.T) {
	d, s := newTestDeps(t)
	ctx := context.Background()

	upsertContentPage(t, s, "Alpha", codec.NSMain, "Links to [[Beta]]. [[Category:Letters]]")
	upsertContentPage(t, s, "Beta", codec.NSMain, "Links to [[Alpha]]. [[Category:Letters]]")

	result, err := RebuildIndex(ctx, d, RebuildOptions{})
	if err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	if result.Processed != 2 || result.Succeeded != 2 {
		t.Errorf("result = %+v, want Processed=2 Succeeded=2", result)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %+v", result.Errors)
	}

	var linkCount int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM page_links`).Scan(&linkCount); err != nil {
		t.Fatal(err)
	}
	if linkCount != 2 {
		t.Errorf("expected 2 page_links rows total, got %d", linkCount)
	}

	// Rerunning should truncate and repopulate, not duplicate.
	if _, err := RebuildIndex(ctx, d, RebuildOptions{}); err != nil {
		t.Fatalf("second RebuildIndex: %v", err)
	}
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM page_links`).Scan(&linkCount); err != nil {
		t.Fatal(err)
	}
	if linkCount != 2 {
		t.Errorf("expected 2 page_links rows after second rebuild, got %d", linkCount)
	}
}

func TestRebuildIndexNamespaceFilter(t *testing.T) {
	d, s := newTestDeps(t)
	ctx := context.Background()

	upsertContentPage(t, s, "Alpha", codec.NSMain, "[[Category:Letters]]")
	upsertContentPage(t, s, "Category:Letters", codec.NSCategory, "A category page.")

	ns := codec.NSMain
	result, err := RebuildIndex(ctx, d, RebuildOptions{Namespace: &ns})
	if err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	if result.Processed != 1 {
		t.Errorf("Processed = %d, want 1 (namespace-filtered)", result.Processed)
	}
}

func TestRebuildIndexCollectsPerPageErrorsWithoutAborting(t *testing.T) {
	d, s := newTestDeps(t)
	ctx := context.Background()

	upsertContentPage(t, s, "Good", codec.NSMain, "[[Category:Letters]]")
	// A Template: page with malformed TemplateData JSON should fail to
	// upsert metadata without aborting the rest of the rebuild.
	upsertContentPage(t, s, "Template:Broken", codec.NSTemplate, "<templatedata>{not valid json</templatedata>")

	result, err := RebuildIndex(ctx, d, RebuildOptions{})
	if err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	if result.Processed != 2 {
		t.Errorf("Processed = %d, want 2", result.Processed)
	}
	if result.Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", result.Succeeded)
	}
	if len(result.Errors) != 1 || result.Errors[0].Title != "Template:Broken" {
		t.Errorf("Errors = %+v, want one entry for Template:Broken", result.Errors)
	}
}

func TestRebuildIndexProgressCallback(t *testing.T) {
	d, s := newTestDeps(t)
	ctx := context.Background()

	upsertContentPage(t, s, "Alpha", codec.NSMain, "plain text")
	upsertContentPage(t, s, "Beta", codec.NSMain, "plain text")

	var calls []int
	_, err := RebuildIndex(ctx, d, RebuildOptions{
		OnProgress: func(processed, total int) {
			calls = append(calls, processed)
			if total != 2 {
				t.Errorf("total = %d, want 2", total)
			}
		},
	})
	if err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Errorf("progress calls = %v, want [1 2]", calls)
	}
}
