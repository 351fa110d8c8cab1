package query

import (
	"context"
	"testing"

	"github.com/remiliacorporation/wikitool/internal/codec"
)

func TestGetContextBundleArticle(t *testing.T) {
	q, s := newTestQuery(t)
	ctx := context.Background()

	content := `{{Infobox person|name=Dana|age=50}}
'''Dana''' is a person. [[Category:People]]

Links to [[Other Page]].

== Biography ==
More details here.
`
	upsertAndIndex(t, s, "Dana Page", codec.NSMain, content)

	bundle, err := q.GetContextBundle(ctx, "Dana Page", ContextBundleOptions{})
	if err != nil {
		t.Fatalf("GetContextBundle: %v", err)
	}
	if bundle.Page.Title != "Dana Page" {
		t.Errorf("Page.Title = %q", bundle.Page.Title)
	}
	if bundle.Page.Content != nil {
		t.Errorf("expected content zeroed when IncludeContent is false")
	}
	if len(bundle.Sections) != 2 {
		t.Errorf("Sections = %+v, want lead + Biography (2)", bundle.Sections)
	}
	if len(bundle.Categories) != 1 || bundle.Categories[0] != "People" {
		t.Errorf("Categories = %+v, want [People]", bundle.Categories)
	}
	if len(bundle.OutgoingLinks) != 1 || bundle.OutgoingLinks[0] != "Other Page" {
		t.Errorf("OutgoingLinks = %+v, want [Other Page]", bundle.OutgoingLinks)
	}
	if len(bundle.TemplateCalls) != 1 || bundle.TemplateCalls[0].Name != "Infobox person" {
		t.Fatalf("TemplateCalls = %+v", bundle.TemplateCalls)
	}
	if bundle.TemplateCalls[0].Params["name"] != "Dana" {
		t.Errorf("TemplateCalls[0].Params = %+v", bundle.TemplateCalls[0].Params)
	}
	if len(bundle.Infoboxes) != 1 || bundle.Infoboxes[0].InfoboxName != "Infobox person" {
		t.Fatalf("Infoboxes = %+v", bundle.Infoboxes)
	}
	if bundle.Infoboxes[0].Params["age"] != "50" {
		t.Errorf("Infoboxes[0].Params = %+v", bundle.Infoboxes[0].Params)
	}
	if bundle.Usage != nil {
		t.Errorf("Usage should be nil for a non-template page")
	}
}

func TestGetContextBundleTemplate(t *testing.T) {
	q, s := newTestQuery(t)
	ctx := context.Background()

	upsertAndIndex(t, s, "Person A", codec.NSMain, "{{Infobox person|name=Alice|age=30}}")
	upsertAndIndex(t, s, "Template:Infobox person", codec.NSTemplate, "A template for describing a person.")

	bundle, err := q.GetContextBundle(ctx, "Template:Infobox person", ContextBundleOptions{})
	if err != nil {
		t.Fatalf("GetContextBundle: %v", err)
	}
	if bundle.Usage == nil {
		t.Fatal("expected Usage to be populated for a template page")
	}
	if bundle.Schema == nil {
		t.Fatal("expected Schema to be populated for a template page")
	}
}

func TestGetContextBundleMissingPage(t *testing.T) {
	q, _ := newTestQuery(t)
	ctx := context.Background()

	if _, err := q.GetContextBundle(ctx, "Does Not Exist", ContextBundleOptions{}); err == nil {
		t.Fatal("expected an error for a missing page")
	}
}
