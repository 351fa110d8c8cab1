package query

import (
	"context"
	"testing"

	"github.com/remiliacorporation/wikitool/internal/codec"
)

func TestCargoDeclareStoreAndContext(t *testing.T) {
	q, s := newTestQuery(t)
	ctx := context.Background()

	content := `{{#cargo_declare:_table=Rivers|Name=String|Length=Integer}}
{{#cargo_store:_table=Rivers|Name=Nile|Length=6650}}
{{#cargo_query:tables=Rivers|fields=Name,Length|where=Length>1000}}`
	upsertAndIndex(t, s, "Rivers Data", codec.NSMain, content)

	tableCtx, err := q.GetCargoTableContext(ctx, "Rivers")
	if err != nil {
		t.Fatalf("GetCargoTableContext: %v", err)
	}
	if tableCtx.DeclaringPage != "Rivers Data" {
		t.Errorf("DeclaringPage = %q, want Rivers Data", tableCtx.DeclaringPage)
	}
	if len(tableCtx.Stores) != 1 || tableCtx.Stores[0].Values["Name"] != "Nile" {
		t.Fatalf("Stores = %+v, want one store with Name=Nile", tableCtx.Stores)
	}
	if tableCtx.QueryCount != 1 {
		t.Errorf("QueryCount = %d, want 1", tableCtx.QueryCount)
	}

	mismatches, err := q.GetCargoSchemaMismatches(ctx)
	if err != nil {
		t.Fatalf("GetCargoSchemaMismatches: %v", err)
	}
	if len(mismatches) != 0 {
		t.Fatalf("GetCargoSchemaMismatches = %+v, want none yet", mismatches)
	}

	mismatchContent := `{{#cargo_declare:_table=Rivers|Name=String|Length=Integer}}
{{#cargo_store:_table=Rivers|Name=Amazon|Length=6400|Continent=South America}}`
	upsertAndIndex(t, s, "More Rivers", codec.NSMain, mismatchContent)

	mismatches, err = q.GetCargoSchemaMismatches(ctx)
	if err != nil {
		t.Fatalf("GetCargoSchemaMismatches after extra field: %v", err)
	}
	found := false
	for _, m := range mismatches {
		if m.TableName == "Rivers" && m.Field == "Continent" && m.PageTitle == "More Rivers" {
			found = true
		}
	}
	if !found {
		t.Fatalf("GetCargoSchemaMismatches = %+v, want a Continent mismatch on More Rivers", mismatches)
	}
}
