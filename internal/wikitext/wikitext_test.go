package wikitext

import "testing"

func TestParseDetectsRedirect(t *testing.T) {
	r := Parse("#REDIRECT [[Target Page]]", Options{})
	if r.RedirectTarget != "Target Page" {
		t.Fatalf("RedirectTarget = %q, want %q", r.RedirectTarget, "Target Page")
	}
	if len(r.Links) != 0 || len(r.Sections) != 0 {
		t.Fatalf("redirect pages should short-circuit all other scanning, got %+v", r)
	}
}

func TestParseModuleNamespaceOnlyScansDeps(t *testing.T) {
	content := `local p = {}
local str = require("Module:String")
local data = mw.loadData("Module:Data")
return p`
	r := Parse(content, Options{IsModuleNamespace: true})
	if len(r.ModuleDeps) != 2 {
		t.Fatalf("ModuleDeps = %+v, want 2 entries", r.ModuleDeps)
	}
	if r.ModuleDeps[0].DepType != "require" || r.ModuleDeps[0].Dependency != "Module:String" {
		t.Fatalf("first dep = %+v", r.ModuleDeps[0])
	}
	if r.ModuleDeps[1].DepType != "loadData" || r.ModuleDeps[1].Dependency != "Module:Data" {
		t.Fatalf("second dep = %+v", r.ModuleDeps[1])
	}
}

func TestParseLinksAndCategories(t *testing.T) {
	content := `Intro [[Foo Bar|foo]] text [[Category:Animals]] [[File:Cat.png|thumb]] [[:Category:Listed]]`
	r := Parse(content, Options{})
	if len(r.Categories) != 1 || r.Categories[0] != "Animals" {
		t.Fatalf("Categories = %+v", r.Categories)
	}
	var sawFoo, sawFile, sawListedCategory bool
	for _, l := range r.Links {
		switch l.Target {
		case "Foo Bar":
			sawFoo = true
			if l.Display != "foo" {
				t.Fatalf("display = %q", l.Display)
			}
		case "File:Cat.png":
			sawFile = true
			if l.Namespace != nsFileID {
				t.Fatalf("file namespace = %d", l.Namespace)
			}
		case ":Category:Listed":
			sawListedCategory = true
		}
	}
	if !sawFoo || !sawFile {
		t.Fatalf("missing expected links: %+v", r.Links)
	}
	if !sawListedCategory {
		t.Fatalf("leading-colon category link should be a link, not a category: %+v", r.Links)
	}
}

func TestParseSkipsLinksInsideTemplates(t *testing.T) {
	content := `{{Infobox|image=[[File:Hidden.png]]}} [[Visible Page]]`
	r := Parse(content, Options{})
	for _, l := range r.Links {
		if l.Target == "File:Hidden.png" {
			t.Fatalf("link inside template parameter should be skipped, got %+v", r.Links)
		}
	}
	var sawVisible bool
	for _, l := range r.Links {
		if l.Target == "Visible Page" {
			sawVisible = true
		}
	}
	if !sawVisible {
		t.Fatalf("expected to find the top-level link, got %+v", r.Links)
	}
}

func TestParseTemplateCallsInnermostFirst(t *testing.T) {
	content := `{{Outer|{{Inner|a=1}}}}`
	r := Parse(content, Options{})
	if len(r.Templates) != 2 {
		t.Fatalf("Templates = %+v, want 2", r.Templates)
	}
	if r.Templates[0].Name != "Inner" {
		t.Fatalf("first template should be innermost, got %q", r.Templates[0].Name)
	}
	if r.Templates[1].Name != "Outer" {
		t.Fatalf("second template should be outermost, got %q", r.Templates[1].Name)
	}
}

func TestParseCargoConstructs(t *testing.T) {
	content := `{{#cargo_declare:_table=Rivers|Name=String|Length=Integer}}
{{#cargo_store:_table=Rivers|Name=Nile|Length=6650}}
{{#cargo_query:tables=Rivers|fields=Name,Length|where=Length>1000}}`
	r := Parse(content, Options{})
	if len(r.CargoDeclares) != 1 || r.CargoDeclares[0].TableName != "Rivers" {
		t.Fatalf("CargoDeclares = %+v", r.CargoDeclares)
	}
	if len(r.CargoDeclares[0].Columns) != 2 {
		t.Fatalf("Columns = %+v", r.CargoDeclares[0].Columns)
	}
	if len(r.CargoStores) != 1 || r.CargoStores[0].Values["Name"] != "Nile" {
		t.Fatalf("CargoStores = %+v", r.CargoStores)
	}
	if len(r.CargoQueries) != 1 || len(r.CargoQueries[0].Tables) != 1 || r.CargoQueries[0].Tables[0] != "Rivers" {
		t.Fatalf("CargoQueries = %+v", r.CargoQueries)
	}
	if r.CargoQueries[0].Params["where"] != "Length>1000" {
		t.Fatalf("CargoQueries[0].Params = %+v", r.CargoQueries[0].Params)
	}
}

func TestParseSections(t *testing.T) {
	content := "Lead text.\n\n== History ==\nSection one.\n\n=== Early Years ===\nNested.\n\n== Legacy ==\nSection two.\n"
	r := Parse(content, Options{})
	if len(r.Sections) != 4 {
		t.Fatalf("Sections = %+v, want 4 (lead + 3 headings)", r.Sections)
	}
	if !r.Sections[0].IsLead || r.Sections[0].Heading != "" {
		t.Fatalf("Sections[0] = %+v", r.Sections[0])
	}
	if r.Sections[1].Heading != "History" || r.Sections[1].Level != 2 {
		t.Fatalf("Sections[1] = %+v", r.Sections[1])
	}
	if r.Sections[1].Anchor != "history" {
		t.Fatalf("Sections[1].Anchor = %q", r.Sections[1].Anchor)
	}
	if r.Sections[2].Heading != "Early Years" || r.Sections[2].Level != 3 {
		t.Fatalf("Sections[2] = %+v", r.Sections[2])
	}
}

func TestParseTemplateDataOnlyOnTemplateNamespace(t *testing.T) {
	content := `Some doc text.
<templatedata>
{"params": {"name": {"type": "string"}}}
</templatedata>`
	r := Parse(content, Options{IsTemplateNamespace: true})
	if r.TemplateDataJSON == "" {
		t.Fatalf("expected TemplateDataJSON to be extracted")
	}

	r2 := Parse(content, Options{})
	if r2.TemplateDataJSON != "" {
		t.Fatalf("TemplateDataJSON should be empty outside Template namespace, got %q", r2.TemplateDataJSON)
	}
}

func TestParseShortDescAndDisplayTitle(t *testing.T) {
	content := `{{SHORTDESC:A brief description}}{{DISPLAYTITLE:Fancy Title}}Body text here.`
	r := Parse(content, Options{})
	if r.ShortDesc != "A brief description" {
		t.Fatalf("ShortDesc = %q", r.ShortDesc)
	}
	if r.DisplayTitle != "Fancy Title" {
		t.Fatalf("DisplayTitle = %q", r.DisplayTitle)
	}
}

func TestCountWordsExcludesMarkupNoise(t *testing.T) {
	content := `Hello [[World|there]] <!-- a comment with many words inside --> friend.
{{Infobox|name=Should Not Count}}
[[Category:Skipped]] [[File:Also skipped.png]]`
	got := countWords(content, computeProtectedRanges(content))
	// "Hello" "there" "friend." = 3
	if got != 3 {
		t.Fatalf("countWords = %d, want 3", got)
	}
}

func TestCountWordsIgnoresNowiki(t *testing.T) {
	content := `Real word <nowiki>[[Not A Link]] extra noise words</nowiki> tail.`
	got := countWords(content, computeProtectedRanges(content))
	if got != 3 {
		t.Fatalf("countWords = %d, want 3 (Real word tail.)", got)
	}
}

func TestInterwikiClassification(t *testing.T) {
	content := `See [[wikipedia:Go (programming language)]] and [[Local Page]].`
	r := Parse(content, Options{InterwikiPrefixes: map[string]bool{"wikipedia": true}})
	var sawInterwiki, sawInternal bool
	for _, l := range r.Links {
		if l.LinkType == "interwiki" {
			sawInterwiki = true
		}
		if l.Target == "Local Page" && l.LinkType == "internal" {
			sawInternal = true
		}
	}
	if !sawInterwiki || !sawInternal {
		t.Fatalf("Links = %+v", r.Links)
	}
}

func TestSplitTopLevelIgnoresNestedPipes(t *testing.T) {
	parts := splitTopLevel("a|{{b|c}}|[[d|e]]|f", '|')
	want := []string{"a", "{{b|c}}", "[[d|e]]", "f"}
	if len(parts) != len(want) {
		t.Fatalf("parts = %+v, want %+v", parts, want)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Fatalf("parts[%d] = %q, want %q", i, parts[i], want[i])
		}
	}
}
