// Package wikitext parses raw wikitext into the structured facts
// index.updatePageIndex persists: links, categories, template calls,
// sections, redirects, module dependencies, and Cargo constructs.
// Scanning is character-by-character with depth counters, per
// spec.md §4.3 — regex is used only where the spec explicitly allows
// it (TemplateData JSON extraction, Lua require/loadData scanning).
package wikitext

// Link is one internal, interwiki, File, or Image reference found
// outside template parameters and protected spans.
type Link struct {
	Target    string
	Display   string
	LinkType  string // "internal" | "interwiki"
	Namespace int     // -1 when the prefix isn't a recognized namespace
}

// TemplateParam is one argument to a template invocation.
type TemplateParam struct {
	Index   int
	Name    string
	Value   string
	IsNamed bool
}

// TemplateCall is one `{{Name|...}}` invocation.
type TemplateCall struct {
	Name   string
	Params []TemplateParam
}

// Section is one `=...=`-delimited heading block, or the implicit
// lead section (index 0) preceding the first heading.
type Section struct {
	Index   int
	Heading string
	Level   int
	Anchor  string
	Content string
	IsLead  bool
}

// ModuleDep is one Lua module dependency declaration.
type ModuleDep struct {
	Dependency string
	DepType    string // "require" | "loadData" | "other"
}

// CargoColumn is one declared Cargo table column.
type CargoColumn struct {
	Name string
	Type string
}

// CargoDeclare is a parsed `{{#cargo_declare:...}}` call.
type CargoDeclare struct {
	TableName string
	Columns   []CargoColumn
	Raw       string
}

// CargoStore is a parsed `{{#cargo_store:...}}` call.
type CargoStore struct {
	TableName string
	Values    map[string]string
	Raw       string
}

// CargoQuery is a parsed `{{#cargo_query:...}}` call.
type CargoQuery struct {
	QueryType string
	Tables    []string
	Fields    []string
	Params    map[string]string
	Raw       string
}

// Result is everything Parse extracts from one page's content.
type Result struct {
	Links          []Link
	Categories     []string
	Templates      []TemplateCall
	Sections       []Section
	RedirectTarget string

	TemplateDataJSON string
	ModuleDeps       []ModuleDep

	CargoDeclares []CargoDeclare
	CargoStores   []CargoStore
	CargoQueries  []CargoQuery

	ShortDesc    string
	DisplayTitle string
	WordCount    int
}

// Options configures Parse for the page being indexed.
type Options struct {
	// IsTemplateNamespace marks Template: pages, where TemplateData
	// extraction and template_metadata projection apply.
	IsTemplateNamespace bool
	// IsModuleNamespace marks Module: pages (Scribunto Lua), where
	// module dependency scanning applies instead of wiki markup parsing.
	IsModuleNamespace bool
	// InterwikiPrefixes is the set of registered interwiki prefixes
	// (lowercased, no trailing colon) used to classify link type.
	InterwikiPrefixes map[string]bool
}

// Parse extracts every structured fact from content in one pass over
// its protected-span map, per spec.md §4.3's disjoint-outputs contract.
func Parse(content string, opts Options) *Result {
	r := &Result{}

	if target, ok := detectRedirect(content); ok {
		r.RedirectTarget = target
		return r
	}

	if opts.IsModuleNamespace {
		r.ModuleDeps = scanModuleDeps(content)
		return r
	}

	protected := computeProtectedRanges(content)

	calls := scanTemplateCalls(content, protected)
	r.Templates, r.CargoDeclares, r.CargoStores, r.CargoQueries = splitTemplateCalls(calls)

	links, categories := scanLinksAndCategories(content, protected, opts.InterwikiPrefixes)
	r.Links = links
	r.Categories = categories

	r.Sections = scanSections(content)

	if opts.IsTemplateNamespace {
		r.TemplateDataJSON = extractTemplateData(content)
	}

	r.ShortDesc, r.DisplayTitle = scanMetadata(content)
	r.WordCount = countWords(content, protected)

	return r
}
