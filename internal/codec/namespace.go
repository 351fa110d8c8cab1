// Package codec implements the lossless bijection between wiki titles
// and on-disk paths (C1 in the design). It knows nothing about the
// wiki, the database, or the filesystem — just the naming rules.
package codec

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Namespace describes one MediaWiki namespace's storage convention.
type Namespace struct {
	ID   int    `json:"id"`
	Name string `json:"name"`

	// Prefix is the title prefix, e.g. "Template:". Empty for Main.
	Prefix string `json:"prefix"`

	// Folder is the subdirectory under contentDir for namespaces that
	// are NOT template namespaces, e.g. "Main", "Category", "File".
	Folder string `json:"folder"`

	// ContentModel is the default MediaWiki content model for pages in
	// this namespace ("wikitext", "Scribunto", "css", "javascript").
	ContentModel string `json:"content_model"`

	// DefaultExt is the file extension used absent a suffix override.
	DefaultExt string `json:"default_ext"`

	// IsTemplateNamespace marks namespaces stored under templatesDir
	// with functional bucketing (Template, Module, MediaWiki).
	IsTemplateNamespace bool `json:"is_template_namespace"`
}

// Table is the immutable, process-wide namespace table. Built once at
// startup (see Design Notes: "global singletons -> explicit init,
// single owner") and shared as a read-only *Table with every consumer; it never
// mutates after construction.
type Table struct {
	byID     map[int]Namespace
	byPrefix map[string]Namespace // lowercased prefix (without trailing colon) -> namespace
	mainNS   Namespace
}

// Default namespace IDs, matching the MediaWiki standard (spec.md §4.1).
const (
	NSMain       = 0
	NSTalk       = 1
	NSUser       = 2
	NSProject    = 4
	NSFile       = 6
	NSMediaWiki  = 8
	NSTemplate   = 10
	NSHelp       = 12
	NSCategory   = 14
	NSModule     = 828
)

// DefaultTable returns the namespace table for the standard MediaWiki
// namespaces wikitool must always understand, before any site-custom
// additions from config/remilia-parser.json are merged in.
func DefaultTable() *Table {
	t := &Table{
		byID:     make(map[int]Namespace),
		byPrefix: make(map[string]Namespace),
	}

	defaults := []Namespace{
		{ID: NSMain, Name: "Main", Prefix: "", Folder: "Main", ContentModel: "wikitext", DefaultExt: ".wiki"},
		{ID: NSTalk, Name: "Talk", Prefix: "Talk", Folder: "Talk", ContentModel: "wikitext", DefaultExt: ".wiki"},
		{ID: NSUser, Name: "User", Prefix: "User", Folder: "User", ContentModel: "wikitext", DefaultExt: ".wiki"},
		{ID: NSProject, Name: "Project", Prefix: "Project", Folder: "Project", ContentModel: "wikitext", DefaultExt: ".wiki"},
		{ID: NSFile, Name: "File", Prefix: "File", Folder: "File", ContentModel: "wikitext", DefaultExt: ".wiki"},
		{ID: NSMediaWiki, Name: "MediaWiki", Prefix: "MediaWiki", Folder: "", ContentModel: "wikitext", DefaultExt: ".wiki", IsTemplateNamespace: true},
		{ID: NSTemplate, Name: "Template", Prefix: "Template", Folder: "", ContentModel: "wikitext", DefaultExt: ".wiki", IsTemplateNamespace: true},
		{ID: NSHelp, Name: "Help", Prefix: "Help", Folder: "Help", ContentModel: "wikitext", DefaultExt: ".wiki"},
		{ID: NSCategory, Name: "Category", Prefix: "Category", Folder: "Category", ContentModel: "wikitext", DefaultExt: ".wiki"},
		{ID: NSModule, Name: "Module", Prefix: "Module", Folder: "", ContentModel: "Scribunto", DefaultExt: ".lua", IsTemplateNamespace: true},
	}

	for _, ns := range defaults {
		t.add(ns)
	}
	t.mainNS = t.byID[NSMain]
	return t
}

func (t *Table) add(ns Namespace) {
	t.byID[ns.ID] = ns
	t.byPrefix[lower(ns.Prefix)] = ns
}

// siteNamespaceConfig is the on-disk shape of config/remilia-parser.json:
// a list of site-custom namespaces layered on top of the
// MediaWiki-standard defaults, plus the site's registered interwiki
// prefixes (e.g. `{"id": 3000, "name": "Goldenlight", ...}`,
// `"interwiki": ["wikipedia", "commons", "meta"]`).
type siteNamespaceConfig struct {
	Namespaces []Namespace `json:"namespaces"`
	Interwiki  []string    `json:"interwiki"`
}

// LoadInterwikiPrefixes reads the registered interwiki prefixes from
// the same config file LoadNamespaceConfig reads, lowercased for
// case-insensitive lookup. A missing file yields an empty, non-nil
// map — no interwiki prefixes are registered until configured.
func LoadInterwikiPrefixes(path string) (map[string]bool, error) {
	out := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("codec: reading namespace config %s: %w", path, err)
	}

	var cfg siteNamespaceConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("codec: parsing namespace config %s: %w", path, err)
	}
	for _, p := range cfg.Interwiki {
		out[lower(p)] = true
	}
	return out, nil
}

// LoadNamespaceConfig merges site-custom namespaces declared in the
// config file at path into a copy of DefaultTable. A missing file is
// not an error — wikitool runs against the standard namespace set
// alone until a site config is provided.
func LoadNamespaceConfig(path string) (*Table, error) {
	t := DefaultTable()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("codec: reading namespace config %s: %w", path, err)
	}

	var cfg siteNamespaceConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("codec: parsing namespace config %s: %w", path, err)
	}

	for _, ns := range cfg.Namespaces {
		if ns.DefaultExt == "" {
			ns.DefaultExt = ".wiki"
		}
		if ns.ContentModel == "" {
			ns.ContentModel = "wikitext"
		}
		if ns.Folder == "" && !ns.IsTemplateNamespace {
			ns.Folder = ns.Name
		}
		t.add(ns)
	}

	return t, nil
}

// ByID returns the namespace for id, and whether it was found.
func (t *Table) ByID(id int) (Namespace, bool) {
	ns, ok := t.byID[id]
	return ns, ok
}

// ByPrefix resolves a title prefix (case-insensitive, without the
// trailing colon, e.g. "Template") to its namespace. An unknown
// prefix falls back to Main per spec.md §4.1's idempotence rule.
func (t *Table) ByPrefix(prefix string) Namespace {
	if ns, ok := t.byPrefix[lower(prefix)]; ok {
		return ns
	}
	return t.mainNS
}

// Main returns the Main namespace.
func (t *Table) Main() Namespace {
	return t.mainNS
}

// AllContentNamespaces returns every namespace stored under contentDir
// (i.e. not a template namespace), used by EnsureContentFolders.
func (t *Table) AllContentNamespaces() []Namespace {
	var out []Namespace
	for _, ns := range t.byID {
		if !ns.IsTemplateNamespace {
			out = append(out, ns)
		}
	}
	return out
}

// byPrefixOK is ByPrefix without the fallback-to-Main behavior, used
// where the caller must distinguish "no such prefix" from "this is
// genuinely the Main namespace".
func (t *Table) byPrefixOK(prefix string) (Namespace, bool) {
	ns, ok := t.byPrefix[lower(prefix)]
	return ns, ok
}

// byFolder resolves a content-directory folder name back to its
// namespace, falling back to Main for an unrecognized folder.
func (t *Table) byFolder(folder string) Namespace {
	for _, ns := range t.byID {
		if ns.Folder == folder && !ns.IsTemplateNamespace {
			return ns
		}
	}
	return t.mainNS
}

func lower(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
