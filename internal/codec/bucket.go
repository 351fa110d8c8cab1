package codec

import "strings"

// bucketRule maps a set of name prefixes onto a template bucket folder.
// Rules are tried in order; the first match wins. This table has no
// canonical MediaWiki source — it reflects how templates cluster by
// function on a typical wiki and is an explicit Open Question
// resolution (see DESIGN.md).
type bucketRule struct {
	bucket   string
	prefixes []string
}

var bucketRules = []bucketRule{
	{"cite", []string{"Cite", "Citation", "Vcite"}},
	{"reference", []string{"Reflist", "Ref", "Reference", "Refn"}},
	{"infobox", []string{"Infobox"}},
	{"hatnote", []string{"Hatnote", "About", "See also", "Main article", "Further", "Details", "Redirect"}},
	{"navbox", []string{"Navbox", "Nav"}},
	{"quotation", []string{"Quote", "Quotation", "Blockquote", "Cquote"}},
	{"message", []string{"Ambox", "Mbox", "Notice", "Warning", "Message box", "Cleanup", "Stub"}},
	{"sidebar", []string{"Sidebar"}},
	{"repost", []string{"Repost"}},
	{"blockchain", []string{"Blockchain", "Token", "Contract", "Wallet"}},
	{"date", []string{"Date", "Age", "Birth date", "Death date", "Start date", "End date"}},
	{"navigation", []string{"Navigation", "Breadcrumb", "Toc", "Pagelist"}},
	{"translations", []string{"Translations", "Translation", "I18n", "Lang"}},
}

// defaultBucket is returned when no rule matches.
const defaultBucket = "misc"

// AllBuckets returns every bucket folder name, including "mediawiki"
// (handled outside bucketRules) and the "misc" fallback, used by
// EnsureTemplateFolders.
func AllBuckets() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(b string) {
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	for _, rule := range bucketRules {
		add(rule.bucket)
	}
	add("mediawiki")
	add(defaultBucket)
	return out
}

// MatchBucket resolves a Template or Module page name (namespace
// prefix already stripped) to its template bucket folder using a
// case-insensitive ordered prefix match, falling back to "misc".
func MatchBucket(name string) string {
	for _, rule := range bucketRules {
		for _, prefix := range rule.prefixes {
			if hasPrefixFold(name, prefix) {
				return rule.bucket
			}
		}
	}
	return defaultBucket
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}
