package wikitext

import "strings"

// scanLinksAndCategories extracts [[...]] links and categories,
// skipping protected spans (comments, nowiki) and the full extent of
// every template call, per spec.md §4.3.
func scanLinksAndCategories(s string, protected []span, interwiki map[string]bool) ([]Link, []string) {
	templateSpans := scanTopLevelSpans(s, protected, "{{", "}}")
	skip := mergeSpans(protected, templateSpans)

	var links []Link
	var categories []string

	linkSpans := scanTopLevelSpans(s, skip, "[[", "]]")
	for _, sp := range linkSpans {
		inner := s[sp.Start+2 : sp.End-2]
		target, display := splitLinkTarget(inner)
		if target == "" {
			continue
		}

		prefix, rest := leadingPrefix(target)
		switch {
		case strings.EqualFold(prefix, "Category"):
			categories = append(categories, strings.TrimSpace(rest))
		case strings.EqualFold(prefix, "File"), strings.EqualFold(prefix, "Image"):
			links = append(links, Link{Target: target, Display: display, LinkType: "internal", Namespace: nsFileID})
		default:
			linkType := "internal"
			ns := -1
			if prefix != "" {
				if interwiki[strings.ToLower(prefix)] {
					linkType = "interwiki"
				} else if id, ok := knownNamespaceID(prefix); ok {
					ns = id
				}
			}
			links = append(links, Link{Target: target, Display: display, LinkType: linkType, Namespace: ns})
		}
	}

	return links, categories
}

// nsFileID mirrors codec.NSFile without importing codec, keeping
// wikitext free of a dependency on the storage-path layer.
const nsFileID = 6

// namespacePrefixes is the small set of standard prefixes the parser
// recognizes directly, avoiding a hard dependency on a live
// codec.Table (the parser is configured purely from Options).
var namespacePrefixes = map[string]int{
	"talk": 1, "user": 2, "project": 4, "file": 6, "image": 6,
	"mediawiki": 8, "template": 10, "help": 12, "category": 14, "module": 828,
}

func knownNamespaceID(prefix string) (int, bool) {
	id, ok := namespacePrefixes[strings.ToLower(prefix)]
	return id, ok
}

// splitLinkTarget returns (target, display) for link inner content,
// with target taken pre-pipe and pre-fragment per spec.md §4.3.
func splitLinkTarget(inner string) (string, string) {
	parts := splitTopLevel(inner, '|')
	target := strings.TrimSpace(parts[0])
	if idx := strings.Index(target, "#"); idx >= 0 {
		target = strings.TrimSpace(target[:idx])
	}
	display := target
	if len(parts) > 1 {
		display = strings.TrimSpace(strings.Join(parts[1:], "|"))
	}
	return target, display
}

func leadingPrefix(target string) (prefix, rest string) {
	idx := strings.Index(target, ":")
	if idx <= 0 {
		return "", target
	}
	return strings.TrimSpace(target[:idx]), target[idx+1:]
}

func mergeSpans(a, b []span) []span {
	all := append(append([]span{}, a...), b...)
	if len(all) < 2 {
		return all
	}
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j-1].Start > all[j].Start; j-- {
			all[j-1], all[j] = all[j], all[j-1]
		}
	}
	return all
}
