package wikitext

import "strings"

// DetectRedirect reports whether content is a MediaWiki redirect,
// exported so callers outside this package (engine's pull, which must
// place a file under the right folder before index.UpdatePageIndex
// ever sees it) can make the same determination Parse does internally.
func DetectRedirect(content string) (target string, ok bool) {
	return detectRedirect(content)
}

// detectRedirect reports whether content is a MediaWiki redirect: the
// case-insensitive magic word at the start of the (trimmed) content
// followed by a wikilink naming the target.
func detectRedirect(content string) (target string, ok bool) {
	trimmed := strings.TrimLeft(content, " \t\r\n")
	const magic = "#redirect"
	if len(trimmed) < len(magic) || !strings.EqualFold(trimmed[:len(magic)], magic) {
		return "", false
	}
	rest := trimmed[len(magic):]

	start := strings.Index(rest, "[[")
	if start < 0 {
		return "", false
	}
	between := strings.TrimSpace(rest[:start])
	if between != "" && !strings.HasPrefix(between, ":") {
		// Anything besides optional whitespace/colon before the link
		// means this isn't actually a redirect line.
		return "", false
	}

	end := strings.Index(rest[start:], "]]")
	if end < 0 {
		return "", false
	}
	inner := rest[start+2 : start+end]
	if pipe := strings.Index(inner, "|"); pipe >= 0 {
		inner = inner[:pipe]
	}
	if hash := strings.Index(inner, "#"); hash >= 0 {
		inner = inner[:hash]
	}
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return "", false
	}
	return inner, true
}
