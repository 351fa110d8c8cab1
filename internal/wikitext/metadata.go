package wikitext

import "strings"

// scanMetadata finds the first `{{SHORTDESC:...}}` and
// `{{DISPLAYTITLE:...}}` magic-word templates, case-insensitive on the
// magic word itself.
func scanMetadata(content string) (shortDesc, displayTitle string) {
	protected := computeProtectedRanges(content)
	for _, raw := range scanTemplateCalls(content, protected) {
		head := raw.Inner
		colon := strings.Index(head, "|")
		if colon >= 0 {
			head = head[:colon]
		}
		colon = strings.Index(head, ":")
		if colon < 0 {
			continue
		}
		magic := strings.TrimSpace(head[:colon])
		value := strings.TrimSpace(head[colon+1:])
		switch {
		case strings.EqualFold(magic, "SHORTDESC") && shortDesc == "":
			shortDesc = value
		case strings.EqualFold(magic, "DISPLAYTITLE") && displayTitle == "":
			displayTitle = value
		}
	}
	return shortDesc, displayTitle
}

// countWords counts words in content with comments, nowiki spans,
// template invocations, and magic words excluded, and `[[Link|Display]]`
// reduced to its displayed text — except Category/File/Image links,
// which contribute zero words since they render nothing inline.
func countWords(content string, protected []span) int {
	templateSpans := scanTopLevelSpans(content, protected, "{{", "}}")
	skip := mergeSpans(protected, templateSpans)

	var b strings.Builder
	i, n := 0, len(content)
	for i < n {
		if end, ok := inProtected(skip, i); ok {
			i = end
			continue
		}
		if linkEnd, text, ok := visibleLinkText(content, i); ok {
			b.WriteString(text)
			b.WriteByte(' ')
			i = linkEnd
			continue
		}
		b.WriteByte(content[i])
		i++
	}

	return len(strings.Fields(b.String()))
}

// visibleLinkText recognizes a `[[...]]` span starting at i and returns
// the text it contributes to word count: "" for Category/File/Image
// links, otherwise the display text (or target, if no pipe).
func visibleLinkText(s string, i int) (end int, text string, ok bool) {
	if !strings.HasPrefix(s[i:], "[[") {
		return 0, "", false
	}
	closeIdx := strings.Index(s[i+2:], "]]")
	if closeIdx < 0 {
		return 0, "", false
	}
	inner := s[i+2 : i+2+closeIdx]
	end = i + 2 + closeIdx + 2

	target, display := splitLinkTarget(inner)
	prefix, _ := leadingPrefix(target)
	switch {
	case strings.EqualFold(prefix, "Category"):
		return end, "", true
	case strings.EqualFold(prefix, "File"), strings.EqualFold(prefix, "Image"):
		return end, "", true
	default:
		return end, display, true
	}
}
