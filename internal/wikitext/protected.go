package wikitext

import "strings"

// span is a half-open byte range [Start, End) within the source.
type span struct {
	Start, End int
}

// protectedTags are HTML-ish spans whose contents are opaque to every
// other scanner: links, templates, and word count all skip over them.
var protectedTags = []struct{ open, close string }{
	{"<!--", "-->"},
	{"<nowiki>", "</nowiki>"},
}

// computeProtectedRanges finds every comment and <nowiki> span in s,
// case-insensitively, non-overlapping and in source order.
func computeProtectedRanges(s string) []span {
	var ranges []span
	lower := strings.ToLower(s)
	i := 0
	for i < len(s) {
		advanced := false
		for _, tag := range protectedTags {
			if strings.HasPrefix(lower[i:], tag.open) {
				end := strings.Index(lower[i+len(tag.open):], tag.close)
				if end < 0 {
					ranges = append(ranges, span{i, len(s)})
					return ranges
				}
				closeEnd := i + len(tag.open) + end + len(tag.close)
				ranges = append(ranges, span{i, closeEnd})
				i = closeEnd
				advanced = true
				break
			}
		}
		if !advanced {
			i++
		}
	}
	return ranges
}

// inProtected reports whether pos falls inside any range, and if so
// returns the range's end offset so the caller can jump past it.
func inProtected(ranges []span, pos int) (int, bool) {
	for _, r := range ranges {
		if pos >= r.Start && pos < r.End {
			return r.End, true
		}
		if r.Start > pos {
			break
		}
	}
	return 0, false
}

// scanTopLevelSpans finds every outermost balanced open/close span in
// s (skipping ranges already marked protected), ignoring any nesting
// inside — used to find whole `{{...}}` template extents so link
// scanning can skip over them entirely, per spec.md §4.3's "links
// inside templates...are skipped".
func scanTopLevelSpans(s string, protected []span, open, close string) []span {
	var spans []span
	depth := 0
	start := 0
	i, n := 0, len(s)

	for i < n {
		if end, ok := inProtected(protected, i); ok {
			i = end
			continue
		}
		switch {
		case strings.HasPrefix(s[i:], open):
			if depth == 0 {
				start = i
			}
			depth++
			i += len(open)
		case strings.HasPrefix(s[i:], close):
			if depth > 0 {
				depth--
				if depth == 0 {
					spans = append(spans, span{start, i + len(close)})
				}
			}
			i += len(close)
		default:
			i++
		}
	}
	return spans
}
