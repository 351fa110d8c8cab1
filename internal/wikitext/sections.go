package wikitext

import (
	"strings"

	"github.com/remiliacorporation/wikitool/internal/util"
)

// scanSections splits content into the implicit lead (index 0) and
// every `=`-delimited heading that follows. A section's content runs
// until the next heading of any level — spec.md §4.3 doesn't specify
// level-aware nesting, so headings are treated as flat boundaries,
// matching how MediaWiki's own section-edit links behave for the
// common case of non-overlapping heading levels.
func scanSections(content string) []Section {
	lines := strings.Split(content, "\n")

	type boundary struct {
		lineIdx int
		heading string
		level   int
	}
	var boundaries []boundary

	for i, line := range lines {
		if heading, level, ok := parseHeadingLine(line); ok {
			boundaries = append(boundaries, boundary{lineIdx: i, heading: heading, level: level})
		}
	}

	var sections []Section
	leadEnd := len(lines)
	if len(boundaries) > 0 {
		leadEnd = boundaries[0].lineIdx
	}
	sections = append(sections, Section{
		Index:   0,
		Content: strings.TrimRight(strings.Join(lines[:leadEnd], "\n"), "\n"),
		IsLead:  true,
	})

	for i, b := range boundaries {
		end := len(lines)
		if i+1 < len(boundaries) {
			end = boundaries[i+1].lineIdx
		}
		body := strings.TrimRight(strings.Join(lines[b.lineIdx+1:end], "\n"), "\n")
		sections = append(sections, Section{
			Index:   i + 1,
			Heading: b.heading,
			Level:   b.level,
			Anchor:  util.Slugify(b.heading, false),
			Content: body,
			IsLead:  false,
		})
	}

	return sections
}

// parseHeadingLine recognizes `== Heading ==` style lines (level 2..6)
// at the start of a line, with matching equals-run on both sides.
func parseHeadingLine(line string) (heading string, level int, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "==") {
		return "", 0, false
	}

	leadingEq := 0
	for leadingEq < len(trimmed) && trimmed[leadingEq] == '=' {
		leadingEq++
	}
	if leadingEq < 2 || leadingEq > 6 {
		return "", 0, false
	}

	trailingEq := 0
	for trailingEq < len(trimmed) && trimmed[len(trimmed)-1-trailingEq] == '=' {
		trailingEq++
	}
	if trailingEq < leadingEq {
		return "", 0, false
	}

	inner := trimmed[leadingEq : len(trimmed)-leadingEq]
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return "", 0, false
	}
	return inner, leadingEq, true
}
