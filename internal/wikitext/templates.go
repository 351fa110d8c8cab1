package wikitext

import (
	"strings"

	"github.com/remiliacorporation/wikitool/internal/util"
)

// rawCall is one balanced `{{...}}` span before name/param splitting.
type rawCall struct {
	Inner string
}

// scanTemplateCalls finds every balanced `{{...}}` span in s, skipping
// protected ranges and `{{{param}}}` placeholders, and returns them in
// innermost-first order (a stack pop order falls out naturally: the
// innermost span always closes, and is appended, before its parent).
func scanTemplateCalls(s string, protected []span) []rawCall {
	var calls []rawCall
	var starts []int
	i, n := 0, len(s)

	for i < n {
		if end, ok := inProtected(protected, i); ok {
			i = end
			continue
		}
		switch {
		case strings.HasPrefix(s[i:], "{{{"):
			i = skipBalanced(s, i, "{{{", "}}}")
		case strings.HasPrefix(s[i:], "{{"):
			starts = append(starts, i+2)
			i += 2
		case strings.HasPrefix(s[i:], "}}") && len(starts) > 0:
			top := starts[len(starts)-1]
			starts = starts[:len(starts)-1]
			calls = append(calls, rawCall{Inner: s[top:i]})
			i += 2
		default:
			i++
		}
	}
	return calls
}

// skipBalanced advances past a balanced open/close span starting at i
// (which must begin with open), returning the index just past its
// matching close. If unterminated, returns len(s).
func skipBalanced(s string, i int, open, close string) int {
	depth := 0
	n := len(s)
	for i < n {
		switch {
		case strings.HasPrefix(s[i:], open):
			depth++
			i += len(open)
		case strings.HasPrefix(s[i:], close):
			depth--
			i += len(close)
			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}
	return n
}

// splitTopLevel splits s on sep, treating `{{...}}`, `{{{...}}}`, and
// `[[...]]` spans as atomic so a `|` inside a nested template or link
// never splits the outer call's parameter list.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	last := 0
	i, n := 0, len(s)

	for i < n {
		switch {
		case strings.HasPrefix(s[i:], "{{{"):
			depth++
			i += 3
		case strings.HasPrefix(s[i:], "}}}"):
			if depth > 0 {
				depth--
			}
			i += 3
		case strings.HasPrefix(s[i:], "{{"):
			depth++
			i += 2
		case strings.HasPrefix(s[i:], "}}"):
			if depth > 0 {
				depth--
			}
			i += 2
		case strings.HasPrefix(s[i:], "[["):
			depth++
			i += 2
		case strings.HasPrefix(s[i:], "]]"):
			if depth > 0 {
				depth--
			}
			i += 2
		case depth == 0 && s[i] == sep:
			parts = append(parts, s[last:i])
			i++
			last = i
		default:
			i++
		}
	}
	parts = append(parts, s[last:])
	return parts
}

// parsedCall is a parser-function-aware view of one rawCall: either a
// Cargo/parser-function invocation (Function non-empty) or an
// ordinary template call (Call non-nil).
type parsedCall struct {
	Function string // e.g. "cargo_declare", "invoke"; empty for plain templates
	Args     []string
	Call     *TemplateCall
}

func parseCall(inner string) parsedCall {
	parts := splitTopLevel(inner, '|')
	head := strings.TrimSpace(parts[0])

	if strings.HasPrefix(head, "#") {
		fn := head[1:]
		var args []string
		if idx := strings.Index(fn, ":"); idx >= 0 {
			args = append(args, fn[idx+1:])
			fn = fn[:idx]
		}
		args = append(args, parts[1:]...)
		return parsedCall{Function: strings.ToLower(strings.TrimSpace(fn)), Args: args}
	}

	name := normalizeTemplateName(head)
	params := make([]TemplateParam, 0, len(parts)-1)
	for i, raw := range parts[1:] {
		params = append(params, parseParam(raw, i))
	}
	return parsedCall{Call: &TemplateCall{Name: name, Params: params}}
}

func parseParam(raw string, index int) TemplateParam {
	if eq := indexTopLevelByte(raw, '='); eq >= 0 {
		name := util.NormalizeWhitespace(strings.ReplaceAll(strings.TrimSpace(raw[:eq]), "_", " "))
		value := strings.TrimSpace(raw[eq+1:])
		return TemplateParam{Index: index, Name: name, Value: value, IsNamed: true}
	}
	return TemplateParam{Index: index, Value: strings.TrimSpace(raw), IsNamed: false}
}

func indexTopLevelByte(s string, b byte) int {
	depth := 0
	i, n := 0, len(s)
	for i < n {
		switch {
		case strings.HasPrefix(s[i:], "{{"):
			depth++
			i += 2
		case strings.HasPrefix(s[i:], "}}"):
			if depth > 0 {
				depth--
			}
			i += 2
		case strings.HasPrefix(s[i:], "[["):
			depth++
			i += 2
		case strings.HasPrefix(s[i:], "]]"):
			if depth > 0 {
				depth--
			}
			i += 2
		case depth == 0 && s[i] == b:
			return i
		default:
			i++
		}
	}
	return -1
}

// normalizeTemplateName applies spec.md §4.3's name normalization:
// underscores to spaces, whitespace collapsed, first letter capitalized.
func normalizeTemplateName(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	name = util.NormalizeWhitespace(name)
	return util.CapitalizeFirst(name)
}

// splitTemplateCalls separates raw template spans into ordinary
// template calls and the three Cargo parser-function families;
// `{{#invoke:...}}` and every other parser function are dropped.
func splitTemplateCalls(raws []rawCall) ([]TemplateCall, []CargoDeclare, []CargoStore, []CargoQuery) {
	var calls []TemplateCall
	var declares []CargoDeclare
	var stores []CargoStore
	var queries []CargoQuery

	for _, raw := range raws {
		pc := parseCall(raw.Inner)
		switch pc.Function {
		case "":
			if pc.Call != nil {
				calls = append(calls, *pc.Call)
			}
		case "cargo_declare":
			declares = append(declares, parseCargoDeclare(raw.Inner, pc.Args))
		case "cargo_store":
			stores = append(stores, parseCargoStore(raw.Inner, pc.Args))
		case "cargo_query":
			queries = append(queries, parseCargoQuery(raw.Inner, pc.Args))
		case "cargo_attach":
			// Attach-only calls declare no new schema; nothing to record
			// beyond the table association already captured by cargo_query.
		default:
			// Other parser functions (#if, #switch, #invoke, ...) are not
			// modeled as template_calls; spec.md scopes that table to
			// ordinary template invocations.
		}
	}
	return calls, declares, stores, queries
}
