package wikitext

import (
	"regexp"
	"strings"
)

// moduleRequireRE and moduleLoadDataRE are the two regex-based scans
// spec.md §4.3 explicitly carves out from the otherwise character-
// scanning parser, since Lua call syntax isn't a wikitext construct.
var (
	moduleRequireRE  = regexp.MustCompile(`require\(\s*["']([^"']+)["']\s*\)`)
	moduleLoadDataRE = regexp.MustCompile(`mw\.loadData\(\s*["']([^"']+)["']\s*\)`)
)

// scanModuleDeps finds Lua `require("Module:X")` and
// `mw.loadData("Module:X")` calls, classifying each dependency.
func scanModuleDeps(content string) []ModuleDep {
	var deps []ModuleDep
	seen := make(map[string]bool)

	for _, m := range moduleRequireRE.FindAllStringSubmatch(content, -1) {
		dep := strings.TrimSpace(m[1])
		key := "require:" + dep
		if dep == "" || seen[key] {
			continue
		}
		seen[key] = true
		deps = append(deps, ModuleDep{Dependency: dep, DepType: "require"})
	}

	for _, m := range moduleLoadDataRE.FindAllStringSubmatch(content, -1) {
		dep := strings.TrimSpace(m[1])
		key := "loadData:" + dep
		if dep == "" || seen[key] {
			continue
		}
		seen[key] = true
		deps = append(deps, ModuleDep{Dependency: dep, DepType: "loadData"})
	}

	return deps
}
