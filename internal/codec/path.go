package codec

import (
	"fmt"
	"strings"
)

// Paths names the two on-disk roots the codec maps into: wiki_content
// for ordinary namespaces, templates for the functional namespaces
// (Template, Module, MediaWiki) bucketed by MatchBucket.
type Paths struct {
	ContentDir   string
	TemplatesDir string
}

const redirectsDir = "_redirects"

// RedirectsDir is the subfolder name redirects are filed under in
// content namespaces. TitleToFilepath ignores isRedirect for Template,
// Module and MediaWiki titles, so it never places a page under a
// template bucket's _redirects/ folder, and FilepathToTitle does not
// map such a path back to a title.
const RedirectsDir = redirectsDir

// TitleToFilepath maps a wiki title to its canonical on-disk path.
// isRedirect places content-namespace pages under a _redirects/
// subfolder so a redirect stub never collides with a same-named
// regular page once namespace and case are folded together.
func TitleToFilepath(table *Table, paths Paths, title string, isRedirect bool) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("codec: empty title")
	}

	ns, remainder := splitNamespace(table, title)
	if strings.TrimSpace(remainder) == "" {
		return "", fmt.Errorf("codec: title %q has no page name after namespace prefix", title)
	}

	if ns.IsTemplateNamespace {
		return templateFilepath(paths, ns, remainder)
	}
	return contentFilepath(paths, ns, remainder, isRedirect)
}

func contentFilepath(paths Paths, ns Namespace, remainder string, isRedirect bool) (string, error) {
	encoded := encodeRemainder(remainder)
	dir := paths.ContentDir + "/" + ns.Folder
	if isRedirect {
		dir += "/" + redirectsDir
	}
	return dir + "/" + encoded + ns.DefaultExt, nil
}

func templateFilepath(paths Paths, ns Namespace, remainder string) (string, error) {
	segments := strings.Split(remainder, "/")
	encoded := make([]string, len(segments))
	for i, seg := range segments {
		encoded[i] = encodeSegment(seg)
	}
	name := strings.Join(encoded, "/")
	last := encoded[len(encoded)-1]

	switch ns.ID {
	case NSModule:
		bucket := MatchBucket(segments[0])
		filename := "Module_" + name
		if !strings.EqualFold(last, "styles.css") {
			filename += ".lua"
		}
		return paths.TemplatesDir + "/" + bucket + "/" + filename, nil

	case NSTemplate:
		bucket := MatchBucket(segments[0])
		filename := "Template_" + name + ".wiki"
		return paths.TemplatesDir + "/" + bucket + "/" + filename, nil

	case NSMediaWiki:
		filename := name
		if !strings.HasSuffix(strings.ToLower(last), ".css") && !strings.HasSuffix(strings.ToLower(last), ".js") {
			filename += ".wiki"
		}
		return paths.TemplatesDir + "/mediawiki/" + filename, nil

	default:
		return "", fmt.Errorf("codec: namespace %q is marked as a template namespace but has no filepath rule", ns.Name)
	}
}

// FilepathToTitle is the inverse of TitleToFilepath: given an on-disk
// path under either root, it reconstructs the wiki title. Unknown
// folders under the content root fall back to Main, matching the
// idempotence rule in spec.md §4.1. A path under neither root returns
// an error, and so can a template-root path whose file name has no
// recognized prefix.
func FilepathToTitle(table *Table, paths Paths, path string) (string, error) {
	path = strings.TrimPrefix(path, "./")

	if rel, ok := trimDir(path, paths.TemplatesDir); ok {
		return templateTitle(table, rel)
	}
	if rel, ok := trimDir(path, paths.ContentDir); ok {
		return contentTitle(table, rel)
	}
	return "", fmt.Errorf("codec: path %q is under neither %q nor %q", path, paths.ContentDir, paths.TemplatesDir)
}

func trimDir(path, dir string) (string, bool) {
	dir = strings.TrimSuffix(dir, "/")
	prefix := dir + "/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	return strings.TrimPrefix(path, prefix), true
}

func contentTitle(table *Table, rel string) (string, error) {
	parts := strings.SplitN(rel, "/", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("codec: content path %q has no namespace folder", rel)
	}
	folder, filename := parts[0], parts[1]

	if sub, ok := trimDir(filename, redirectsDir); ok {
		filename = sub
	}

	ns := table.byFolder(folder)
	stem := strings.TrimSuffix(filename, ns.DefaultExt)
	remainder := decodeRemainder(stem)
	return buildTitle(ns, remainder), nil
}

func templateTitle(table *Table, rel string) (string, error) {
	parts := strings.SplitN(rel, "/", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("codec: template path %q has no bucket folder", rel)
	}
	bucket, filename := parts[0], parts[1]

	var ns Namespace
	var name string

	switch {
	case bucket == "mediawiki":
		ns, _ = table.ByID(NSMediaWiki)
		name = filename
		if strings.HasSuffix(name, ".wiki") && !strings.HasSuffix(name, ".css.wiki") && !strings.HasSuffix(name, ".js.wiki") {
			name = strings.TrimSuffix(name, ".wiki")
		}
	case strings.HasPrefix(filename, "Template_"):
		ns, _ = table.ByID(NSTemplate)
		name = strings.TrimSuffix(strings.TrimPrefix(filename, "Template_"), ".wiki")
	case strings.HasPrefix(filename, "Module_"):
		ns, _ = table.ByID(NSModule)
		name = strings.TrimPrefix(filename, "Module_")
		if !strings.HasSuffix(strings.ToLower(name), "styles.css") {
			name = strings.TrimSuffix(name, ".lua")
		}
	default:
		return "", fmt.Errorf("codec: template filename %q has no recognized namespace prefix", filename)
	}

	segments := strings.Split(name, "/")
	decoded := make([]string, len(segments))
	for i, seg := range segments {
		decoded[i] = decodeSegment(seg)
	}
	return buildTitle(ns, strings.Join(decoded, "/")), nil
}

func buildTitle(ns Namespace, remainder string) string {
	if ns.Prefix == "" {
		return remainder
	}
	return ns.Prefix + ":" + remainder
}

func splitNamespace(table *Table, title string) (Namespace, string) {
	idx := strings.Index(title, ":")
	if idx < 0 {
		return table.Main(), title
	}
	prefix := title[:idx]
	if ns, ok := table.byPrefixOK(prefix); ok {
		return ns, title[idx+1:]
	}
	return table.Main(), title
}

func encodeRemainder(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "/", "___")
	s = strings.ReplaceAll(s, ":", "--")
	return s
}

func decodeRemainder(s string) string {
	s = strings.ReplaceAll(s, "--", ":")
	s = strings.ReplaceAll(s, "___", "/")
	s = strings.ReplaceAll(s, "_", " ")
	return s
}

func encodeSegment(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "--")
	return s
}

func decodeSegment(s string) string {
	s = strings.ReplaceAll(s, "--", ":")
	s = strings.ReplaceAll(s, "_", " ")
	return s
}
