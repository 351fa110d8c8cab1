package engine

import (
	"context"
	"sort"

	"github.com/remiliacorporation/wikitool/internal/store"
)

// localFile is the subset of fs.FileRecord GetChanges needs.
type localFile struct {
	namespace   int
	contentHash string
}

// GetChanges classifies every title present in either the store or
// the scanned filesystem, per spec.md §4.8.1. It never mutates state.
func (e *Engine) GetChanges(ctx context.Context, opts ChangesOptions) ([]Change, error) {
	nsFilter := toNamespaceSet(opts.Namespaces)

	local, err := e.scanLocalFiles(opts.IncludeTemplates)
	if err != nil {
		return nil, err
	}

	dbPages, err := e.Store.GetPages(ctx, store.Filter{})
	if err != nil {
		return nil, err
	}

	dbByTitle := make(map[string]*store.Page, len(dbPages))
	for _, p := range dbPages {
		if !opts.IncludeTemplates && e.isTemplateNamespace(p.Namespace) {
			continue
		}
		if !nsFilter.allows(p.Namespace) {
			continue
		}
		dbByTitle[p.Title] = p
	}

	titleSet := make(map[string]bool, len(local)+len(dbByTitle))
	for title, lf := range local {
		if !nsFilter.allows(lf.namespace) {
			continue
		}
		titleSet[title] = true
	}
	for title := range dbByTitle {
		titleSet[title] = true
	}

	titles := make([]string, 0, len(titleSet))
	for t := range titleSet {
		titles = append(titles, t)
	}
	sort.Strings(titles)

	changes := make([]Change, 0, len(titles))
	for _, title := range titles {
		lf, hasLocal := local[title]
		if hasLocal && !nsFilter.allows(lf.namespace) {
			hasLocal = false
		}
		row, hasDB := dbByTitle[title]

		changes = append(changes, classifyChange(title, lf, hasLocal, row, hasDB))
	}
	return changes, nil
}

func classifyChange(title string, lf localFile, hasLocal bool, row *store.Page, hasDB bool) Change {
	switch {
	case hasLocal && (!hasDB || row.SyncStatus == "new"):
		return Change{Title: title, Type: ChangeNewLocal}
	case !hasLocal && hasDB:
		return Change{Title: title, Type: ChangeDeletedLocal}
	case hasLocal && hasDB:
		if lf.contentHash == row.ContentHash {
			return Change{Title: title, Type: ChangeSynced}
		}
		if row.WikiModifiedAt != "" && row.LastSyncedAt != "" && row.WikiModifiedAt > row.LastSyncedAt {
			return Change{Title: title, Type: ChangeConflict}
		}
		return Change{Title: title, Type: ChangeModifiedLocal}
	default:
		return Change{Title: title, Type: ChangeSynced}
	}
}

// scanLocalFiles walks the content tree (and, if requested, the
// template tree), returning each file's title, namespace, and content
// hash keyed by title.
func (e *Engine) scanLocalFiles(includeTemplates bool) (map[string]localFile, error) {
	out := make(map[string]localFile)

	contentPaths, err := e.FS.ScanContentFiles()
	if err != nil {
		return nil, err
	}
	paths := contentPaths

	if includeTemplates {
		templatePaths, err := e.FS.ScanTemplateFiles()
		if err != nil {
			return nil, err
		}
		paths = append(paths, templatePaths...)
	}

	for _, p := range paths {
		rec, err := e.FS.ReadFile(p)
		if err != nil {
			continue
		}
		out[rec.Title] = localFile{namespace: rec.Namespace, contentHash: rec.ContentHash}
	}
	return out, nil
}

func (e *Engine) isTemplateNamespace(nsID int) bool {
	ns, ok := e.Table.ByID(nsID)
	return ok && ns.IsTemplateNamespace
}

// namespaceSet is an optional namespace allowlist; a nil/empty set
// allows everything.
type namespaceSet map[int]bool

func toNamespaceSet(namespaces []int) namespaceSet {
	if len(namespaces) == 0 {
		return nil
	}
	s := make(namespaceSet, len(namespaces))
	for _, ns := range namespaces {
		s[ns] = true
	}
	return s
}

func (s namespaceSet) allows(ns int) bool {
	if s == nil {
		return true
	}
	return s[ns]
}
