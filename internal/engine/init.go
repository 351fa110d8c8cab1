package engine

import (
	"context"

	"github.com/remiliacorporation/wikitool/internal/hashutil"
	"github.com/remiliacorporation/wikitool/internal/index"
	"github.com/remiliacorporation/wikitool/internal/store"
)

// InitFromFiles seeds the store from an existing local tree, per
// spec.md §4.8.4 — used the first time wikitool points at a directory
// that already has content on disk but no database yet.
func (e *Engine) InitFromFiles(ctx context.Context, opts InitFromFilesOptions) (InitFromFilesResult, error) {
	var result InitFromFilesResult

	paths, err := e.FS.ScanContentFiles()
	if err != nil {
		return result, err
	}
	if opts.IncludeTemplates {
		templatePaths, err := e.FS.ScanTemplateFiles()
		if err != nil {
			return result, err
		}
		paths = append(paths, templatePaths...)
	}

	for _, relpath := range paths {
		if err := ctx.Err(); err != nil {
			return result, nil
		}

		rec, err := e.FS.ReadFile(relpath)
		if err != nil {
			result.Errors = append(result.Errors, PageError{Title: relpath, Message: err.Error()})
			continue
		}

		existing, err := e.Store.GetPage(ctx, rec.Title)
		if err != nil {
			result.Errors = append(result.Errors, PageError{Title: rec.Title, Message: err.Error()})
			continue
		}

		syncStatus := "new"
		if existing != nil && existing.ContentHash == hashutil.Content(rec.Content) {
			syncStatus = "synced"
		}

		nsCopy := rec.Namespace
		filepathCopy := relpath
		isRedirect := rec.IsRedirect

		pageID, err := e.Store.UpsertPage(ctx, store.PagePatch{
			Title:      rec.Title,
			Namespace:  &nsCopy,
			Filepath:   &filepathCopy,
			Content:    rec.Content,
			HasContent: true,
			IsRedirect: &isRedirect,
			SyncStatus: &syncStatus,
		})
		if err != nil {
			result.Errors = append(result.Errors, PageError{Title: rec.Title, Message: err.Error()})
			continue
		}

		page, err := e.Store.GetPage(ctx, rec.Title)
		if err != nil {
			result.Errors = append(result.Errors, PageError{Title: rec.Title, Message: err.Error()})
			continue
		}
		page.ID = pageID

		if err := index.UpdatePageIndex(ctx, e.IndexDeps, page); err != nil {
			result.Errors = append(result.Errors, PageError{Title: rec.Title, Message: err.Error()})
			continue
		}
		if err := e.Store.IndexPage(ctx, "content", rec.Title, string(rec.Content)); err != nil {
			result.Errors = append(result.Errors, PageError{Title: rec.Title, Message: err.Error()})
			continue
		}

		if syncStatus == "synced" {
			result.Synced++
		} else {
			result.Created++
		}
	}

	return result, nil
}
