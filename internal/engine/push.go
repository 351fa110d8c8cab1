package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/remiliacorporation/wikitool/internal/codec"
	errs "github.com/remiliacorporation/wikitool/internal/errs"
	"github.com/remiliacorporation/wikitool/internal/fs"
	"github.com/remiliacorporation/wikitool/internal/index"
	"github.com/remiliacorporation/wikitool/internal/mediawiki"
	"github.com/remiliacorporation/wikitool/internal/store"
)

// Push sends locally-changed pages to the remote wiki, per spec.md
// §4.8.3's Local→Remote state machine. It never auto-merges: any
// detected conflict is reported and left untouched unless Force is set.
func (e *Engine) Push(ctx context.Context, opts PushOptions) (PushResult, error) {
	var result PushResult
	if err := validate.Struct(opts); err != nil {
		return result, err
	}

	changes, err := e.GetChanges(ctx, ChangesOptions{
		Namespaces:       opts.Namespaces,
		IncludeTemplates: opts.IncludeTemplates,
	})
	if err != nil {
		return result, err
	}

	total := 0
	for _, c := range changes {
		switch c.Type {
		case ChangeNewLocal, ChangeModifiedLocal, ChangeConflict, ChangeDeletedLocal:
			total++
		}
	}
	processed := 0

	result.Success = true
	for _, c := range changes {
		switch c.Type {
		case ChangeNewLocal, ChangeModifiedLocal:
			processed++
			if err := e.pushOnePage(ctx, c, opts, &result); err != nil {
				result.Errors = append(result.Errors, PageError{Title: c.Title, Message: err.Error()})
				result.Pages = append(result.Pages, PushPageResult{Title: c.Title, Action: PushActionError})
				result.Success = false
			}
			if opts.OnProgress != nil {
				opts.OnProgress(processed, total)
			}
		case ChangeConflict:
			processed++
			if opts.Force {
				if err := e.pushOnePage(ctx, c, opts, &result); err != nil {
					result.Errors = append(result.Errors, PageError{Title: c.Title, Message: err.Error()})
					result.Pages = append(result.Pages, PushPageResult{Title: c.Title, Action: PushActionError})
					result.Success = false
				}
			} else {
				result.Conflicts = append(result.Conflicts, c.Title)
				result.Success = false
			}
			if opts.OnProgress != nil {
				opts.OnProgress(processed, total)
			}
		case ChangeDeletedLocal:
			processed++
			if opts.Delete {
				if err := e.pushOneDelete(ctx, c.Title, opts, &result); err != nil {
					result.Errors = append(result.Errors, PageError{Title: c.Title, Message: err.Error()})
					result.Pages = append(result.Pages, PushPageResult{Title: c.Title, Action: PushActionError})
					result.Success = false
				}
			}
			if opts.OnProgress != nil {
				opts.OnProgress(processed, total)
			}
		}
		if err := ctx.Err(); err != nil {
			return result, nil
		}
	}

	return result, nil
}

// resolveLocalFile re-reads title's file straight off disk, trying
// both the plain and the redirect-folder path shape (a no-DB-row title
// doesn't tell us which one applies), so push always sends whatever
// is actually on disk right now rather than a possibly-stale cached
// copy, per spec.md §5's re-read-before-send guarantee.
func (e *Engine) resolveLocalFile(title string) (*fs.FileRecord, error) {
	for _, isRedirect := range []bool{false, true} {
		relpath, err := codec.TitleToFilepath(e.Table, e.Paths, title, isRedirect)
		if err != nil {
			continue
		}
		if e.FS.Exists(relpath) {
			return e.FS.ReadFile(relpath)
		}
	}
	return nil, errs.Newf(errs.KindFilesystemError, title, fmt.Errorf("push: no local file found for title"))
}

func (e *Engine) pushOnePage(ctx context.Context, c Change, opts PushOptions, result *PushResult) error {
	rec, err := e.resolveLocalFile(c.Title)
	if err != nil {
		return err
	}

	page, err := e.Store.GetPage(ctx, c.Title)
	if err != nil {
		return err
	}

	var baseRevID int64
	isNew := page == nil
	if page != nil {
		baseRevID = page.RevisionID
		isNew = page.SyncStatus == "new"

		if !opts.Force {
			remote, err := e.Client.GetPageContent(ctx, c.Title)
			if err == nil && remote != nil && page.LastSyncedAt != "" && remote.Timestamp > page.LastSyncedAt {
				result.Conflicts = append(result.Conflicts, c.Title)
				result.Pages = append(result.Pages, PushPageResult{Title: c.Title, Action: PushActionError})
				return nil
			}
		}
	}

	if opts.DryRun {
		action := PushActionPushed
		if isNew {
			action = PushActionCreated
		}
		result.Pages = append(result.Pages, PushPageResult{Title: c.Title, Action: action})
		result.Pushed++
		return nil
	}

	editRes, err := e.Client.Edit(ctx, mediawiki.EditParams{
		Title:     c.Title,
		Content:   string(rec.Content),
		Summary:   opts.Summary,
		BaseRevID: baseRevID,
	})
	if err != nil {
		if errors.Is(err, errs.ErrEditConflict) {
			result.Conflicts = append(result.Conflicts, c.Title)
			result.Pages = append(result.Pages, PushPageResult{Title: c.Title, Action: PushActionError})
			return nil
		}
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	syncStatus := "synced"
	revID := editRes.NewRevID
	wikiModified := editRes.Timestamp
	filepathCopy := rec.Filepath
	nsCopy := rec.Namespace

	pageID, err := e.Store.UpsertPage(ctx, store.PagePatch{
		Title:          c.Title,
		Namespace:      &nsCopy,
		Filepath:       &filepathCopy,
		Content:        rec.Content,
		HasContent:     true,
		LastSyncedAt:   &now,
		SyncStatus:     &syncStatus,
		RevisionID:     &revID,
		WikiModifiedAt: &wikiModified,
	})
	if err != nil {
		return err
	}

	updatedPage, err := e.Store.GetPage(ctx, c.Title)
	if err != nil {
		return err
	}
	updatedPage.ID = pageID

	if err := index.UpdatePageIndex(ctx, e.IndexDeps, updatedPage); err != nil {
		return err
	}
	if err := e.Store.IndexPage(ctx, "content", c.Title, string(rec.Content)); err != nil {
		return err
	}

	action := PushActionPushed
	if isNew {
		action = PushActionCreated
	}
	result.Pages = append(result.Pages, PushPageResult{Title: c.Title, Action: action})
	result.Pushed++
	return nil
}

func (e *Engine) pushOneDelete(ctx context.Context, title string, opts PushOptions, result *PushResult) error {
	if opts.DryRun {
		result.Pages = append(result.Pages, PushPageResult{Title: title, Action: PushActionDeleted})
		return nil
	}

	if _, err := e.Client.Delete(ctx, title, opts.Summary); err != nil {
		return err
	}
	if err := e.Store.DeletePage(ctx, title); err != nil {
		return err
	}

	result.Pages = append(result.Pages, PushPageResult{Title: title, Action: PushActionDeleted})
	return nil
}
