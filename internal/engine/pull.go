package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/remiliacorporation/wikitool/internal/codec"
	errs "github.com/remiliacorporation/wikitool/internal/errs"
	"github.com/remiliacorporation/wikitool/internal/hashutil"
	"github.com/remiliacorporation/wikitool/internal/index"
	"github.com/remiliacorporation/wikitool/internal/mediawiki"
	"github.com/remiliacorporation/wikitool/internal/store"
	"github.com/remiliacorporation/wikitool/internal/wikitext"
)

// pullFetchBatchSize bounds how many titles Pull fetches per round
// trip, independent of mediawiki.FetchBatch's own internal chunking —
// this is the granularity at which last_pull_ns_<ns> is checkpointed.
const pullFetchBatchSize = 50

// Pull brings remote pages into the local filesystem and store, per
// spec.md §4.8.2's Remote→Local state machine.
func (e *Engine) Pull(ctx context.Context, opts PullOptions) (PullResult, error) {
	var result PullResult
	if err := validate.Struct(opts); err != nil {
		return result, err
	}
	if e.Client == nil {
		return result, errs.Newf(errs.KindAuthRequired, "", fmt.Errorf("pull requires an authenticated or anonymous mediawiki client"))
	}

	refs, err := e.listPullCandidates(ctx, opts)
	if err != nil {
		return result, err
	}

	processed := 0
	for i := 0; i < len(refs); i += pullFetchBatchSize {
		if err := ctx.Err(); err != nil {
			return result, nil
		}

		end := i + pullFetchBatchSize
		if end > len(refs) {
			end = len(refs)
		}
		chunk := refs[i:end]

		titles := make([]string, len(chunk))
		for j, r := range chunk {
			titles[j] = r.Title
		}

		contents, err := e.Client.FetchBatch(ctx, titles)
		if err != nil {
			for _, r := range chunk {
				result.Errors = append(result.Errors, PageError{Title: r.Title, Message: err.Error()})
			}
			processed += len(chunk)
			continue
		}

		maxTouched := make(map[int]string)
		for _, ref := range chunk {
			if err := ctx.Err(); err != nil {
				return result, nil
			}
			processed++

			content, ok := contents[ref.Title]
			if !ok {
				result.Errors = append(result.Errors, PageError{Title: ref.Title, Message: "page missing from remote fetch"})
				continue
			}

			if err := e.pullOnePage(ctx, ref, content, opts, &result); err != nil {
				result.Errors = append(result.Errors, PageError{Title: ref.Title, Message: err.Error()})
			}

			if ref.Touched > maxTouched[ref.Namespace] {
				maxTouched[ref.Namespace] = ref.Touched
			}

			if opts.OnProgress != nil {
				opts.OnProgress(processed, len(refs))
			}
		}

		for ns, touched := range maxTouched {
			if touched == "" {
				continue
			}
			_ = e.Store.SetConfig(ctx, pullWatermarkKey(ns), touched)
		}
	}

	return result, nil
}

func pullWatermarkKey(ns int) string {
	return fmt.Sprintf("last_pull_ns_%d", ns)
}

// listPullCandidates enumerates candidate titles across every
// requested namespace, deduplicated and title-sorted for deterministic
// processing order (spec.md §5's ordering guarantee).
func (e *Engine) listPullCandidates(ctx context.Context, opts PullOptions) ([]mediawiki.PageRef, error) {
	seen := make(map[string]mediawiki.PageRef)

	for _, ns := range opts.Namespaces {
		listOpts := mediawiki.ListPagesOptions{Namespace: ns, Category: opts.Category}
		refs, err := e.Client.ListPages(ctx, listOpts)
		if err != nil {
			return nil, err
		}

		watermark := ""
		if !opts.Full {
			v, ok, err := e.Store.GetConfig(ctx, pullWatermarkKey(ns))
			if err != nil {
				return nil, err
			}
			if ok {
				watermark = v
			}
		}

		for _, r := range refs {
			if watermark != "" && r.Touched <= watermark {
				continue
			}
			seen[r.Title] = r
		}
	}

	out := make([]mediawiki.PageRef, 0, len(seen))
	for _, r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (e *Engine) pullOnePage(ctx context.Context, ref mediawiki.PageRef, content *mediawiki.PageContent, opts PullOptions, result *PullResult) error {
	title := ref.Title
	_, isRedirect := wikitext.DetectRedirect(content.Content)

	relpath, err := codec.TitleToFilepath(e.Table, e.Paths, title, isRedirect)
	if err != nil {
		return err
	}

	remoteHash := hashutil.ContentString(content.Content)

	if e.FS.Exists(relpath) {
		existing, readErr := e.FS.ReadFile(relpath)
		if readErr == nil && existing.ContentHash != remoteHash && !opts.OverwriteLocal {
			if err := e.Store.UpdateSyncStatus(ctx, title, "wiki_modified"); err != nil {
				return err
			}
			result.Skipped++
			return nil
		}
	}

	if _, err := e.FS.WriteFile(relpath, []byte(content.Content)); err != nil {
		return err
	}

	existingPage, err := e.Store.GetPage(ctx, title)
	if err != nil {
		return err
	}
	isNew := existingPage == nil

	now := time.Now().UTC().Format(time.RFC3339)
	syncStatus := "synced"
	filepathCopy := relpath
	wikiModified := content.Timestamp
	revID := content.RevisionID
	nsCopy := ref.Namespace

	pageID, err := e.Store.UpsertPage(ctx, store.PagePatch{
		Title:          title,
		Namespace:      &nsCopy,
		Filepath:       &filepathCopy,
		Content:        []byte(content.Content),
		HasContent:     true,
		WikiModifiedAt: &wikiModified,
		LastSyncedAt:   &now,
		SyncStatus:     &syncStatus,
		WikiPageID:     nil,
		RevisionID:     &revID,
	})
	if err != nil {
		return err
	}

	page, err := e.Store.GetPage(ctx, title)
	if err != nil {
		return err
	}
	page.ID = pageID

	if err := index.UpdatePageIndex(ctx, e.IndexDeps, page); err != nil {
		return err
	}
	if err := e.Store.IndexPage(ctx, "content", title, content.Content); err != nil {
		return err
	}

	if isNew {
		result.Created++
	} else {
		result.Updated++
	}
	return nil
}
