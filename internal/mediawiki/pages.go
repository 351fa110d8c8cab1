package mediawiki

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	engine "github.com/remiliacorporation/wikitool/internal/errs"
)

// PageRef is one entry from a listPages scan.
type PageRef struct {
	Title     string
	Namespace int
	LastRevID int64
	Touched   string
}

// PageContent is the result of getPageContent/fetchBatch.
type PageContent struct {
	Title      string
	Content    string
	RevisionID int64
	Timestamp  string
}

// ParsedPage is the result of getParsedHtml — a distinct type from
// PageContent so the rendered-HTML path can never be mistaken for
// wikitext by a caller (see DESIGN.md's Open Question resolution).
type ParsedPage struct {
	Title string
	HTML  string
}

// EditResult is returned by Edit on success.
type EditResult struct {
	NewRevID  int64
	Timestamp string
}

// EditParams describes one edit call.
type EditParams struct {
	Title     string
	Content   string
	Summary   string
	BaseRevID int64 // 0 means "no optimistic lock"
	Bot       bool
}

type listPagesResponse struct {
	Query struct {
		AllPages []struct {
			Title     string `json:"title"`
			Ns        int    `json:"ns"`
			LastRevID int64  `json:"lastrevid"`
			Touched   string `json:"touched"`
		} `json:"allpages"`
	} `json:"query"`
	Continue map[string]any `json:"continue"`
	Error    *apiError      `json:"error"`
}

// ListPagesOptions configures ListPages.
type ListPagesOptions struct {
	Namespace int
	Prefix    string
	Category  string // not sent to the API; ListPages lists by namespace only
	Limit     int    // per-request page size, server caps at 500
}

// ListPages enumerates all pages in a namespace, transparently paging
// through apcontinue. opts.Category is ignored: the result is never
// narrowed to a category's members. Grounded on the VRCWiki
// connector's getAllPages loop.
func (c *Client) ListPages(ctx context.Context, opts ListPagesOptions) ([]PageRef, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 500 {
		limit = 500
	}

	var refs []PageRef
	apContinue := ""

	for {
		params := url.Values{
			"action":      {"query"},
			"list":        {"allpages"},
			"apnamespace": {strconv.Itoa(opts.Namespace)},
			"aplimit":     {strconv.Itoa(limit)},
		}
		if opts.Prefix != "" {
			params.Set("apprefix", opts.Prefix)
		}
		if apContinue != "" {
			params.Set("apcontinue", apContinue)
		}

		var resp listPagesResponse
		if err := c.call(ctx, "POST", params, &resp); err != nil {
			return nil, fmt.Errorf("list pages: %w", err)
		}
		if resp.Error != nil {
			return nil, classifyAPIError(resp.Error)
		}

		for _, p := range resp.Query.AllPages {
			refs = append(refs, PageRef{
				Title:     p.Title,
				Namespace: p.Ns,
				LastRevID: p.LastRevID,
				Touched:   p.Touched,
			})
		}

		next, ok := resp.Continue["apcontinue"].(string)
		if !ok || next == "" {
			break
		}
		apContinue = next
	}

	return refs, nil
}

type contentResponse struct {
	Query struct {
		Pages []struct {
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Revisions []struct {
				RevID   int64  `json:"revid"`
				Slots   struct {
					Main struct {
						Content string `json:"content"`
					} `json:"main"`
				} `json:"slots"`
				Timestamp string `json:"timestamp"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
	Error *apiError `json:"error"`
}

// GetPageContent fetches the latest wikitext of title. A nonexistent
// page returns (nil, nil) — per spec.md, a missing read is a null
// result, not an error.
func (c *Client) GetPageContent(ctx context.Context, title string) (*PageContent, error) {
	batch, err := c.FetchBatch(ctx, []string{title})
	if err != nil {
		return nil, err
	}
	return batch[title], nil
}

// FetchBatch fetches content+metadata for many titles in one or more
// API calls, batching up to the server's typical limit of 50 titles
// per request. Titles not returned by the API (nonexistent or
// missing) are simply absent from the result map.
func (c *Client) FetchBatch(ctx context.Context, titles []string) (map[string]*PageContent, error) {
	const batchSize = 50
	result := make(map[string]*PageContent, len(titles))

	for i := 0; i < len(titles); i += batchSize {
		end := i + batchSize
		if end > len(titles) {
			end = len(titles)
		}
		chunk := titles[i:end]

		params := url.Values{
			"action":  {"query"},
			"titles":  {strings.Join(chunk, "|")},
			"prop":    {"revisions"},
			"rvprop":  {"content|timestamp|ids"},
			"rvslots": {"main"},
		}
		var resp contentResponse
		if err := c.call(ctx, "POST", params, &resp); err != nil {
			return nil, fmt.Errorf("fetch batch: %w", err)
		}
		if resp.Error != nil {
			return nil, classifyAPIError(resp.Error)
		}

		for _, p := range resp.Query.Pages {
			if p.Missing || len(p.Revisions) == 0 {
				continue
			}
			rev := p.Revisions[0]
			result[p.Title] = &PageContent{
				Title:      p.Title,
				Content:    rev.Slots.Main.Content,
				RevisionID: rev.RevID,
				Timestamp:  rev.Timestamp,
			}
		}
	}

	return result, nil
}

type editResponse struct {
	Edit struct {
		Result    string `json:"result"`
		NewRevID  int64  `json:"newrevid"`
		Timestamp string `json:"newtimestamp"`
	} `json:"edit"`
	Error *apiError `json:"error"`
}

// Edit creates or updates a page. When BaseRevID is nonzero, it is
// sent as the edit's base revision so the server rejects the edit
// (editconflict) if another edit landed in between — the
// authoritative conflict check; engine's own timestamp comparison is
// only a pre-flight short-circuit before spending an API round trip.
func (c *Client) Edit(ctx context.Context, p EditParams) (*EditResult, error) {
	var result *EditResult
	err := c.withCSRFWriteRetry(ctx, func(csrf string) error {
		params := url.Values{
			"action":  {"edit"},
			"title":   {p.Title},
			"text":    {p.Content},
			"summary": {p.Summary},
			"token":   {csrf},
		}
		if p.BaseRevID != 0 {
			params.Set("baserevid", strconv.FormatInt(p.BaseRevID, 10))
		}
		if p.Bot {
			params.Set("bot", "true")
		}

		var resp editResponse
		if err := c.call(ctx, "POST", params, &resp); err != nil {
			return err
		}
		if resp.Error != nil {
			return classifyAPIError(resp.Error)
		}
		if resp.Edit.Result != "Success" {
			return engine.Newf(engine.KindEditConflict, p.Title, fmt.Errorf("edit result: %s", resp.Edit.Result))
		}

		result = &EditResult{NewRevID: resp.Edit.NewRevID, Timestamp: resp.Edit.Timestamp}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type deleteResponse struct {
	Delete struct {
		LogID int64 `json:"logid"`
	} `json:"delete"`
	Error *apiError `json:"error"`
}

// Delete removes title with the given reason, returning the log id.
func (c *Client) Delete(ctx context.Context, title, reason string) (int64, error) {
	var logID int64
	err := c.withCSRFWriteRetry(ctx, func(csrf string) error {
		params := url.Values{
			"action": {"delete"},
			"title":  {title},
			"token":  {csrf},
		}
		if reason != "" {
			params.Set("reason", reason)
		}

		var resp deleteResponse
		if err := c.call(ctx, "POST", params, &resp); err != nil {
			return err
		}
		if resp.Error != nil {
			return classifyAPIError(resp.Error)
		}
		logID = resp.Delete.LogID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return logID, nil
}

type parseResponse struct {
	Parse struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"parse"`
	Error *apiError `json:"error"`
}

// GetParsedHTML fetches the server-rendered HTML of title (rvparse=1
// equivalent via action=parse), used for Special: page scraping. A
// nonexistent page returns (nil, nil).
func (c *Client) GetParsedHTML(ctx context.Context, title string) (*ParsedPage, error) {
	params := url.Values{
		"action": {"parse"},
		"page":   {title},
		"prop":   {"text"},
	}
	var resp parseResponse
	if err := c.call(ctx, "POST", params, &resp); err != nil {
		return nil, fmt.Errorf("get parsed html: %w", err)
	}
	if resp.Error != nil {
		if strings.Contains(strings.ToLower(resp.Error.Code), "missingtitle") {
			return nil, nil
		}
		return nil, classifyAPIError(resp.Error)
	}
	return &ParsedPage{Title: resp.Parse.Title, HTML: resp.Parse.Text}, nil
}

// QueryPageItem is one row from a Special:QueryPage report
// (e.g. Special:LonelyPages, Special:DoubleRedirects).
type QueryPageItem struct {
	Title string
	Value string
}

type queryPageResponse struct {
	Query struct {
		QueryPage struct {
			Results []struct {
				Title string `json:"title"`
				Value string `json:"value"`
			} `json:"results"`
		} `json:"querypage"`
	} `json:"query"`
	Error *apiError `json:"error"`
}

// GetQueryPageItems fetches up to limit rows from a Special: query
// page report, returning the items and whether the server truncated
// the result (limit reached, possibly more available).
func (c *Client) GetQueryPageItems(ctx context.Context, queryPage string, limit int) ([]QueryPageItem, bool, error) {
	if limit <= 0 {
		limit = 1000
	}
	params := url.Values{
		"action": {"query"},
		"list":   {"querypage"},
		"qppage": {queryPage},
		"qplimit": {strconv.Itoa(limit)},
	}
	var resp queryPageResponse
	if err := c.call(ctx, "POST", params, &resp); err != nil {
		return nil, false, fmt.Errorf("get query page items: %w", err)
	}
	if resp.Error != nil {
		return nil, false, classifyAPIError(resp.Error)
	}

	items := make([]QueryPageItem, 0, len(resp.Query.QueryPage.Results))
	for _, r := range resp.Query.QueryPage.Results {
		items = append(items, QueryPageItem{Title: r.Title, Value: r.Value})
	}
	truncated := len(items) >= limit
	return items, truncated, nil
}
